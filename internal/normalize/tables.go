package normalize

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/a11yscan/internal/model"
)

//go:embed tables/*.yaml
var tableFS embed.FS

// mapping is the target of one lookup: a criterion with its impact and level.
type mapping struct {
	Criterion string `yaml:"criterion"`
	Impact    string `yaml:"impact"`
	Level     string `yaml:"level"`
}

type axeTable struct {
	Version  int               `yaml:"version"`
	Defaults mapping           `yaml:"defaults"`
	Levels   map[string]string `yaml:"levels"`
	Impacts  map[string]string `yaml:"impacts"`
	Rules    map[string]string `yaml:"rules"`
}

type wavePattern struct {
	Match []string `yaml:"match"`
	Type  string   `yaml:"type"`
}

type waveDefaults struct {
	Type      string `yaml:"type"`
	Criterion string `yaml:"criterion"`
	Impact    string `yaml:"impact"`
	Level     string `yaml:"level"`
}

type waveTable struct {
	Version  int                `yaml:"version"`
	Defaults waveDefaults       `yaml:"defaults"`
	Patterns []wavePattern      `yaml:"patterns"`
	Types    map[string]mapping `yaml:"types"`
	Kinds    map[string]string  `yaml:"kinds"`
}

var (
	axeMapping  = mustLoad[axeTable]("tables/axe.yaml")
	waveMapping = mustLoad[waveTable]("tables/wave.yaml")
)

func mustLoad[T any](name string) *T {
	data, err := tableFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("normalize: read %s: %v", name, err))
	}
	var t T
	if err := yaml.Unmarshal(data, &t); err != nil {
		panic(fmt.Sprintf("normalize: parse %s: %v", name, err))
	}
	return &t
}

// TableVersions returns the version of each embedded mapping table, keyed by
// engine. Reports carry it so results can be traced to the mapping used.
func TableVersions() map[model.Engine]int {
	return map[model.Engine]int{
		model.EngineAxe:  axeMapping.Version,
		model.EngineWave: waveMapping.Version,
	}
}

// AxeCriterion returns the criterion mapped to an axe rule and whether the
// rule is known.
func AxeCriterion(ruleID string) (string, bool) {
	c, ok := axeMapping.Rules[strings.ToLower(ruleID)]
	if !ok {
		return axeMapping.Defaults.Criterion, false
	}
	return c, true
}

// ClassifyWave returns the finding type of a remote scanner description, or
// the default type when no pattern matches.
func ClassifyWave(description string) string {
	d := strings.ToLower(description)
	for _, p := range waveMapping.Patterns {
		for _, m := range p.Match {
			if strings.Contains(d, m) {
				return p.Type
			}
		}
	}
	return waveMapping.Defaults.Type
}
