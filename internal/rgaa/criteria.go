package rgaa

import (
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// Topic is one of the thirteen themes of the catalog.
type Topic int

// Catalog topics, numbered as in the catalog.
const (
	TopicImages Topic = iota + 1
	TopicFrames
	TopicColors
	TopicMultimedia
	TopicTables
	TopicLinks
	TopicScripts
	TopicMandatory
	TopicStructure
	TopicPresentation
	TopicForms
	TopicNavigation
	TopicConsultation
)

var topicNames = map[Topic]string{
	TopicImages:       "Images",
	TopicFrames:       "Frames",
	TopicColors:       "Colors",
	TopicMultimedia:   "Multimedia",
	TopicTables:       "Tables",
	TopicLinks:        "Links",
	TopicScripts:      "Scripts",
	TopicMandatory:    "Mandatory elements",
	TopicStructure:    "Structure",
	TopicPresentation: "Presentation",
	TopicForms:        "Forms",
	TopicNavigation:   "Navigation",
	TopicConsultation: "Consultation",
}

// String returns the English topic name.
func (t Topic) String() string {
	if n, ok := topicNames[t]; ok {
		return n
	}
	return "Topic " + strconv.Itoa(int(t))
}

// Criterion is one entry of the normative catalog.
type Criterion struct {
	ID    string
	Topic Topic
	Level model.Level
}

// topicLevels lists, per topic, the level of each criterion in order.
// The criterion number is the 1-based index in the slice.
var topicLevels = []struct {
	topic  Topic
	levels string
}{
	{TopicImages, "A A A A A A A AA A"},
	{TopicFrames, "A A"},
	{TopicColors, "A AA AA"},
	{TopicMultimedia, "A A A A AA AA A A A A A A A"},
	{TopicTables, "A A A A A A A A"},
	{TopicLinks, "A A"},
	{TopicScripts, "A A A A AA"},
	{TopicMandatory, "A A A A A A AA AA A A"},
	{TopicStructure, "A A A A"},
	{TopicPresentation, "A A A AA AA A A A A A AA AA AA A"},
	{TopicForms, "A A AA A A A A A A A AA AA AA"},
	{TopicNavigation, "AA AA AA AA AA A A A A A A"},
	{TopicConsultation, "A A A A A A A A AA A A A"},
}

// Catalog is the ordered list of the 106 criteria.
var Catalog = buildCatalog()

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(Catalog))
	for i, c := range Catalog {
		idx[c.ID] = i
	}
	return idx
}()

func buildCatalog() []Criterion {
	var out []Criterion
	for _, tl := range topicLevels {
		for i, lvl := range strings.Fields(tl.levels) {
			out = append(out, Criterion{
				ID:    strconv.Itoa(int(tl.topic)) + "." + strconv.Itoa(i+1),
				Topic: tl.topic,
				Level: model.Level(lvl),
			})
		}
	}
	return out
}

// Lookup returns the catalog entry for a criterion identifier such as "8.3".
func Lookup(id string) (Criterion, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Criterion{}, false
	}
	return Catalog[i], true
}
