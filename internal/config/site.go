package config

import "maps"

// SiteConfig holds site-specific audit settings for a single host.
type SiteConfig struct {
	// Cookie is sent with every request to the site, for pages behind a login.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request to the site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Engine overrides the engine selector for this site.
	Engine string `yaml:"engine,omitempty"`

	// Language overrides the summary language for this site.
	Language string `yaml:"language,omitempty"`

	// IgnorePatterns are URL path globs skipped by page discovery
	// (e.g. "/logout", "/admin/*", "*.pdf").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict page discovery to matching paths when set.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// RequestHeaders returns the headers to send, with Cookie folded in.
func (sc SiteConfig) RequestHeaders() map[string]string {
	if sc.Cookie == "" && len(sc.Headers) == 0 {
		return nil
	}
	h := make(map[string]string, len(sc.Headers)+1)
	maps.Copy(h, sc.Headers)
	if sc.Cookie != "" {
		h["Cookie"] = sc.Cookie
	}
	return h
}

// PlanConfig is the quota of one plan.
type PlanConfig struct {
	// AuditsLimit is the number of engine runs allowed per period.
	// Zero means unlimited.
	AuditsLimit int `yaml:"auditsLimit"`

	// PeriodDays is the length of a usage period. Zero means 30 days.
	PeriodDays int `yaml:"periodDays,omitempty"`

	// Comparative allows the "all" engine selector.
	Comparative bool `yaml:"comparative"`
}

// File represents the structure of the .a11yscan configuration file.
type File struct {
	// Sites maps hosts (e.g. "www.example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Plans maps plan names to their quotas.
	Plans map[string]PlanConfig `yaml:"plans,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific configuration over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Engine != "" {
			result.Engine = siteConfig.Engine
		}
		if siteConfig.Language != "" {
			result.Language = siteConfig.Language
		}
		if len(siteConfig.IgnorePatterns) > 0 {
			result.IgnorePatterns = siteConfig.IgnorePatterns
		}
		if len(siteConfig.FollowPatterns) > 0 {
			result.FollowPatterns = siteConfig.FollowPatterns
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			maps.Copy(result.Headers, siteConfig.Headers)
		}
	}

	return result
}

// GetPlan returns the quota of a named plan.
func (cf *File) GetPlan(name string) (PlanConfig, bool) {
	if cf == nil {
		return PlanConfig{}, false
	}
	p, ok := cf.Plans[name]
	return p, ok
}

// Headers returns the request headers configured for host.
func (cf *File) Headers(host string) map[string]string {
	return cf.GetSiteConfig(host).RequestHeaders()
}
