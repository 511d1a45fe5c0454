package config

import (
	"strings"

	"github.com/xplshn/gbat/pkg/cli"
)

type Feature int

const (
	FeatKeepComments Feature = iota
	FeatSplit
	FeatCRLF
	FeatNoDirectives
	FeatCount
)

type Warning int

const (
	WarnUnrecognizedEscape Warning = iota
	WarnUnreachableCode
	WarnRecursion
	WarnFrameGlobal
	WarnExternCall
	WarnExtra
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	// DirectivePrefix marks a line comment whose remainder is a list of -W/-F flags.
	DirectivePrefix string
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap:      make(map[string]Feature),
		WarningMap:      make(map[string]Warning),
		DirectivePrefix: "[gbat]:",
	}

	features := map[Feature]Info{
		FeatKeepComments: {"keep-comments", true, "Carry '//' comments into the generated script as 'rem' lines."},
		FeatSplit:        {"split", true, "Normalize nested expressions into temporaries before lowering."},
		FeatCRLF:         {"crlf", true, "Terminate generated lines with CRLF."},
		FeatNoDirectives: {"no-directives", false, "Disable `// [gbat]:` directives."},
	}

	warnings := map[Warning]Info{
		WarnUnrecognizedEscape: {"u-esc", true, "Warn on unrecognized character escape sequences."},
		WarnUnreachableCode:    {"unreachable-code", true, "Warn about code that follows a return."},
		WarnRecursion:          {"recursion", true, "Warn about recursive calls, whose locals share one frame."},
		WarnFrameGlobal:        {"frame-global", true, "Warn about 'global' inside functions, which does not bypass frame storage."},
		WarnExternCall:         {"extern-call", false, "Warn about calls that resolve to external commands."},
		WarnExtra:              {"extra", true, "Enable extra miscellaneous warnings."},
		WarnPedantic:           {"pedantic", false, "Issue all warnings, including stylistic ones."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// LineEnding returns the line terminator for generated scripts.
func (c *Config) LineEnding() string {
	if c.IsFeatureEnabled(FeatCRLF) {
		return "\r\n"
	}
	return "\n"
}

// applyFlag reports whether flag names a known warning or feature.
func (c *Config) applyFlag(flag string) bool {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return true
	}

	if name == "pedantic" && isWarning {
		c.SetWarning(WarnPedantic, true)
		return true
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if ok {
			c.SetWarning(w, enable)
		}
		return ok
	}
	f, ok := c.FeatureMap[name]
	if ok {
		c.SetFeature(f, enable)
	}
	return ok
}

// ProcessFlags applies -Wall/-pedantic first so that specific flags can override them.
func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	visitFlag(func(name string) {
		if name == "Wall" || name == "Wno-all" || name == "pedantic" {
			c.applyFlag("-" + name)
		}
	})
	visitFlag(func(name string) {
		if name != "Wall" && name != "Wno-all" && name != "pedantic" {
			c.applyFlag("-" + name)
		}
	})
}

// ProcessDirectiveFlags applies the flags of a source directive and
// returns the ones it did not recognize.
func (c *Config) ProcessDirectiveFlags(flagStr string) (unknown []string) {
	for _, flag := range strings.Fields(flagStr) {
		if !c.applyFlag(flag) {
			unknown = append(unknown, flag)
		}
	}
	return unknown
}

// SetupFlagGroups registers the -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}
