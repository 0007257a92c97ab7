package config

// ValidFormats lists accepted report output formats.
var ValidFormats = []string{"table", "markdown", "json"}

// IsValidFormat reports whether s is an accepted output format.
func IsValidFormat(s string) bool {
	for _, f := range ValidFormats {
		if s == f {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Dir:          ".",
			ArtifactsDir: "",
		},
		Report: ReportConfig{
			Path:   "coverage.json",
			Format: "table",
		},
		Checks: ChecksConfig{
			FailUnder:        0,
			FailOnRegression: false,
		},
	}
}

// Merge overlays loaded config values onto defaults. Zero values in loaded
// fall back to the default.
func Merge(loaded, defaults *Config) *Config {
	merged := *defaults

	if loaded.Project.Dir != "" {
		merged.Project.Dir = loaded.Project.Dir
	}
	if loaded.Project.ArtifactsDir != "" {
		merged.Project.ArtifactsDir = loaded.Project.ArtifactsDir
	}
	if len(loaded.Project.ModelPathFilter) > 0 {
		merged.Project.ModelPathFilter = loaded.Project.ModelPathFilter
	}
	if loaded.Report.Path != "" {
		merged.Report.Path = loaded.Report.Path
	}
	if loaded.Report.Format != "" {
		merged.Report.Format = loaded.Report.Format
	}
	if loaded.Checks.FailUnder != 0 {
		merged.Checks.FailUnder = loaded.Checks.FailUnder
	}
	if loaded.Checks.FailOnRegression {
		merged.Checks.FailOnRegression = true
	}

	return &merged
}
