package config

// Overrides are command line values that win over the configuration
// file. Nil fields were not given.
type Overrides struct {
	ShellcheckPath *string
	Severity       *string
	Exclude        []string
	DefaultShell   *string
	LogLevel       *string
	LogFile        *string
}

// Apply lays the given overrides over cfg. Exclusions are added to the
// configured ones.
func (o *Overrides) Apply(cfg *Config) {
	if o == nil {
		return
	}
	if o.ShellcheckPath != nil {
		cfg.Shellcheck.Path = *o.ShellcheckPath
	}
	if o.Severity != nil {
		cfg.Shellcheck.Severity = *o.Severity
	}
	if o.DefaultShell != nil {
		cfg.Shellcheck.DefaultShell = *o.DefaultShell
	}
	if o.LogLevel != nil {
		cfg.Logger.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logger.File = *o.LogFile
	}
	for _, code := range o.Exclude {
		if !cfg.Excludes(code) {
			cfg.Shellcheck.Exclude = append(cfg.Shellcheck.Exclude, code)
		}
	}
}
