package config

// Loader resolves the final Config for a process invocation: built-in
// defaults, then an optional file, then environment variables. CLI
// flags are the top precedence tier but are applied by the caller
// (cobra command) directly onto the result, since flag definitions
// are specific to each subcommand's surface.
type Loader struct {
	FilePath string
}

// Load produces the merged configuration.
func (l Loader) Load() (Config, error) {
	cfg := Defaults()

	cfg, err := LoadFile(l.FilePath, cfg)
	if err != nil {
		return cfg, err
	}

	cfg = ApplyEnv(cfg)
	return cfg, nil
}
