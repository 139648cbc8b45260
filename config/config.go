package config

import "time"

// Config represents the complete peme configuration
type Config struct {
	BaseDir  string        `yaml:"-"`         // Directory containing config file, for resolving relative paths
	Stdlib   string        `yaml:"stdlib"`    // Replacement standard library file (empty = embedded)
	NoStdlib bool          `yaml:"no_stdlib"` // Skip loading the standard library
	MaxDepth int           `yaml:"max_depth"` // Nested call limit (0 = unbounded)
	REPL     REPLConfig    `yaml:"repl"`
	Logging  LoggingConfig `yaml:"logging"`
	Watch    WatchConfig   `yaml:"watch"`
}

// REPLConfig holds interactive session settings
type REPLConfig struct {
	Prompt  string `yaml:"prompt"`
	History string `yaml:"history"` // History file (empty = ~/.peme_history)
}

// LoggingConfig holds diagnostic output settings for the CLI
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// WatchConfig holds settings for -watch mode
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // Quiet period before a rerun
	Paths    []string      `yaml:"paths"`    // Extra files or directories to watch
}

// Defaults returns a Config with default values
func Defaults() *Config {
	return &Config{
		MaxDepth: 10000,
		REPL: REPLConfig{
			Prompt: "peme> ",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
	}
}
