package conf

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

var AppName = "tokbudget"
var AppVersion = "0.1.0"

const (
	SourceOffline = "offline"
	SourceFile    = "file"
	SourceRemote  = "remote"

	StrategyExact       = "exact"
	StrategyApproximate = "approximate"

	// AllSpecials in allowed_specials allows every registered special token.
	AllSpecials = "all"

	DefaultTokenLimit = 20000
)

type Logger struct {
	Level string `json:"level" toml:"level"`
}

type Ranks struct {
	Source string `json:"source" toml:"source"`
	Path   string `json:"path" toml:"path"`
	URL    string `json:"url" toml:"url"`
}

type Budget struct {
	TokenLimit int `json:"token_limit" toml:"token_limit"`
}

type Encoder struct {
	Strategy        string   `json:"strategy" toml:"strategy"`
	AllowedSpecials []string `json:"allowed_specials" toml:"allowed_specials"`
}

// ConfigTpl ...
type ConfigTpl struct {
	Env     string  `json:"env" toml:"env"`
	Logger  Logger  `json:"log" toml:"log"`
	Ranks   Ranks   `json:"ranks" toml:"ranks"`
	Budget  Budget  `json:"budget" toml:"budget"`
	Encoder Encoder `json:"encoder" toml:"encoder"`
}

// Default returns the configuration used when no file is given.
func Default() *ConfigTpl {
	return &ConfigTpl{
		Env:     "production",
		Logger:  Logger{Level: "info"},
		Ranks:   Ranks{Source: SourceOffline},
		Budget:  Budget{TokenLimit: DefaultTokenLimit},
		Encoder: Encoder{Strategy: StrategyExact},
	}
}

func (c *ConfigTpl) Validate() error {
	switch c.Ranks.Source {
	case SourceOffline, SourceRemote:
	case SourceFile:
		if c.Ranks.Path == "" {
			return fmt.Errorf("ranks.path is required for source %q", SourceFile)
		}
	default:
		return fmt.Errorf("unknown ranks.source %q", c.Ranks.Source)
	}

	switch c.Encoder.Strategy {
	case StrategyExact, StrategyApproximate:
	default:
		return fmt.Errorf("unknown encoder.strategy %q", c.Encoder.Strategy)
	}

	if c.Budget.TokenLimit <= 0 {
		return fmt.Errorf("budget.token_limit must be positive, got %d", c.Budget.TokenLimit)
	}
	return nil
}

// Load reads the config file named by CONFIG_FILE_PATH or path, layered over Default. With neither set it
// returns the defaults.
func Load(path ...string) (*ConfigTpl, error) {
	cfg := Default()

	filePath := getConfigFilePath(path...)
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", filePath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getConfigFilePath(path ...string) string {
	// the environment variable takes precedence
	filePath := os.Getenv("CONFIG_FILE_PATH")

	// or the given path
	if filePath == "" && len(path) > 0 {
		filePath = path[0]
	}

	return filePath
}
