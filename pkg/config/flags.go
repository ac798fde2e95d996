package config

import (
	"github.com/spf13/pflag"
)

// Flags contains the command line overrides shared by every client command.
type Flags struct {
	ConfigFile string
	APIURL     string
	UploadPath string
	LogLevel   string
	LogFile    string
}

func NewFlags() *Flags {
	return &Flags{}
}

func (f *Flags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", getEnv("AGENTSMITH_CONFIG", ""), "Path to a YAML config file")
	fs.StringVar(&f.APIURL, "api-url", "", "Base URL of the AgentSmith backend (default "+DefaultAPIURL+")")
	fs.StringVar(&f.UploadPath, "upload-path", "", "Upload endpoint path, e.g. /upload-pdf for older backends")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file instead of stderr")
}

// Resolve builds the effective config from the environment, the config file
// when one is set, and the flags that were given.
func (f *Flags) Resolve() (*Config, error) {
	cfg := Load()

	if f.ConfigFile != "" {
		fileCfg, err := LoadFromFile(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}

	cfg.Merge(&Config{
		APIURL:     f.APIURL,
		UploadPath: f.UploadPath,
		LogLevel:   f.LogLevel,
		LogFile:    f.LogFile,
	})
	return cfg, nil
}
