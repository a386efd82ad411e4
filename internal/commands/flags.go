package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/tracksync/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	RootDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the config file path. A .tracksync/config.yaml in
// the working directory wins over the user config under XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	if wd, err := os.Getwd(); err == nil {
		local := filepath.Join(wd, ".tracksync", "config.yaml")
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "tracksync", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "tracksync")
}

// DefaultRootDir returns the working directory.
func DefaultRootDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
