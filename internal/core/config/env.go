package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Credentials are secrets supplied through the environment. They are passed
// through to the tracker untouched.
type Credentials struct {
	GitHubToken string `env:"GITHUB_TOKEN"`
	GitLabToken string `env:"GITLAB_TOKEN"`
	GitLabURL   string `env:"GITLAB_URL" envDefault:"https://gitlab.com"`
}

// LoadCredentials loads an optional .env file from rootDir into the process
// environment (existing variables win) and parses Credentials from it.
func LoadCredentials(rootDir string) (Credentials, error) {
	if rootDir != "" {
		dotenv := filepath.Join(rootDir, ".env")
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse env: %w", err)
	}
	return creds, nil
}
