package config

import (
	"os"

	"github.com/joho/godotenv"
)

// EnvFiles are tried in order; the first one present is loaded.
var EnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads the first existing file of EnvFiles into the process
// environment without overriding variables that are already set. It
// returns the loaded filename, or "" when none exists.
func LoadEnvFiles() (string, error) {
	for _, name := range EnvFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", nil
}
