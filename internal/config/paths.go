package config

import (
	"os"
	"path/filepath"
)

const (
	// DirName is the per-project configuration directory.
	DirName = ".dbfc"
	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"
	// EnvConfigPath overrides the configuration file location.
	EnvConfigPath = "DBFC_CONFIG"
)

// PathInDir returns the configuration file path under dir.
func PathInDir(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// ResolvePath picks the configuration file to use
// Priority order:
//  1. explicit path (the --config flag)
//  2. DBFC_CONFIG environment variable
//  3. .dbfc/config.yaml in the current working directory
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return PathInDir(".")
}
