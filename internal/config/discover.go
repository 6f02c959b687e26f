package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigFile is looked up when no --config flag is given.
const DefaultConfigFile = "gearsolver.yaml"

// Discover locates a file relative to the working directory by walking up the directory tree.
func Discover(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
