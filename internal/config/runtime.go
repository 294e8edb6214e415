package config

import (
	"os"
	"path/filepath"
)

func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("DATACOM_RUNTIME_PATH"))
}

// resolveRuntimePath anchors relative paths at the user's home directory.
func resolveRuntimePath(path string) string {
	if path == "" {
		path = ".datacom"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
