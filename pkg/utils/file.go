package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Exists determine whether the file exists
func Exists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// CreateNestedFile create nested file
func CreateNestedFile(path string) (*os.File, error) {
	basePath := filepath.Dir(path)
	if err := os.MkdirAll(basePath, 0700); err != nil {
		Log.Errorf("can't create folder, %s", err)
		return nil, err
	}
	return os.Create(path)
}

// SanitizeFilename keeps a name inside its directory.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}
