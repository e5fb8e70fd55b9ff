// Package gamebox locates game folders that carry their own engine
// configuration.
package gamebox

import (
	"os"
	"path/filepath"
)

// ConfigName is the engine configuration file that marks a gamebox.
const ConfigName = "boxer.lua"

// FindRoot returns the nearest directory at or above dir that contains a
// boxer.lua, or an empty string if there is none.
func FindRoot(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ConfigName)); err == nil && !info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ConfigPath returns the gamebox configuration for dir, or an empty string
// if dir is not inside a gamebox.
func ConfigPath(dir string) string {
	root := FindRoot(dir)
	if root == "" {
		return ""
	}
	return filepath.Join(root, ConfigName)
}
