package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolvePath returns p unchanged when it is absolute or empty, otherwise
// joined onto base.
func ResolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// resolvePaths makes every configured path absolute relative to base, the
// directory holding the config file.
func (c *Config) resolvePaths(base string) error {
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory %q: %w", base, err)
	}
	c.BaseDir = abs
	c.Analysis.MappingFile = ResolvePath(abs, c.Analysis.MappingFile)
	c.Analysis.OutputDir = ResolvePath(abs, c.Analysis.OutputDir)
	c.Logging.FilePath = ResolvePath(abs, c.Logging.FilePath)
	return nil
}

// SourceDir is the directory relative source files named in the declaration
// are resolved against: the config file's directory.
func (c *Config) SourceDir() string {
	if c.BaseDir != "" {
		return c.BaseDir
	}
	return filepath.Dir(c.Analysis.MappingFile)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
