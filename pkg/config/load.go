package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document pairs a parsed configuration with the file it came from.
type Document struct {
	File   string
	Config Config
}

// Load reads configuration from path, which may be a single YAML file or a
// directory of them. Directory entries are read in name order; hidden files
// and files without a .yml or .yaml extension are skipped.
func Load(path string) (Config, error) {
	paths, err := configFiles(path)
	if err != nil {
		return Config{}, err
	}
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg, err := Parse(data, p)
		if err != nil {
			return Config{}, err
		}
		docs = append(docs, Document{File: p, Config: cfg})
	}
	return Merge(docs)
}

func configFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	listing, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	var paths []string
	for _, de := range listing {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".yml", ".yaml":
			paths = append(paths, filepath.Join(path, name))
		}
	}
	return paths, nil
}
