package config

import (
	"fmt"
	"maps"
)

// Merge combines per-file documents into one configuration. Trees from all
// documents concatenate, but two declarations of the same mount path
// conflict. The authentication and server sections may appear in at most
// one document. Media type and file extension maps merge key-wise with
// later documents winning, and allowed origins concatenate.
func Merge(docs []Document) (Config, error) {
	var merged Config
	mediaTypes := map[string]map[string]string{}
	fileExtensions := map[string]string{}
	mounts := map[string]string{}
	var authFile, serverFile string

	for _, doc := range docs {
		cfg := doc.Config
		for _, spec := range cfg.Trees {
			if previous, ok := mounts[spec.Path]; ok {
				return Config{}, &ConflictError{
					Section: fmt.Sprintf("tree path %q", spec.Path),
					Files:   []string{previous, doc.File},
				}
			}
			mounts[spec.Path] = doc.File
			merged.Trees = append(merged.Trees, spec)
		}
		if cfg.Authentication != nil {
			if merged.Authentication != nil {
				return Config{}, &ConflictError{Section: "authentication", Files: []string{authFile, doc.File}}
			}
			authFile = doc.File
			merged.Authentication = cfg.Authentication
		}
		if cfg.Server != nil {
			if merged.Server != nil {
				return Config{}, &ConflictError{Section: "server", Files: []string{serverFile, doc.File}}
			}
			serverFile = doc.File
			merged.Server = cfg.Server
		}
		for family, values := range cfg.MediaTypes {
			if mediaTypes[family] == nil {
				mediaTypes[family] = map[string]string{}
			}
			maps.Copy(mediaTypes[family], values)
		}
		maps.Copy(fileExtensions, cfg.FileExtensions)
		merged.AllowOrigins = append(merged.AllowOrigins, cfg.AllowOrigins...)
	}

	if len(mediaTypes) > 0 {
		merged.MediaTypes = mediaTypes
	}
	if len(fileExtensions) > 0 {
		merged.FileExtensions = fileExtensions
	}
	return merged, nil
}
