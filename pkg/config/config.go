// Package config compiles declarative YAML configuration into a servable
// catalog tree. Each document is validated against a JSON Schema before
// decoding, documents merge deterministically with conflicts reported by
// file, and tree or authenticator specifiers resolve through closed factory
// registries rather than dynamic imports.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var schema *jsonschema.Schema

func init() {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("parsing embedded config schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", doc); err != nil {
		panic(fmt.Sprintf("adding config schema resource: %v", err))
	}
	schema, err = compiler.Compile("config.schema.json")
	if err != nil {
		panic(fmt.Sprintf("compiling config schema: %v", err))
	}
}

// Sentinel errors reported by the compiler.
var (
	// ErrNoTrees indicates a configuration that declares no trees.
	ErrNoTrees = errors.New("configuration contains no trees")

	// ErrDuplicateMount indicates two trees whose mount paths normalize to
	// the same place in the served hierarchy.
	ErrDuplicateMount = errors.New("duplicate mount path")

	// ErrUnknownSpecifier indicates a tree, authenticator, or encoder name
	// with no registered factory.
	ErrUnknownSpecifier = errors.New("unknown specifier")
)

// Config is the merged content of one or more configuration documents.
type Config struct {
	Trees          []TreeSpec                   `yaml:"trees"`
	Authentication *Authentication              `yaml:"authentication"`
	Server         *Server                      `yaml:"server"`
	AllowOrigins   []string                     `yaml:"allow_origins"`
	MediaTypes     map[string]map[string]string `yaml:"media_types"`
	FileExtensions map[string]string            `yaml:"file_extensions"`
}

// TreeSpec mounts one tree at a path in the served hierarchy.
type TreeSpec struct {
	Path string         `yaml:"path"`
	Tree string         `yaml:"tree"`
	Args map[string]any `yaml:"args"`

	// Source is the file that declared this spec, named in conflict reports.
	Source string `yaml:"-"`
}

// Authentication configures how clients establish a session.
type Authentication struct {
	Authenticator        string         `yaml:"authenticator"`
	Args                 map[string]any `yaml:"args"`
	AllowAnonymousAccess bool           `yaml:"allow_anonymous_access"`
	SecretKey            string         `yaml:"secret_key"`
	AccessTokenMaxAge    int            `yaml:"access_token_max_age"`
}

// Server holds the listen address settings.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Listen defaults applied when the server section leaves fields unset.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8000
)

// WithDefaults fills unset listen settings.
func (s Server) WithDefaults() Server {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	return s
}

// ValidationError reports a configuration document that failed to parse or
// validate.
type ValidationError struct {
	File  string
	Cause error
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Cause)
	}
	return fmt.Sprintf("invalid configuration in %s: %v", e.File, e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ConflictError reports a section declared in more than one place when a
// single declaration is required.
type ConflictError struct {
	Section string
	Files   []string
}

func (e *ConflictError) Error() string {
	switch {
	case len(e.Files) == 2 && e.Files[0] != e.Files[1]:
		return fmt.Sprintf("%s declared in both %s and %s", e.Section, e.Files[0], e.Files[1])
	case len(e.Files) > 0:
		return fmt.Sprintf("%s declared more than once in %s", e.Section, e.Files[0])
	default:
		return fmt.Sprintf("%s declared more than once", e.Section)
	}
}

// Parse decodes and validates a single configuration document. file names
// the source in errors and may be empty for documents built in memory.
func Parse(data []byte, file string) (Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &ValidationError{File: file, Cause: fmt.Errorf("failed to parse YAML config: %w", err)}
	}
	if err := schema.Validate(raw); err != nil {
		return Config{}, &ValidationError{File: file, Cause: err}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ValidationError{File: file, Cause: err}
	}
	for i := range cfg.Trees {
		cfg.Trees[i].Source = file
	}
	return cfg, nil
}
