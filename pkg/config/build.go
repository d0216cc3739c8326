package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canopy-data/canopy/pkg/auth"
	"github.com/canopy-data/canopy/pkg/catalog/files"
	"github.com/canopy-data/canopy/pkg/catalog/inmem"
	"github.com/canopy-data/canopy/pkg/codec"
	"github.com/canopy-data/canopy/pkg/compress"
	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/query"
	"github.com/canopy-data/canopy/pkg/registry"
)

// Built-in tree specifiers.
const (
	TreeFiles = "files"
	TreeDemo  = "demo"
)

// DefaultSessionMaxAge is the session token lifetime when the
// authentication section does not set one.
const DefaultSessionMaxAge = 15 * time.Minute

// TreeFactory constructs a catalog entry from configuration args.
type TreeFactory func(args map[string]any) (entry.Entry, error)

// StaticTree wraps a ready-made entry as a TreeFactory. Args are ignored.
func StaticTree(e entry.Entry) TreeFactory {
	return func(map[string]any) (entry.Entry, error) {
		return e, nil
	}
}

// Runtime is compiled configuration: the root of the served tree plus the
// registries and settings the server wires into its handlers.
type Runtime struct {
	Root           entry.Entry
	Authenticator  auth.Authenticator
	AllowAnonymous bool
	SecretKey      string
	SessionMaxAge  time.Duration
	AllowOrigins   []string
	Server         Server
	Serialization  *codec.SerializationRegistry
	Queries        *query.Registry
	Compression    *compress.Registry
}

// Builder resolves specifiers and compiles merged configuration into a
// Runtime. NewBuilder registers the built-in factories; plugins may add
// their own before Build runs.
type Builder struct {
	trees          *registry.Registry[string, TreeFactory]
	authenticators *registry.Registry[string, auth.Factory]
	encoders       *registry.Registry[string, codec.EncoderFunc]
	serialization  *codec.SerializationRegistry
	queries        *query.Registry
	compression    *compress.Registry
}

// BuilderOption adjusts a Builder. The registry options let callers compile
// configuration against isolated registries instead of fresh defaults.
type BuilderOption func(*Builder)

// WithSerializationRegistry substitutes the registry that receives
// media_types and file_extensions registrations.
func WithSerializationRegistry(r *codec.SerializationRegistry) BuilderOption {
	return func(b *Builder) {
		b.serialization = r
	}
}

// WithQueryRegistry substitutes the query registry carried into the Runtime.
func WithQueryRegistry(r *query.Registry) BuilderOption {
	return func(b *Builder) {
		b.queries = r
	}
}

// WithCompressionRegistry substitutes the compression registry carried into
// the Runtime.
func WithCompressionRegistry(r *compress.Registry) BuilderOption {
	return func(b *Builder) {
		b.compression = r
	}
}

// NewBuilder returns a Builder with the built-in tree factories and
// authenticators registered.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		trees:          registry.New[string, TreeFactory](),
		authenticators: registry.New[string, auth.Factory](),
		encoders:       registry.New[string, codec.EncoderFunc](),
		serialization:  codec.DefaultRegistry(),
		queries:        query.DefaultRegistry(),
		compression:    compress.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.RegisterTree(TreeFiles, filesTree)
	b.RegisterTree(TreeDemo, demoTree)
	b.RegisterAuthenticator(auth.KindDictionary, auth.NewDictionary)
	return b
}

// RegisterTree makes a tree constructor available under name. Registering
// an existing name replaces it.
func (b *Builder) RegisterTree(name string, factory TreeFactory) {
	b.trees.Put(name, factory)
}

// RegisterAuthenticator makes an authenticator constructor available under
// name. Registering an existing name replaces it.
func (b *Builder) RegisterAuthenticator(name string, factory auth.Factory) {
	b.authenticators.Put(name, factory)
}

// RegisterEncoder makes an encoder available to media_types values under
// name. Registering an existing name replaces it.
func (b *Builder) RegisterEncoder(name string, fn codec.EncoderFunc) {
	b.encoders.Put(name, fn)
}

// Build compiles cfg. Tree and authenticator specifiers resolve through the
// Builder's registries. Media type and extension registrations apply to the
// serialization registry last, so a configuration that fails to compile
// never mutates shared registries.
func (b *Builder) Build(cfg Config) (*Runtime, error) {
	if len(cfg.Trees) == 0 {
		return nil, ErrNoTrees
	}
	root, err := b.assembleRoot(cfg.Trees)
	if err != nil {
		return nil, err
	}
	var server Server
	if cfg.Server != nil {
		server = *cfg.Server
	}
	rt := &Runtime{
		Root:          root,
		SessionMaxAge: DefaultSessionMaxAge,
		AllowOrigins:  cfg.AllowOrigins,
		Server:        server.WithDefaults(),
		Serialization: b.serialization,
		Queries:       b.queries,
		Compression:   b.compression,
	}
	if a := cfg.Authentication; a != nil {
		rt.AllowAnonymous = a.AllowAnonymousAccess
		rt.SecretKey = a.SecretKey
		if a.AccessTokenMaxAge > 0 {
			rt.SessionMaxAge = time.Duration(a.AccessTokenMaxAge) * time.Second
		}
		if a.Authenticator != "" {
			factory, err := b.authenticators.Lookup(a.Authenticator)
			if err != nil {
				return nil, fmt.Errorf("%w: authenticator %q", ErrUnknownSpecifier, a.Authenticator)
			}
			authn, err := factory(a.Args)
			if err != nil {
				return nil, fmt.Errorf("constructing authenticator %q: %w", a.Authenticator, err)
			}
			rt.Authenticator = authn
		}
	}
	if err := b.applyRegistrations(cfg); err != nil {
		return nil, err
	}
	return rt, nil
}

func (b *Builder) constructTree(spec TreeSpec) (entry.Entry, error) {
	factory, err := b.trees.Lookup(spec.Tree)
	if err != nil {
		return nil, fmt.Errorf("%w: tree %q", ErrUnknownSpecifier, spec.Tree)
	}
	tree, err := factory(spec.Args)
	if err != nil {
		return nil, fmt.Errorf("constructing tree %q: %w", spec.Tree, err)
	}
	return tree, nil
}

// assembleRoot constructs every tree and arranges them by mount path. A
// single tree at / serves as the root directly; any other arrangement gets
// a synthetic in-memory root mirroring the mount paths.
func (b *Builder) assembleRoot(specs []TreeSpec) (entry.Entry, error) {
	type mount struct {
		path     string
		segments []string
		tree     entry.Entry
	}
	mounts := make([]mount, 0, len(specs))
	seen := map[string]bool{}
	for _, spec := range specs {
		segments := entry.SplitPath(spec.Path)
		normalized := "/" + strings.Join(segments, "/")
		if seen[normalized] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMount, normalized)
		}
		seen[normalized] = true
		tree, err := b.constructTree(spec)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, mount{path: normalized, segments: segments, tree: tree})
	}
	if len(mounts) == 1 && len(mounts[0].segments) == 0 {
		return mounts[0].tree, nil
	}
	root := newMountNode()
	for _, m := range mounts {
		if len(m.segments) == 0 {
			return nil, fmt.Errorf("%w: a tree mounted at / must be the only mount", ErrDuplicateMount)
		}
		if err := root.insert(m.path, m.segments, m.tree); err != nil {
			return nil, err
		}
	}
	return root.build()
}

// applyRegistrations adds configured media types and extension aliases to
// the serialization registry.
func (b *Builder) applyRegistrations(cfg Config) error {
	for family, values := range cfg.MediaTypes {
		for mediaType, specifier := range values {
			fn, err := b.resolveEncoder(specifier)
			if err != nil {
				return err
			}
			b.serialization.Register(family, mediaType, fn)
		}
	}
	for ext, mediaType := range cfg.FileExtensions {
		aliased := false
		for _, family := range []string{codec.FamilyArray, codec.FamilyDataFrame} {
			if _, err := b.serialization.Lookup(family, mediaType); err == nil {
				b.serialization.RegisterAlias(family, ext, mediaType)
				aliased = true
			}
		}
		if !aliased {
			return fmt.Errorf("%w: file extension %q maps to unregistered media type %q", ErrUnknownSpecifier, ext, mediaType)
		}
	}
	return nil
}

// resolveEncoder maps a media_types value to an encoder. Names registered
// through RegisterEncoder win; otherwise "family/media-type" references an
// encoder already present in the serialization registry.
func (b *Builder) resolveEncoder(specifier string) (codec.EncoderFunc, error) {
	if fn, err := b.encoders.Lookup(specifier); err == nil {
		return fn, nil
	}
	if family, mediaType, ok := strings.Cut(specifier, "/"); ok {
		if fn, err := b.serialization.Lookup(family, mediaType); err == nil {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: encoder %q", ErrUnknownSpecifier, specifier)
}

// mountNode is one level of the synthetic root built when trees mount below
// the top level. Keys preserve the order mounts were declared.
type mountNode struct {
	keys     []string
	children map[string]*mountNode
	leaves   map[string]entry.Entry
}

func newMountNode() *mountNode {
	return &mountNode{
		children: map[string]*mountNode{},
		leaves:   map[string]entry.Entry{},
	}
}

func (n *mountNode) insert(path string, segments []string, tree entry.Entry) error {
	node := n
	for i, segment := range segments {
		if _, taken := node.leaves[segment]; taken {
			return fmt.Errorf("%w: %s is inside another mounted tree", ErrDuplicateMount, path)
		}
		if i == len(segments)-1 {
			if _, taken := node.children[segment]; taken {
				return fmt.Errorf("%w: %s contains other mounts", ErrDuplicateMount, path)
			}
			node.leaves[segment] = tree
			node.keys = append(node.keys, segment)
			return nil
		}
		child, ok := node.children[segment]
		if !ok {
			child = newMountNode()
			node.children[segment] = child
			node.keys = append(node.keys, segment)
		}
		node = child
	}
	return nil
}

func (n *mountNode) build() (entry.Entry, error) {
	items := make([]entry.Item, 0, len(n.keys))
	for _, key := range n.keys {
		if tree, ok := n.leaves[key]; ok {
			items = append(items, entry.Item{Key: key, Entry: tree})
			continue
		}
		child, err := n.children[key].build()
		if err != nil {
			return nil, err
		}
		items = append(items, entry.Item{Key: key, Entry: child})
	}
	return inmem.New(items)
}

// filesTree serves a directory of data files. Args: directory (required),
// ignore (list of glob patterns), metadata (mapping).
func filesTree(args map[string]any) (entry.Entry, error) {
	directory, _ := args["directory"].(string)
	if directory == "" {
		return nil, errors.New("files tree requires a directory argument")
	}
	var opts []files.Option
	if raw, ok := args["ignore"].([]any); ok {
		patterns := make([]string, 0, len(raw))
		for _, p := range raw {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("ignore pattern %v is not a string", p)
			}
			patterns = append(patterns, s)
		}
		opts = append(opts, files.WithIgnore(patterns...))
	}
	if metadata, ok := args["metadata"].(map[string]any); ok {
		opts = append(opts, files.WithMetadata(metadata))
	}
	return files.New(directory, opts...)
}
