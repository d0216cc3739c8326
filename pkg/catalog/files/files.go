// Package files serves a directory hierarchy as a catalog. Files become
// reader entries according to their extension, subdirectories become nested
// catalogs, and a filesystem watcher keeps the listing current while the
// server runs. Materialized readers are held in an expiring cache so repeated
// reads do not reparse unchanged files.
package files

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	gocache "github.com/patrickmn/go-cache"

	"github.com/canopy-data/canopy/pkg/catalog/inmem"
	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/logger"
)

// DefaultCacheTTL bounds how long a materialized reader is served before the
// backing file is reparsed. Edits are usually invalidated sooner by the
// watcher; the TTL covers changes the watcher never sees, such as edits made
// before the server started watching a recreated directory.
const DefaultCacheTTL = 5 * time.Minute

// Option configures a Tree during construction.
type Option func(*options)

type options struct {
	metadata map[string]any
	policy   inmem.AccessPolicy
	readers  map[string]ReaderFactory
	ignore   []string
	cacheTTL time.Duration
}

// WithMetadata attaches a metadata mapping to the root catalog.
func WithMetadata(metadata map[string]any) Option {
	return func(o *options) {
		o.metadata = metadata
	}
}

// WithAccessPolicy installs the policy consulted by ScopedTo. The policy
// filters top-level keys only, like its in-memory counterpart.
func WithAccessPolicy(policy inmem.AccessPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithReader maps a file extension, such as ".csv", to a reader factory,
// replacing any default registration for that extension.
func WithReader(ext string, factory ReaderFactory) Option {
	return func(o *options) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o.readers[strings.ToLower(ext)] = factory
	}
}

// WithIgnore skips files and directories whose base name matches any of the
// glob patterns.
func WithIgnore(patterns ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, patterns...)
	}
}

// WithCacheTTL overrides DefaultCacheTTL. Zero disables expiration.
func WithCacheTTL(d time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = d
	}
}

// node is one directory's listing. names stays sorted so iteration order is
// stable regardless of the order the watcher delivered changes.
type node struct {
	names []string
	dirs  map[string]bool
}

func newNode() *node {
	return &node{dirs: make(map[string]bool)}
}

// state is the index shared by every view of one directory hierarchy. Paths
// are slash-separated and relative to root, with "" naming the root itself.
type state struct {
	mu      sync.RWMutex
	root    string
	readers map[string]ReaderFactory
	ignore  []glob.Glob
	nodes   map[string]*node
	cache   *gocache.Cache
	watcher *fsnotify.Watcher
}

// Tree is a catalog view of one directory in the hierarchy. Views share the
// watched index, so a Tree is safe for concurrent readers.
type Tree struct {
	state     *state
	dir       string
	keys      []string
	metadata  map[string]any
	policy    inmem.AccessPolicy
	principal string
}

// New scans directory, starts watching it for changes, and returns a catalog
// rooted there. Close the returned tree to stop the watcher.
func New(directory string, opts ...Option) (*Tree, error) {
	o := &options{readers: DefaultReaders(), cacheTTL: DefaultCacheTTL}
	for _, opt := range opts {
		opt(o)
	}

	root, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", directory)
	}

	ignore := make([]glob.Glob, 0, len(o.ignore))
	for _, pattern := range o.ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignore = append(ignore, g)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting directory watcher: %w", err)
	}

	s := &state{
		root:    root,
		readers: o.readers,
		ignore:  ignore,
		nodes:   map[string]*node{"": newNode()},
		cache:   gocache.New(o.cacheTTL, 2*o.cacheTTL),
		watcher: watcher,
	}
	if err := s.scan(""); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	go s.watch()

	metadata := o.metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Tree{state: s, metadata: metadata, policy: o.policy}, nil
}

// Close stops the filesystem watcher. The tree remains readable but no
// longer tracks directory changes.
func (t *Tree) Close() error {
	return t.state.watcher.Close()
}

// Directory returns the absolute path of the watched root.
func (t *Tree) Directory() string {
	return t.state.root
}

// Metadata returns the catalog's metadata mapping. Subdirectory catalogs
// have empty metadata.
func (t *Tree) Metadata() map[string]any {
	return t.metadata
}

// Get returns the child stored under key: a nested Tree for a subdirectory
// or a materialized reader for a file.
func (t *Tree) Get(_ context.Context, key string) (entry.Entry, error) {
	if t.keys != nil && !slices.Contains(t.keys, key) {
		return nil, fmt.Errorf("%w: %s", entry.ErrNoSuchEntry, key)
	}
	isDir, ok := t.state.child(t.dir, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entry.ErrNoSuchEntry, key)
	}
	if isDir {
		return &Tree{
			state:     t.state,
			dir:       path.Join(t.dir, key),
			metadata:  map[string]any{},
			principal: t.principal,
		}, nil
	}
	return t.state.materialize(path.Join(t.dir, key))
}

// Keys returns child names in sorted order, starting at offset. A negative
// limit means all remaining keys.
func (t *Tree) Keys(_ context.Context, offset, limit int) ([]string, error) {
	return entry.PageSlice(t.listKeys(), offset, limit), nil
}

// Items returns (key, entry) pairs in sorted order, materializing each file
// through the reader cache. A negative limit means all remaining items.
func (t *Tree) Items(ctx context.Context, offset, limit int) ([]entry.Item, error) {
	keys := entry.PageSlice(t.listKeys(), offset, limit)
	items := make([]entry.Item, 0, len(keys))
	for _, key := range keys {
		e, err := t.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		items = append(items, entry.Item{Key: key, Entry: e})
	}
	return items, nil
}

// Len returns the number of children.
func (t *Tree) Len(context.Context) (int, error) {
	return len(t.listKeys()), nil
}

// Search materializes the current listing as an in-memory tree and delegates
// to its translator dispatch, so directory catalogs answer the same query
// kinds as in-memory ones.
func (t *Tree) Search(ctx context.Context, q entry.Query) (entry.Catalog, error) {
	snap, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Search(ctx, q)
}

// ScopedTo returns the view of the tree that principal may see, applying the
// access policy if one is installed.
func (t *Tree) ScopedTo(principal string) entry.Catalog {
	scoped := *t
	scoped.principal = principal
	if t.policy != nil {
		scoped.keys = t.policy.FilterKeys(principal, t.listKeys())
	}
	return &scoped
}

// Principal returns the identity this view is scoped to, or the empty string
// for an unscoped tree.
func (t *Tree) Principal() string {
	return t.principal
}

func (t *Tree) listKeys() []string {
	if t.keys != nil {
		return t.keys
	}
	return t.state.names(t.dir)
}

func (t *Tree) snapshot(ctx context.Context) (entry.Catalog, error) {
	keys := t.listKeys()
	items := make([]entry.Item, 0, len(keys))
	for _, key := range keys {
		e, err := t.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		items = append(items, entry.Item{Key: key, Entry: e})
	}
	opts := []inmem.Option{inmem.WithMetadata(t.metadata)}
	if t.policy != nil {
		opts = append(opts, inmem.WithAccessPolicy(t.policy))
	}
	snap, err := inmem.New(items, opts...)
	if err != nil {
		return nil, err
	}
	if t.principal != "" {
		return snap.ScopedTo(t.principal), nil
	}
	return snap, nil
}

// scan indexes dir and its subdirectories, registering each directory with
// the watcher before listing it so changes during the walk are not missed;
// duplicate notifications are absorbed by idempotent inserts.
func (s *state) scan(dir string) error {
	abs := filepath.Join(s.root, filepath.FromSlash(dir))
	if err := s.watcher.Add(abs); err != nil {
		return fmt.Errorf("watching %s: %w", abs, err)
	}
	listing, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", abs, err)
	}
	for _, de := range listing {
		name := de.Name()
		if s.skip(name, de.IsDir()) {
			continue
		}
		s.insert(dir, name, de.IsDir())
		if de.IsDir() {
			if err := s.scan(path.Join(dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// skip reports whether a directory entry is excluded from the catalog:
// hidden names, names matching an ignore pattern, and files with no
// registered reader.
func (s *state) skip(name string, isDir bool) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, g := range s.ignore {
		if g.Match(name) {
			return true
		}
	}
	if !isDir {
		if _, ok := s.readers[strings.ToLower(path.Ext(name))]; !ok {
			logger.Debug("skipping file with no registered reader", "name", name)
			return true
		}
	}
	return false
}

func (s *state) insert(dir, name string, isDir bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[dir]
	if !ok {
		return
	}
	pos, found := slices.BinarySearch(n.names, name)
	if !found {
		n.names = slices.Insert(n.names, pos, name)
	}
	if isDir {
		n.dirs[name] = true
		child := path.Join(dir, name)
		if _, ok := s.nodes[child]; !ok {
			s.nodes[child] = newNode()
		}
	}
}

func (s *state) remove(dir, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[dir]
	if !ok {
		return
	}
	pos, found := slices.BinarySearch(n.names, name)
	if !found {
		return
	}
	n.names = slices.Delete(n.names, pos, pos+1)
	rel := path.Join(dir, name)
	if n.dirs[name] {
		delete(n.dirs, name)
		for p := range s.nodes {
			if p == rel || strings.HasPrefix(p, rel+"/") {
				delete(s.nodes, p)
			}
		}
		for key := range s.cache.Items() {
			if strings.HasPrefix(key, rel+"/") {
				s.cache.Delete(key)
			}
		}
	}
	s.cache.Delete(rel)
}

func (s *state) names(dir string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[dir]
	if !ok {
		return nil
	}
	return slices.Clone(n.names)
}

func (s *state) child(dir, name string) (isDir, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, found := s.nodes[dir]
	if !found {
		return false, false
	}
	if _, present := slices.BinarySearch(n.names, name); !present {
		return false, false
	}
	return n.dirs[name], true
}

// materialize returns the reader entry for a file, parsing it through the
// registered factory on cache miss.
func (s *state) materialize(rel string) (entry.Entry, error) {
	if cached, found := s.cache.Get(rel); found {
		if e, ok := cached.(entry.Entry); ok {
			return e, nil
		}
	}
	factory, ok := s.readers[strings.ToLower(path.Ext(rel))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entry.ErrNoSuchEntry, rel)
	}
	e, err := factory(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	s.cache.Set(rel, e, gocache.DefaultExpiration)
	return e, nil
}
