package entry

import (
	"context"
	"fmt"
	"strings"
)

// SplitPath breaks a /-delimited path into its segments, discarding empty
// segments so that leading, trailing, and doubled slashes are tolerated.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Resolve walks path from root, performing a keyed lookup per segment. It
// fails with ErrNoSuchEntry when a key is absent or when an intermediate node
// is not a catalog. The empty path resolves to root.
func Resolve(ctx context.Context, root Catalog, path string) (Entry, error) {
	var current Entry = root
	for _, segment := range SplitPath(path) {
		catalog, ok := current.(Catalog)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchEntry, path)
		}
		child, err := catalog.Get(ctx, segment)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchEntry, path)
		}
		current = child
	}
	return current, nil
}
