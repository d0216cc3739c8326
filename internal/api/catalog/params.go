package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/canopy-data/canopy/pkg/paginate"
	"github.com/canopy-data/canopy/pkg/resource"
	"github.com/canopy-data/canopy/pkg/structure"
)

// parseFields reads the repeatable fields parameter. No parameter selects
// every field; an empty value selects none, so callers can list bare keys.
func parseFields(r *http.Request) (resource.Fields, error) {
	return resource.ParseFields(r.URL.Query()["fields"])
}

// parsePage reads page[offset] and page[limit], applying the defaults of 0
// and the standard page size. Negative values are client errors.
func parsePage(r *http.Request) (int, int, error) {
	q := r.URL.Query()

	offset := 0
	if raw := q.Get("page[offset]"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("page[offset] must be an integer")
		}
		offset = parsed
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("page[offset] must not be negative")
	}

	limit := paginate.DefaultLimit
	if raw := q.Get("page[limit]"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("page[limit] must be an integer")
		}
		limit = parsed
	}
	if limit < 0 {
		return 0, 0, fmt.Errorf("page[limit] must not be negative")
	}

	return offset, limit, nil
}

// parseBlock reads the required block parameter of the array block route.
func parseBlock(r *http.Request) ([]int, error) {
	raw := r.URL.Query().Get("block")
	if raw == "" {
		return nil, fmt.Errorf("block parameter is required")
	}
	block, err := structure.ParseBlock(raw)
	if err != nil {
		return nil, err
	}
	return block, nil
}

// parseSlice reads the optional slice parameter of the array routes.
func parseSlice(r *http.Request) ([]structure.Slice, error) {
	raw := r.URL.Query().Get("slice")
	if raw == "" {
		return nil, nil
	}
	return structure.ParseSlices(raw)
}
