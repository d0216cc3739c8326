// Package paginate computes navigation links for offset/limit pages. It is a
// pure function from counts to links and never touches the data being paged,
// so the length hint may be exact or approximate.
package paginate

import "fmt"

// DefaultLimit is the page size used when a request does not set one.
const DefaultLimit = 10

// Links is the navigation link set for one page. Self is always present;
// the others are empty when they do not apply and are omitted on the wire.
type Links struct {
	Self  string `json:"self"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// NewLinks computes the link set for the page at offset with the given limit,
// against a catalog of lengthHint entries reachable at route+path. A limit of
// zero means no limit: first and last are omitted rather than guessed.
func NewLinks(route, path string, offset, limit, lengthHint int) Links {
	at := func(offset int) string {
		return fmt.Sprintf("%s%s?page[offset]=%d&page[limit]=%d", route, path, offset, limit)
	}
	links := Links{Self: at(offset)}
	if limit > 0 {
		links.First = at(0)
		links.Last = at(lengthHint / limit * limit)
	}
	if offset+limit < lengthHint {
		links.Next = at(offset + limit)
	}
	if offset > 0 {
		links.Prev = at(max(0, offset-limit))
	}
	return links
}
