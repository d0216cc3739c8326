package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/canopy-data/canopy/pkg/entry"
)

const filterPrefix = "filter___"

// filterParam captures the query name and field name from a filter parameter
// key such as "filter___fulltext___text". Field names are identifiers, never
// starting with a digit.
var filterParam = regexp.MustCompile(`^filter___(?P<name>.*)___(?P<field>[A-Za-z_]\w*)$`)

// ParseFilters extracts typed queries from a raw query string. Filter
// parameters follow the form filter___<name>___<field>=<value>; values for
// the same name are collected into one constructor call, and distinct names
// produce queries in the order their first parameter appears. Parameters with
// empty values are skipped, as are parameters outside the filter namespace.
// A filter-prefixed key that does not fit the form is a client error.
func ParseFilters(rawQuery string, reg *Registry) ([]entry.Query, error) {
	type group struct {
		name   string
		fields map[string]string
	}
	var groups []group
	position := make(map[string]int)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable parameter %q", ErrInvalidArgs, rawKey)
		}
		if !strings.HasPrefix(key, filterPrefix) {
			continue
		}
		match := filterParam.FindStringSubmatch(key)
		if match == nil {
			return nil, fmt.Errorf("%w: unrecognized filter parameter %q", ErrInvalidArgs, key)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable value for %q", ErrInvalidArgs, key)
		}
		if value == "" {
			continue
		}
		name, field := match[1], match[2]
		i, seen := position[name]
		if !seen {
			i = len(groups)
			position[name] = i
			groups = append(groups, group{name: name, fields: make(map[string]string)})
		}
		groups[i].fields[field] = value
	}

	queries := make([]entry.Query, 0, len(groups))
	for _, g := range groups {
		ctor, err := reg.Lookup(g.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownQuery, g.name)
		}
		q, err := ctor(g.fields)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}
