package inmem

import "slices"

// Principals with special meaning to access policies.
const (
	// PrincipalPublic is the identity of unauthenticated requests.
	PrincipalPublic = "public"
	// PrincipalAdmin sees every entry under any policy.
	PrincipalAdmin = "admin"
)

// All in an access list grants a principal every key.
const All = "*"

// AccessPolicy decides which keys of a tree a principal may see.
type AccessPolicy interface {
	// FilterKeys returns the allowed subset of keys, preserving their order.
	FilterKeys(principal string, keys []string) []string
}

// DummyAccessPolicy imposes no restrictions.
type DummyAccessPolicy struct{}

// FilterKeys returns keys unchanged.
func (DummyAccessPolicy) FilterKeys(_ string, keys []string) []string {
	return keys
}

// SimpleAccessPolicy grants each principal the keys named in its access
// list. A list containing All grants everything, as does the admin
// principal. Principals without a list see nothing.
type SimpleAccessPolicy struct {
	AccessLists map[string][]string
}

// FilterKeys returns the keys principal is granted, in tree order.
func (p SimpleAccessPolicy) FilterKeys(principal string, keys []string) []string {
	allowed := p.AccessLists[principal]
	if principal == PrincipalAdmin || slices.Contains(allowed, All) {
		return keys
	}
	granted := make(map[string]bool, len(allowed))
	for _, key := range allowed {
		granted[key] = true
	}
	var out []string
	for _, key := range keys {
		if granted[key] {
			out = append(out, key)
		}
	}
	return out
}
