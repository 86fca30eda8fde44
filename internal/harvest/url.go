package harvest

import (
	"net/url"
	"strings"
)

// Scope canonicalizes candidate URLs and decides which ones are worth a
// fetch. Canonical form is scheme+host+path; query and fragment never
// participate in identity.
type Scope struct {
	host        string
	deny        map[string]struct{}
	minSegments int
}

// NewScope builds a Scope for the target host. denyPrefixes lists first path
// segments that are known non-item surfaces (search, help, category indexes).
func NewScope(host string, denyPrefixes []string) *Scope {
	deny := make(map[string]struct{}, len(denyPrefixes))
	for _, p := range denyPrefixes {
		p = strings.ToLower(strings.Trim(strings.TrimSpace(p), "/"))
		if p != "" {
			deny[p] = struct{}{}
		}
	}
	return &Scope{
		host:        normalizeHost(host),
		deny:        deny,
		minSegments: 2,
	}
}

// Canonicalize resolves raw against base (when non-nil), strips query and
// fragment, and returns the canonical form. The second return is false when
// the input cannot be parsed even after truncating at the first '?'.
func (s *Scope) Canonicalize(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			u, err = url.Parse(raw[:i])
		}
		if err != nil || u == nil {
			return "", false
		}
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	if u.Scheme == "" || u.Host == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String(), true
}

// InScopeItem reports whether a canonical URL looks like an item detail page
// on the target host. It is deliberately conservative: anything on a denied
// first segment or shallower than the minimum path depth is excluded.
func (s *Scope) InScopeItem(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if normalizeHost(u.Hostname()) != s.host {
		return false
	}
	segments := pathSegments(u.Path)
	if len(segments) < s.minSegments {
		return false
	}
	_, denied := s.deny[strings.ToLower(segments[0])]
	return !denied
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

func pathSegments(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
