package navigation

import (
	"net/url"
	"strings"
)

// SameDomain reports whether a and b point at the same host, ignoring case,
// a port, and a leading "www." alias. Unparseable input and empty hosts are
// never the same domain.
func SameDomain(a, b string) bool {
	hostA, ok := normalizedHost(a)
	if !ok {
		return false
	}
	hostB, ok := normalizedHost(b)
	if !ok {
		return false
	}
	return hostA == hostB
}

func normalizedHost(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	return host, true
}
