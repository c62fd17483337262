package navigation

import (
	"net/url"
	"strings"
)

// AppReference is a parsed launchable application reference.
type AppReference struct {
	Scheme             string
	Package            string
	Action             string
	BrowserFallbackURL string
	// DataURL is the reference rewritten onto its target scheme, e.g.
	// intent://scan/#Intent;scheme=zxing;end becomes zxing://scan/.
	DataURL string
}

// ParseIntent parses an intent:// URI of the form
// intent://host/path#Intent;scheme=s;package=p;S.browser_fallback_url=u;end.
func ParseIntent(rawURL string) (AppReference, error) {
	if !strings.HasPrefix(strings.ToLower(rawURL), "intent:") {
		return AppReference{}, newError(CodeMalformedURI, "not an intent reference", nil)
	}
	hash := strings.Index(rawURL, "#Intent;")
	if hash < 0 {
		return AppReference{}, newError(CodeMalformedURI, "intent reference missing #Intent fragment", nil)
	}

	var ref AppReference
	for _, part := range strings.Split(rawURL[hash+len("#Intent;"):], ";") {
		if part == "end" {
			break
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "scheme":
			ref.Scheme = value
		case "package":
			ref.Package = strings.TrimSpace(value)
		case "action":
			ref.Action = value
		case "S.browser_fallback_url":
			decoded, err := url.QueryUnescape(value)
			if err != nil {
				return AppReference{}, newError(CodeMalformedURI, "intent fallback url is not escaped correctly", err)
			}
			ref.BrowserFallbackURL = decoded
		}
	}

	body := rawURL[len("intent:"):hash]
	if ref.Scheme != "" && strings.HasPrefix(body, "//") {
		ref.DataURL = ref.Scheme + ":" + body
	}
	return ref, nil
}

// ParseAppReference parses any launchable reference. Intent URIs are decoded,
// other references must at least carry a scheme.
func ParseAppReference(rawURL string) (AppReference, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(strings.ToLower(rawURL), "intent:") {
		return ParseIntent(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return AppReference{}, newError(CodeMalformedURI, "unparseable reference", err)
	}
	if u.Scheme == "" {
		return AppReference{}, newError(CodeMalformedURI, "reference has no scheme", nil)
	}
	ref := AppReference{Scheme: strings.ToLower(u.Scheme), DataURL: rawURL}
	if u.Scheme == "market" {
		ref.Package = strings.TrimSpace(u.Query().Get("id"))
	}
	return ref, nil
}
