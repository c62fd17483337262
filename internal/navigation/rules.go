package navigation

import (
	"net/url"
	"strings"
)

const playStoreDetailsURL = "https://play.google.com/store/apps/details?id="

// Category orders rules inside a RuleTable. Lower categories are evaluated
// first.
type Category int

const (
	// CategoryScheme covers explicit launch schemes and download suffixes.
	CategoryScheme Category = iota
	// CategoryVendor covers vendor keyword fragments found anywhere in a URL.
	CategoryVendor
	// CategoryEmbeddedPackage covers non-HTTP references that carry a package id.
	CategoryEmbeddedPackage
)

func (c Category) String() string {
	switch c {
	case CategoryScheme:
		return "scheme"
	case CategoryVendor:
		return "vendor"
	case CategoryEmbeddedPackage:
		return "embedded_package"
	default:
		return "unknown"
	}
}

// VendorRule maps matching URLs to a native application and a store fallback.
// When Resolve is set it derives the package and fallback from the URL and
// the static fields are ignored.
type VendorRule struct {
	Name             string
	Category         Category
	Match            func(rawURL string) bool
	PackageID        string
	FallbackStoreURL string
	Resolve          func(rawURL string) (packageID, fallbackStoreURL string)
}

// HandoffTarget is the result of a rule match.
type HandoffTarget struct {
	Rule             string `json:"rule"`
	PackageID        string `json:"package_id,omitempty"`
	FallbackStoreURL string `json:"fallback_store_url,omitempty"`
}

// RuleTable is an ordered, read-only list of vendor rules.
type RuleTable struct {
	rules []VendorRule
}

// KeywordRule builds a vendor rule that matches when any keyword occurs in
// the URL, compared case-insensitively. An empty store URL is synthesized
// from the package id.
func KeywordRule(name, packageID, storeURL string, keywords ...string) VendorRule {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if storeURL == "" && packageID != "" {
		storeURL = StoreURLForPackage(packageID)
	}
	return VendorRule{
		Name:     name,
		Category: CategoryVendor,
		Match: func(rawURL string) bool {
			lower := strings.ToLower(rawURL)
			for _, k := range lowered {
				if strings.Contains(lower, k) {
					return true
				}
			}
			return false
		},
		PackageID:        packageID,
		FallbackStoreURL: storeURL,
	}
}

// BuiltinVendorRules returns the vendor keyword rules shipped with the shell.
func BuiltinVendorRules() []VendorRule {
	return []VendorRule{
		KeywordRule("kakaomap", "net.daum.android.map", "", "kakaomap"),
		KeywordRule("kakaonavi", "com.locnall.KimGiSa", "", "kakaonavi"),
		KeywordRule("kakaotalk", "com.kakao.talk", "", "kakaolink", "kakaotalk"),
		KeywordRule("v3mobileplus", "com.ahnlab.v3mobileplus", "", "v3mobileplus", "ahnlab"),
	}
}

// NewRuleTable builds the full table: scheme rules, built-in vendor rules,
// then extra vendor rules, then the embedded-package fallback.
func NewRuleTable(extra ...VendorRule) *RuleTable {
	vendors := append(BuiltinVendorRules(), extra...)
	t := &RuleTable{}
	t.rules = append(t.rules,
		VendorRule{
			Name:     "intent",
			Category: CategoryScheme,
			Match:    hasSchemePrefix("intent:"),
			Resolve: func(rawURL string) (string, string) {
				return resolveIntent(rawURL, vendors)
			},
		},
		VendorRule{
			Name:     "market",
			Category: CategoryScheme,
			Match:    hasSchemePrefix("market:"),
			Resolve:  resolveStoreReference,
		},
		VendorRule{
			Name:     "apk_download",
			Category: CategoryScheme,
			Match:    isAPKDownload,
			Resolve: func(rawURL string) (string, string) {
				return "", rawURL
			},
		},
	)
	for _, v := range vendors {
		v.Category = CategoryVendor
		t.rules = append(t.rules, v)
	}
	t.rules = append(t.rules, VendorRule{
		Name:     "embedded_package",
		Category: CategoryEmbeddedPackage,
		Match: func(rawURL string) bool {
			return !isWebURL(rawURL) && embeddedPackage(rawURL) != ""
		},
		Resolve: func(rawURL string) (string, string) {
			pkg := embeddedPackage(rawURL)
			return pkg, StoreURLForPackage(pkg)
		},
	})
	return t
}

// Rules returns a copy of the ordered rule list.
func (t *RuleTable) Rules() []VendorRule {
	out := make([]VendorRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match evaluates the table top to bottom and returns the first hit.
func (t *RuleTable) Match(rawURL string) (HandoffTarget, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return HandoffTarget{}, false
	}
	for _, r := range t.rules {
		if r.Match == nil || !r.Match(rawURL) {
			continue
		}
		target := HandoffTarget{Rule: r.Name, PackageID: r.PackageID, FallbackStoreURL: r.FallbackStoreURL}
		if r.Resolve != nil {
			target.PackageID, target.FallbackStoreURL = r.Resolve(rawURL)
		}
		return target, true
	}
	return HandoffTarget{}, false
}

// StoreURLForPackage returns the store details page for packageID.
func StoreURLForPackage(packageID string) string {
	if packageID == "" {
		return ""
	}
	return playStoreDetailsURL + url.QueryEscape(packageID)
}

func hasSchemePrefix(prefix string) func(string) bool {
	return func(rawURL string) bool {
		return strings.HasPrefix(strings.ToLower(rawURL), prefix)
	}
}

func isWebURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isAPKDownload(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(strings.ToLower(path), ".apk")
}

func resolveStoreReference(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	pkg := strings.TrimSpace(u.Query().Get("id"))
	return pkg, StoreURLForPackage(pkg)
}

// resolveIntent prefers the page-supplied browser fallback, then a vendor
// store page, then a store page synthesized from the package.
func resolveIntent(rawURL string, vendors []VendorRule) (string, string) {
	ref, err := ParseIntent(rawURL)
	if err != nil {
		return "", ""
	}
	if ref.BrowserFallbackURL != "" {
		return ref.Package, ref.BrowserFallbackURL
	}
	for _, v := range vendors {
		if v.Match != nil && v.Match(rawURL) && v.FallbackStoreURL != "" {
			return ref.Package, v.FallbackStoreURL
		}
	}
	return ref.Package, StoreURLForPackage(ref.Package)
}

// embeddedPackage extracts a package id from package= or id= parameters in
// either the query or an intent-style fragment.
func embeddedPackage(rawURL string) string {
	if ref, err := ParseIntent(rawURL); err == nil && ref.Package != "" {
		return ref.Package
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	if pkg := strings.TrimSpace(q.Get("package")); pkg != "" {
		return pkg
	}
	return strings.TrimSpace(q.Get("id"))
}
