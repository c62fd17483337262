package navigation

import "log/slog"

// Kind tags a Disposition.
type Kind int

const (
	LoadInPlace Kind = iota
	HandoffToApp
	OpenExternalBrowser
	SpawnPopup
)

func (k Kind) String() string {
	switch k {
	case LoadInPlace:
		return "load_in_place"
	case HandoffToApp:
		return "handoff_to_app"
	case OpenExternalBrowser:
		return "open_external_browser"
	case SpawnPopup:
		return "spawn_popup"
	default:
		return "unknown"
	}
}

// Request is a single intercepted load attempt.
type Request struct {
	SourceURL string `json:"source_url"`
	TargetURL string `json:"target_url"`
}

// Disposition is the classifier's verdict. Handoff is set only for
// HandoffToApp.
type Disposition struct {
	Kind    Kind
	Handoff HandoffTarget
}

// Classifier decides how a navigation attempt is handled.
type Classifier struct {
	rules *RuleTable
}

// NewClassifier returns a classifier over rules, or the built-in table when
// rules is nil.
func NewClassifier(rules *RuleTable) *Classifier {
	if rules == nil {
		rules = NewRuleTable()
	}
	return &Classifier{rules: rules}
}

// Classify checks the rule table before the domain so that non-HTTP
// references, which have no comparable host, keep their app payload.
func (c *Classifier) Classify(req Request) Disposition {
	if target, ok := c.rules.Match(req.TargetURL); ok {
		slog.Debug("navigation matched rule",
			"rule", target.Rule, "package_id", target.PackageID, "target", truncateURL(req.TargetURL))
		return Disposition{Kind: HandoffToApp, Handoff: target}
	}
	if SameDomain(req.SourceURL, req.TargetURL) {
		return Disposition{Kind: LoadInPlace}
	}
	return Disposition{Kind: OpenExternalBrowser}
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
