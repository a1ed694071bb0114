package analyzer

import (
	"strings"
)

// Roles in guess priority order.
const (
	RoleEmergencyReviewer = "Emergency Reviewer"
	RoleExternalReviewer  = "External Reviewer"
	RoleSAC               = "SAC"
	RoleAC                = "AC"
	RoleSPC               = "SPC"
	RoleAEC               = "AEC"
	RolePC                = "PC"
	RoleReviewer          = "Reviewer"
)

// Labels for the track a call belongs to.
const (
	LabelWorkshop = "Workshop"
	LabelIndustry = "Industry"
	LabelShadow   = "Shadow/Junior"
	LabelMain     = "Main"
)

var roleGuesses = []struct {
	needles []string
	role    string
}{
	{[]string{"emergency reviewer", "emergency-reviewer"}, RoleEmergencyReviewer},
	{[]string{"external reviewer", "external-reviewer", "subreviewer"}, RoleExternalReviewer},
	{[]string{"senior area chair", "senior-area-chair", "/sac"}, RoleSAC},
	{[]string{"area chair", "area-chair", "meta-reviewer", "metareviewer"}, RoleAC},
	{[]string{"senior program committee", "senior-program-committee", "senior pc", "/spc"}, RoleSPC},
	{[]string{"artifact evaluation", "artifact-evaluation", "aec"}, RoleAEC},
	{[]string{"program committee", "programme committee", "program-committee", "pc member", "shadow pc", "junior pc", "/pc"}, RolePC},
}

// GuessRole infers the recruited role from matched signals and the page URL.
func GuessRole(signals []string, rawURL string) string {
	haystack := strings.ToLower(strings.Join(signals, " ") + " " + rawURL)
	for _, g := range roleGuesses {
		for _, needle := range g.needles {
			if strings.Contains(haystack, needle) {
				return g.role
			}
		}
	}
	return RoleReviewer
}

var (
	workshopURLHints = []string{"workshop", "-ws-", "github.io", "sites.google.com", "/workshops/"}
	industryHints    = []string{"industry", "industrial"}
	shadowHints      = []string{"shadow", "junior"}
)

// DetectLabel classifies the call's track from its URL and signals.
func DetectLabel(rawURL string, signals []string) string {
	u := strings.ToLower(rawURL)
	sig := strings.ToLower(strings.Join(signals, " "))
	switch {
	case containsAny(u, workshopURLHints) || strings.Contains(sig, "workshop"):
		return LabelWorkshop
	case containsAny(u, industryHints) || containsAny(sig, industryHints):
		return LabelIndustry
	case containsAny(u, shadowHints) || containsAny(sig, shadowHints):
		return LabelShadow
	default:
		return LabelMain
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
