package analyzer

import "sort"

// Signal is a named positive pattern (RE2 syntax, matched against lowercase text).
type Signal struct {
	Name    string
	Pattern string
}

// Tables hold the content heuristics. Phrases are plain lowercase strings.
// Labels score like Medium signals but never make a page a candidate on
// their own; they feed DetectLabel.
type Tables struct {
	High           []Signal
	Medium         []Signal
	Labels         []Signal
	ContextTerms   []string
	StrongNegative []string
	WeakNegative   []string
	Recovery       []string
}

// SignalsFromMap turns a config table of name to pattern into signals
// ordered by name.
func SignalsFromMap(table map[string]string) []Signal {
	signals := make([]Signal, 0, len(table))
	for name, pattern := range table {
		signals = append(signals, Signal{Name: name, Pattern: pattern})
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].Name < signals[j].Name })
	return signals
}

// DefaultTables returns the built-in heuristics.
func DefaultTables() Tables {
	return Tables{
		High: []Signal{
			{"call for reviewers", `call for (?:external |emergency |ethics )?reviewers`},
			{"call for committee members", `call for (?:pc|program committee|programme committee|committee|area chair|artifact evaluation committee|aec|shadow pc|junior pc)(?: members?| nominations?)?`},
			{"self-nomination", `self[- ]?nominat(?:ion|ions|e|ed)`},
			{"nominate yourself", `nominate (?:yourself|themselves|a colleague)`},
			{"volunteer to review", `volunteer (?:to (?:review|serve)|as an? (?:reviewer|pc member|area chair))`},
			{"reviewer recruitment", `reviewer (?:recruitment|nominations?|sign-?up|application|registration|volunteer) (?:form|page|call)?`},
			{"join the committee", `(?:join|serve on) the (?:program|programme|artifact evaluation|shadow|junior)? ?(?:program )?committee`},
			{"become a reviewer", `(?:become|apply to be|sign up (?:to be|as)) an? (?:reviewer|pc member|area chair)`},
			{"interested in reviewing", `interested in (?:reviewing|serving as an? (?:reviewer|pc member|area chair))`},
		},
		Medium: []Signal{
			{"reviewer", `\breviewers?\b`},
			{"program committee", `\bprogramm?e? committee\b`},
			{"pc member", `\bpc members?\b`},
			{"area chair", `\b(?:senior )?area chairs?\b`},
			{"senior program committee", `\bsenior program committee\b|\bspc\b`},
			{"artifact evaluation", `\bartifact evaluation\b|\baec\b`},
			{"shadow pc", `\bshadow (?:pc|program committee)\b`},
			{"junior pc", `\bjunior (?:pc|program committee)\b`},
			{"external reviewer", `\bexternal reviewers?\b`},
			{"emergency reviewer", `\bemergency reviewers?\b`},
		},
		Labels: []Signal{
			{"workshop", `\bworkshops?\b`},
			{"industry track", `\bindustr(?:y|ial) track\b`},
		},
		ContextTerms: []string{
			"apply", "application", "nominate", "nomination", "volunteer", "interested",
			"sign up", "signup", "form", "recruit", "invite", "join", "deadline", "register",
		},
		StrongNegative: []string{
			"code of conduct",
			"visa invitation letter",
			"visa application",
			"travel grant",
			"student volunteers",
			"camera-ready",
			"camera ready",
			"accepted papers",
			"registration fee",
			"please log in",
			"reviewer guidelines",
			"reviewing guidelines",
			"instructions for reviewers",
		},
		WeakNegative: []string{
			"call for papers",
			"paper submission",
			"submission deadline",
			"keynote speakers",
			"accommodation",
			"sponsorship",
		},
		Recovery: []string{
			"call for reviewers",
			"self-nomination",
			"self nomination",
			"nominate yourself",
			"volunteer to review",
			"reviewer nomination",
			"reviewer recruitment",
			"interested in reviewing",
			"apply to be a reviewer",
			"sign up to review",
			"join the program committee",
			"join the programme committee",
		},
	}
}
