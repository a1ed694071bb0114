package analyzer

// Layer weights and decision thresholds for the combined score.
const (
	WeightSearch  = 0.4
	WeightGraph   = 0.3
	WeightContent = 0.3

	AcceptThreshold   = 5.0
	GrayZoneThreshold = 2.0
)

// Decisions reported in evaluation exports.
const (
	DecisionAccept   = "accept"
	DecisionGrayZone = "gray_zone"
	DecisionReject   = "reject"
)

// FinalScore combines the layers. The graph layer is search plus link score.
func FinalScore(search, link, content float64) float64 {
	graph := search + link
	return search*WeightSearch + graph*WeightGraph + content*WeightContent
}

// Decide maps a final score to a decision.
func Decide(final float64) string {
	switch {
	case final >= AcceptThreshold:
		return DecisionAccept
	case final >= GrayZoneThreshold:
		return DecisionGrayZone
	default:
		return DecisionReject
	}
}
