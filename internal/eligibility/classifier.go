package eligibility

import "strings"

// Tier orders outcomes for styling. Higher is better; NotEligible is zero.
type Tier int

const (
	TierNone Tier = iota
	TierEntry
	TierMid
	TierTop
)

func (t Tier) String() string {
	switch t {
	case TierTop:
		return "top"
	case TierMid:
		return "mid"
	case TierEntry:
		return "entry"
	default:
		return "none"
	}
}

// Display carries the tier-specific text printed on a certificate.
type Display struct {
	Title    string
	Verdict  string
	Position string
	Venue    string
	Stamp    []string
}

// Outcome is one of TierA, TierB, TierC or NotEligible.
type Outcome interface {
	Label() string
	Message() string
	Tier() Tier
	Display() Display
	Eligible() bool

	outcome()
}

const venue = "at Vishal Mega Mart, Dmart & More!"

type TierA struct{}

func (TierA) Label() string { return "Tier A" }
func (TierA) Message() string {
	return "Outstanding marks. You may now say \"Bill hai?\" at the main entrance."
}
func (TierA) Tier() Tier     { return TierTop }
func (TierA) Eligible() bool { return true }
func (TierA) Display() Display {
	return Display{
		Title:    "Official Certificate",
		Verdict:  "ELIGIBLE",
		Position: "Head Security Guard",
		Venue:    venue,
		Stamp:    []string{"100% APPROVED", "HEAD GUARD", "MATERIAL"},
	}
}
func (TierA) outcome() {}

type TierB struct{}

func (TierB) Label() string { return "Tier B" }
func (TierB) Message() string {
	return "Solid marks. You have been assigned the bag-check counter."
}
func (TierB) Tier() Tier     { return TierMid }
func (TierB) Eligible() bool { return true }
func (TierB) Display() Display {
	return Display{
		Title:    "Official Certificate",
		Verdict:  "ELIGIBLE",
		Position: "Security Guard",
		Venue:    venue,
		Stamp:    []string{"100% APPROVED", "SECURITY GUARD", "MATERIAL"},
	}
}
func (TierB) outcome() {}

type TierC struct{}

func (TierC) Label() string { return "Tier C" }
func (TierC) Message() string {
	return "Adequate marks. Please report to the parking lot with your whistle."
}
func (TierC) Tier() Tier     { return TierEntry }
func (TierC) Eligible() bool { return true }
func (TierC) Display() Display {
	return Display{
		Title:    "Official Certificate",
		Verdict:  "ELIGIBLE",
		Position: "Trainee Security Guard",
		Venue:    venue,
		Stamp:    []string{"APPROVED", "TRAINEE GUARD", "MATERIAL"},
	}
}
func (TierC) outcome() {}

type NotEligible struct{}

func (NotEligible) Label() string { return "Not Eligible" }
func (NotEligible) Message() string {
	return "Your marks are outside every band we recognise. The waiting list is long but friendly."
}
func (NotEligible) Tier() Tier     { return TierNone }
func (NotEligible) Eligible() bool { return false }
func (NotEligible) Display() Display {
	return Display{
		Title:    "Certificate of Participation",
		Verdict:  "NOT ELIGIBLE",
		Position: "Waitlisted Applicant",
		Venue:    venue,
		Stamp:    []string{"WAITLISTED", "TRY AGAIN", "NEXT YEAR"},
	}
}
func (NotEligible) outcome() {}

// Classify picks the outcome for a pair of percentages. Inputs are expected
// in [0,100]. Rules are checked in order and the first match wins, so a 65/65
// pair is Tier B even though it also sits in the Tier C band, and pairs such
// as 78/78 that fall between the Tier A and Tier B bands are NotEligible.
func Classify(tenth, twelfth float64) Outcome {
	switch {
	case tenth >= 80 && twelfth >= 80:
		return TierA{}
	case within(tenth, 65, 75) && within(twelfth, 65, 75):
		return TierB{}
	case within(tenth, 50, 65) && within(twelfth, 50, 65):
		return TierC{}
	default:
		return NotEligible{}
	}
}

func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// All lists every outcome from best to worst.
func All() []Outcome {
	return []Outcome{TierA{}, TierB{}, TierC{}, NotEligible{}}
}

// ByLabel looks an outcome up by its label, ignoring case and surrounding space.
func ByLabel(label string) (Outcome, bool) {
	label = strings.TrimSpace(label)
	for _, o := range All() {
		if strings.EqualFold(o.Label(), label) {
			return o, true
		}
	}
	return nil, false
}
