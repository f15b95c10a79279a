package normalize

import (
	"regexp"
	"strings"
)

// ============================================================================
// Canonical vocabulary
// ============================================================================

// Flag records whether a decision came from Greyamp or from the client
type Flag string

const (
	FlagNone    Flag = ""
	FlagGreyamp Flag = "Greyamp"
	FlagClient  Flag = "Client"
)

const (
	StatusScreening   = "Screening"
	StatusTechRound   = "Tech Round"
	StatusCodePairing = "Code Pairing"
	StatusInterview   = "Interview"
	StatusReview      = "Review"
	StatusSelected    = "Selected"
	StatusStaffed     = "Staffed"
	StatusOnHold      = "On Hold"
	StatusRejected    = "Rejected"
	StatusDropped     = "Dropped"
	StatusOnBoarded   = "On Boarded"
)

// StatusResult is the normalized (status, flag, drop reason) triple.
// An empty DropReason stands for "no reason".
type StatusResult struct {
	Status     string `json:"status"`
	Flag       Flag   `json:"status_flag,omitempty"`
	DropReason string `json:"drop_reason,omitempty"`
	Rule       string `json:"rule,omitempty"`
}

// Transformed reports whether the input produced a normalized value
func (r StatusResult) Transformed() bool {
	return r.Rule != ""
}

// ============================================================================
// Rule table
// ============================================================================

// StatusRule is one ordered entry of the normalization table
type StatusRule struct {
	Name  string
	Match func(s string) bool
	Apply func(s string, flag Flag) StatusResult
}

var (
	numericPrefix = regexp.MustCompile(`^\d+\s*-\s*`)
	ownerPrefix   = regexp.MustCompile(`^(GA|Client)\s*[-_]?\s*`)
)

func contains(phrases ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range phrases {
			if strings.Contains(s, p) {
				return true
			}
		}
		return false
	}
}

func fixed(status, reason string) func(string, Flag) StatusResult {
	return func(_ string, flag Flag) StatusResult {
		return StatusResult{Status: status, Flag: flag, DropReason: reason}
	}
}

// byFlag builds "GA <suffix>" or "Client <suffix>"
func byFlag(status, suffix string) func(string, Flag) StatusResult {
	return func(_ string, flag Flag) StatusResult {
		owner := "GA"
		if flag == FlagClient {
			owner = "Client"
		}
		return StatusResult{Status: status, Flag: flag, DropReason: owner + " " + suffix}
	}
}

// StatusRules is evaluated top to bottom; the first match wins.
// Drop reasons come before generic statuses and multi-word phrases before
// the single words they contain.
var StatusRules = []StatusRule{
	{Name: "candidate_rnr_dropped", Match: contains("Candidate RNR/Dropped"), Apply: fixed(StatusDropped, "Candidate RNR/Dropped")},
	{Name: "duplicate_profile", Match: contains("Duplicate Profile"), Apply: fixed(StatusDropped, "Duplicate Profile")},
	{Name: "internal_dropped", Match: contains("Internal Dropped"), Apply: fixed(StatusDropped, "Internal Dropped")},
	{Name: "requirement_on_hold", Match: contains("Requirement on hold"), Apply: fixed(StatusOnHold, "Requirement on hold")},
	{Name: "on_hold", Match: contains("On Hold", "On hold"), Apply: byFlag(StatusOnHold, "On Hold")},
	{Name: "screen_rejected", Match: contains("Screen Rejected"), Apply: fixed(StatusRejected, "Screen Rejected")},
	{
		Name: "interview_rejected",
		Match: func(s string) bool {
			return strings.Contains(s, "Interview Rejected") ||
				(strings.Contains(s, "Rejected") && strings.Contains(s, "Interview"))
		},
		Apply: byFlag(StatusRejected, "Interview Rejected"),
	},
	{Name: "rejected", Match: contains("Rejected"), Apply: byFlag(StatusRejected, "Rejected")},
	{Name: "code_pairing", Match: contains("Code Pairing"), Apply: fixed(StatusCodePairing, "")},
	{Name: "tech_round", Match: contains("Tech Round"), Apply: fixed(StatusTechRound, "")},
	{Name: "screening", Match: contains("Screening"), Apply: fixed(StatusScreening, "")},
	{
		Name:  "sent_to_client",
		Match: contains("Sent to client"),
		Apply: func(string, Flag) StatusResult {
			return StatusResult{Status: StatusScreening, Flag: FlagClient}
		},
	},
	{Name: "client_review", Match: contains("Client Review"), Apply: fixed(StatusReview, "")},
	{Name: "ga_interview", Match: contains("GA Interview"), Apply: fixed(StatusInterview, "")},
	{Name: "staffed", Match: contains("Staffed"), Apply: fixed(StatusStaffed, "")},
}

// NormalizeStatus maps a raw spreadsheet status onto the canonical vocabulary.
// Empty input is returned as is with no flag and no reason.
func NormalizeStatus(raw string) StatusResult {
	if strings.TrimSpace(raw) == "" {
		return StatusResult{Status: raw}
	}

	s := numericPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	flag := flagOf(s)

	for _, rule := range StatusRules {
		if rule.Match(s) {
			res := rule.Apply(s, flag)
			res.Rule = rule.Name
			return res
		}
	}

	return StatusResult{
		Status: strings.TrimSpace(ownerPrefix.ReplaceAllString(s, "")),
		Flag:   flag,
		Rule:   "fallback",
	}
}

// flagOf is evaluated before any content rule since reasons embed the flag
func flagOf(s string) Flag {
	switch {
	case strings.Contains(s, "Client"):
		return FlagClient
	case strings.Contains(s, "GA"):
		return FlagGreyamp
	default:
		return FlagGreyamp
	}
}

// ============================================================================
// Categories and workflow stages
// ============================================================================

type Category string

const (
	CategoryActive Category = "active"
	CategoryFinal  Category = "final"
	CategoryOther  Category = "other"
)

// StatusCategory groups a canonical status into active or final pipeline states
func StatusCategory(status string) Category {
	switch status {
	case StatusScreening, StatusTechRound, StatusSelected, StatusOnHold:
		return CategoryActive
	case StatusOnBoarded, StatusRejected, StatusDropped:
		return CategoryFinal
	default:
		return CategoryOther
	}
}

// Workflow stage ids used by the recruitment board
const (
	StageDefault           = 1
	StageScreenRejectedGA  = 10
	StageScreenRejected    = 11
	StageInterviewRejected = 12
	StageOfferDeclined     = 14
	StageOfferAccepted     = 15
	StageOnboarded         = 16
	StageDropped           = 19
)

// WorkflowStage maps a status onto a workflow stage id
func WorkflowStage(status string) int {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "screen") && strings.Contains(s, "reject"):
		if strings.Contains(s, "ga") {
			return StageScreenRejectedGA
		}
		return StageScreenRejected
	case strings.Contains(s, "interview") && strings.Contains(s, "reject"):
		return StageInterviewRejected
	case strings.Contains(s, "offer"):
		if strings.Contains(s, "accept") {
			return StageOfferAccepted
		}
		return StageOfferDeclined
	case strings.Contains(s, "hire"), strings.Contains(s, "onboard"), strings.Contains(s, "on board"):
		return StageOnboarded
	case strings.Contains(s, "drop"), strings.Contains(s, "rnr"):
		return StageDropped
	default:
		return StageDefault
	}
}
