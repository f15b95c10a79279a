package normalize

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw    string
		status string
		flag   Flag
		reason string
	}{
		{"19 - Candidate RNR/Dropped", StatusDropped, FlagGreyamp, "Candidate RNR/Dropped"},
		{"Client Candidate RNR/Dropped", StatusDropped, FlagClient, "Candidate RNR/Dropped"},
		{"3 - Duplicate Profile", StatusDropped, FlagGreyamp, "Duplicate Profile"},
		{"Internal Dropped", StatusDropped, FlagGreyamp, "Internal Dropped"},
		{"Requirement on hold", StatusOnHold, FlagGreyamp, "Requirement on hold"},
		{"19 - GA On Hold", StatusOnHold, FlagGreyamp, "GA On Hold"},
		{"Client On hold", StatusOnHold, FlagClient, "Client On Hold"},
		{"Screen Rejected", StatusRejected, FlagGreyamp, "Screen Rejected"},
		{"Client - Interview Rejected", StatusRejected, FlagClient, "Client Interview Rejected"},
		{"GA Interview - Rejected", StatusRejected, FlagGreyamp, "GA Interview Rejected"},
		{"5 - Client Rejected", StatusRejected, FlagClient, "Client Rejected"},
		{"GA Rejected", StatusRejected, FlagGreyamp, "GA Rejected"},
		{"Assessment/Code Pairing", StatusCodePairing, FlagGreyamp, ""},
		{"Client Tech + Code Pairing", StatusCodePairing, FlagClient, ""},
		{"7 - GA Tech Round", StatusTechRound, FlagGreyamp, ""},
		{"Screening", StatusScreening, FlagGreyamp, ""},
		{"Sent to client", StatusScreening, FlagClient, ""},
		{"Client Review", StatusReview, FlagClient, ""},
		{"GA Interview", StatusInterview, FlagGreyamp, ""},
		{"Staffed", StatusStaffed, FlagGreyamp, ""},
		{"GA - Offer Released", "Offer Released", FlagGreyamp, ""},
		{"Client_Selected", "Selected", FlagClient, ""},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got := NormalizeStatus(tc.raw)
			if got.Status != tc.status || got.Flag != tc.flag || got.DropReason != tc.reason {
				t.Fatalf("NormalizeStatus(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tc.raw, got.Status, got.Flag, got.DropReason, tc.status, tc.flag, tc.reason)
			}
		})
	}
}

func TestNormalizeStatusEmpty(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		got := NormalizeStatus(raw)
		if got.Status != raw || got.Flag != FlagNone || got.DropReason != "" || got.Transformed() {
			t.Fatalf("NormalizeStatus(%q) = %+v, want passthrough", raw, got)
		}
	}
}

func TestRNRDropFlagIndependentOfReason(t *testing.T) {
	for _, raw := range []string{"Candidate RNR/Dropped", "GA Candidate RNR/Dropped", "Client - Candidate RNR/Dropped"} {
		got := NormalizeStatus(raw)
		if got.Status != StatusDropped || got.DropReason != "Candidate RNR/Dropped" {
			t.Fatalf("%q -> %+v", raw, got)
		}
		want := FlagGreyamp
		if raw == "Client - Candidate RNR/Dropped" {
			want = FlagClient
		}
		if got.Flag != want {
			t.Fatalf("%q flag = %q, want %q", raw, got.Flag, want)
		}
	}
}

func TestRulePrecedence(t *testing.T) {
	// drop reasons win over on-hold and rejected phrases in the same string
	got := NormalizeStatus("Duplicate Profile - Rejected")
	if got.Rule != "duplicate_profile" {
		t.Fatalf("rule = %q", got.Rule)
	}
	got = NormalizeStatus("Requirement on hold")
	if got.Rule != "requirement_on_hold" || got.DropReason != "Requirement on hold" {
		t.Fatalf("got %+v", got)
	}
	got = NormalizeStatus("Screen Rejected after Interview")
	if got.Rule != "screen_rejected" {
		t.Fatalf("rule = %q", got.Rule)
	}
}

func TestStatusCategory(t *testing.T) {
	if StatusCategory(StatusTechRound) != CategoryActive {
		t.Fatalf("tech round should be active")
	}
	if StatusCategory(StatusOnBoarded) != CategoryFinal {
		t.Fatalf("on boarded should be final")
	}
	if StatusCategory(StatusStaffed) != CategoryOther {
		t.Fatalf("staffed should be other")
	}
}

func TestWorkflowStage(t *testing.T) {
	cases := map[string]int{
		"GA Screen Rejected":  StageScreenRejectedGA,
		"Screen Rejected":     StageScreenRejected,
		"Interview Rejected":  StageInterviewRejected,
		"Offer Declined":      StageOfferDeclined,
		"Offer Accepted":      StageOfferAccepted,
		"Hired":               StageOnboarded,
		StatusOnBoarded:       StageOnboarded,
		StatusDropped:         StageDropped,
		"RNR":                 StageDropped,
		StatusScreening:       StageDefault,
	}
	for status, want := range cases {
		if got := WorkflowStage(status); got != want {
			t.Fatalf("WorkflowStage(%q) = %d, want %d", status, got, want)
		}
	}
}
