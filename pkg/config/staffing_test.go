package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefaultStaffingPolicy(t *testing.T) {
	cfg := DefaultStaffingConfig()

	if cfg.HireStatus != "On Boarded" {
		t.Fatalf("hire status = %q", cfg.HireStatus)
	}
	if !cfg.Assignment.DriftTolerance.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("drift tolerance = %s", cfg.Assignment.DriftTolerance)
	}
	if cfg.Assignment.DefaultDurationMonths != 12 {
		t.Fatalf("duration = %d", cfg.Assignment.DefaultDurationMonths)
	}
	if cfg.Imports.RawRowRetention != 90*24*time.Hour {
		t.Fatalf("retention = %s", cfg.Imports.RawRowRetention)
	}
	if len(cfg.Talent.VendorIndicators) != 5 {
		t.Fatalf("vendor indicators = %v", cfg.Talent.VendorIndicators)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestParseStaffingPolicyOverride(t *testing.T) {
	doc := []byte(`
hire_status: Joined
talent:
  vendor_indicators: [" Acme "]
`)
	cfg, err := ParseStaffingPolicy(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HireStatus != "Joined" {
		t.Fatalf("hire status = %q", cfg.HireStatus)
	}
	if len(cfg.Talent.VendorIndicators) != 1 || cfg.Talent.VendorIndicators[0] != "acme" {
		t.Fatalf("vendor indicators = %v", cfg.Talent.VendorIndicators)
	}
	// untouched keys keep their defaults
	if cfg.Ledger.BookedMetric != "Booked" {
		t.Fatalf("booked metric = %q", cfg.Ledger.BookedMetric)
	}
}

func TestStaffingValidate(t *testing.T) {
	cfg := DefaultStaffingConfig()
	cfg.Assignment.DefaultPercentage = decimal.NewFromInt(120)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for percentage above 100")
	}
}
