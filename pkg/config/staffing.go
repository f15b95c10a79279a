package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed staffing.yaml
var defaultStaffingPolicy []byte

// StaffingConfig is the business policy shared by the import, assignment and
// reconciliation services.
type StaffingConfig struct {
	DataSource string           `yaml:"data_source"`
	HireStatus string           `yaml:"hire_status"`
	Assignment AssignmentPolicy `yaml:"assignment"`
	Talent     TalentPolicy     `yaml:"talent"`
	Ledger     LedgerPolicy     `yaml:"ledger"`
	Imports    ImportPolicy     `yaml:"imports"`
}

type AssignmentPolicy struct {
	DefaultPercentage     decimal.Decimal `yaml:"default_percentage"`
	DefaultDurationMonths int             `yaml:"default_duration_months"`
	Status                string          `yaml:"status"`
	DriftTolerance        decimal.Decimal `yaml:"drift_tolerance"`
}

type TalentPolicy struct {
	AllocatedStatus  string   `yaml:"allocated_status"`
	DefaultGrade     string   `yaml:"default_grade"`
	EmploymentStatus string   `yaml:"employment_status"`
	InternalPartner  string   `yaml:"internal_partner"`
	VendorIndicators []string `yaml:"vendor_indicators"`
}

type LedgerPolicy struct {
	BookedMetric string          `yaml:"booked_metric"`
	BilledMetric string          `yaml:"billed_metric"`
	Unit         decimal.Decimal `yaml:"unit"`
}

type ImportPolicy struct {
	RawRowRetention time.Duration `yaml:"raw_row_retention"`
	BatchSize       int           `yaml:"batch_size"`
}

// ParseStaffingPolicy decodes a policy document on top of the embedded defaults
func ParseStaffingPolicy(doc []byte) (StaffingConfig, error) {
	var cfg StaffingConfig
	if err := yaml.Unmarshal(defaultStaffingPolicy, &cfg); err != nil {
		return StaffingConfig{}, fmt.Errorf("decode default policy: %w", err)
	}
	if len(doc) > 0 {
		if err := yaml.Unmarshal(doc, &cfg); err != nil {
			return StaffingConfig{}, fmt.Errorf("decode policy: %w", err)
		}
	}
	for i, v := range cfg.Talent.VendorIndicators {
		cfg.Talent.VendorIndicators[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return cfg, nil
}

// DefaultStaffingConfig returns the embedded policy
func DefaultStaffingConfig() StaffingConfig {
	cfg, err := ParseStaffingPolicy(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

func loadStaffingConfig() (StaffingConfig, error) {
	var doc []byte
	if path := os.Getenv("STAFFING_POLICY_YAML"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return StaffingConfig{}, fmt.Errorf("read %s: %w", path, err)
		}
		doc = b
	}
	cfg, err := ParseStaffingPolicy(doc)
	if err != nil {
		return StaffingConfig{}, err
	}
	cfg.DataSource = getEnv("IMPORT_DATA_SOURCE", cfg.DataSource)
	cfg.HireStatus = getEnv("HIRE_STATUS", cfg.HireStatus)
	return cfg, nil
}

func (s StaffingConfig) Validate() error {
	if s.HireStatus == "" {
		return fmt.Errorf("hire_status is required")
	}
	if s.Assignment.DefaultDurationMonths <= 0 {
		return fmt.Errorf("assignment.default_duration_months must be positive")
	}
	hundred := decimal.NewFromInt(100)
	if s.Assignment.DefaultPercentage.LessThanOrEqual(decimal.Zero) || s.Assignment.DefaultPercentage.GreaterThan(hundred) {
		return fmt.Errorf("assignment.default_percentage must be in (0, 100]")
	}
	if s.Assignment.DriftTolerance.IsNegative() {
		return fmt.Errorf("assignment.drift_tolerance must not be negative")
	}
	if s.Ledger.BookedMetric == "" || s.Ledger.BilledMetric == "" {
		return fmt.Errorf("ledger metrics are required")
	}
	if !s.Ledger.Unit.IsPositive() {
		return fmt.Errorf("ledger.unit must be positive")
	}
	return nil
}
