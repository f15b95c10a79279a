package scopes

// ============================================================================
// DOMAIN-SPECIFIC SCOPES - Staffing operations
// ============================================================================

const (
	// Candidate scopes
	ScopeCandidatesAll   = "candidates:*"
	ScopeCandidatesRead  = "candidates:read"
	ScopeCandidatesWrite = "candidates:write" // Status changes

	// Import scopes
	ScopeImportsAll   = "imports:*"
	ScopeImportsRead  = "imports:read"
	ScopeImportsStage = "imports:stage"
	ScopeImportsRun   = "imports:run" // Consolidate staged rows

	// Assignment scopes
	ScopeAssignmentsAll       = "assignments:*"
	ScopeAssignmentsRead      = "assignments:read"
	ScopeAssignmentsWrite     = "assignments:write"
	ScopeAssignmentsDelete    = "assignments:delete"
	ScopeAssignmentsReconcile = "assignments:reconcile" // Validate, reconcile, integrity checks

	// Demand scopes
	ScopeDemandAll  = "demand:*"
	ScopeDemandRead = "demand:read"
	ScopeHiresRun   = "demand:hire" // Hire reconciliation
)

// DomainScopeCategories organizes domain-specific scopes
var DomainScopeCategories = map[string][]string{
	"Candidates": {
		ScopeCandidatesAll,
		ScopeCandidatesRead,
		ScopeCandidatesWrite,
	},
	"Imports": {
		ScopeImportsAll,
		ScopeImportsRead,
		ScopeImportsStage,
		ScopeImportsRun,
	},
	"Assignments": {
		ScopeAssignmentsAll,
		ScopeAssignmentsRead,
		ScopeAssignmentsWrite,
		ScopeAssignmentsDelete,
		ScopeAssignmentsReconcile,
	},
	"Demand": {
		ScopeDemandAll,
		ScopeDemandRead,
		ScopeHiresRun,
	},
}

// DomainScopeDescriptions provides descriptions for domain scopes
var DomainScopeDescriptions = map[string]string{
	// Candidates
	ScopeCandidatesAll:   "Full access to the candidate pipeline",
	ScopeCandidatesRead:  "View candidates, clients and status history",
	ScopeCandidatesWrite: "Change candidate status",

	// Imports
	ScopeImportsAll:   "Full access to spreadsheet imports",
	ScopeImportsRead:  "View import sync status",
	ScopeImportsStage: "Stage raw import rows and files",
	ScopeImportsRun:   "Consolidate staged rows into candidates",

	// Assignments
	ScopeAssignmentsAll:       "Full access to assignments",
	ScopeAssignmentsRead:      "View assignments and consistency reports",
	ScopeAssignmentsWrite:     "Create and edit assignments",
	ScopeAssignmentsDelete:    "Delete assignments",
	ScopeAssignmentsReconcile: "Validate and reconcile talent totals",

	// Demand
	ScopeDemandAll:  "Full access to demand reconciliation",
	ScopeDemandRead: "View open demand",
	ScopeHiresRun:   "Reconcile hires against booked demand",
}

// DomainScopeGroups defines staffing role groupings
var DomainScopeGroups = map[string][]string{
	"recruiter": {
		ScopeCandidatesAll,
		ScopeImportsStage,
		ScopeImportsRead,
	},
	"staffing_manager": {
		ScopeCandidatesAll,
		ScopeAssignmentsAll,
		ScopeDemandAll,
		ScopeImportsAll,
	},
	"finance": {
		ScopeDemandRead,
		ScopeAssignmentsRead,
		ScopeReportsView,
	},
	"scheduler": {
		ScopeImportsAll,
		ScopeAssignmentsReconcile,
		ScopeHiresRun,
	},
}
