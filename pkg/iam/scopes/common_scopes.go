package scopes

// ============================================================================
// COMMON SCOPES - Reusable across any project
// ============================================================================

const (
	// Super scope - full access to everything
	ScopeAll = "*"

	// Admin scopes
	ScopeAdminAll   = "admin:*"
	ScopeAdminRead  = "admin:read"
	ScopeAdminWrite = "admin:write"

	// Audit log scopes
	ScopeAuditAll  = "audit:*"
	ScopeAuditRead = "audit:read"

	// Reports scopes
	ScopeReportsAll    = "reports:*"
	ScopeReportsView   = "reports:view"
	ScopeReportsExport = "reports:export"
)

// CommonScopeCategories organizes common scopes by domain
var CommonScopeCategories = map[string][]string{
	"Administration": {
		ScopeAll,
		ScopeAdminAll,
		ScopeAdminRead,
		ScopeAdminWrite,
	},
	"Audit": {
		ScopeAuditAll,
		ScopeAuditRead,
	},
	"Reports": {
		ScopeReportsAll,
		ScopeReportsView,
		ScopeReportsExport,
	},
}

// CommonScopeDescriptions provides human-readable descriptions
var CommonScopeDescriptions = map[string]string{
	ScopeAll: "Full access to all system resources",

	ScopeAdminAll:   "Full administrative access",
	ScopeAdminRead:  "View administrative settings",
	ScopeAdminWrite: "Modify administrative settings",

	ScopeAuditAll:  "Full access to audit logs",
	ScopeAuditRead: "View audit logs",

	ScopeReportsAll:    "Full access to reporting",
	ScopeReportsView:   "View reports",
	ScopeReportsExport: "Export reports",
}

// CommonScopeGroups defines common role groupings
var CommonScopeGroups = map[string][]string{
	"super_admin": {
		ScopeAll,
	},
	"platform_admin": {
		ScopeAdminAll,
		ScopeAuditRead,
		ScopeReportsAll,
	},
	"auditor": {
		ScopeAuditRead,
		ScopeReportsView,
	},
}
