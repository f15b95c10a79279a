package scopes

import (
	"maps"
	"slices"
	"strings"
)

// ScopeCategories combines common and staffing categories
var ScopeCategories map[string][]string

// ScopeDescriptions combines common and staffing descriptions
var ScopeDescriptions map[string]string

// ScopeGroups maps role names to the scopes an operator token for that role carries
var ScopeGroups map[string][]string

func init() {
	ScopeCategories = make(map[string][]string)
	maps.Copy(ScopeCategories, CommonScopeCategories)
	maps.Copy(ScopeCategories, DomainScopeCategories)

	ScopeDescriptions = make(map[string]string)
	maps.Copy(ScopeDescriptions, CommonScopeDescriptions)
	maps.Copy(ScopeDescriptions, DomainScopeDescriptions)

	ScopeGroups = make(map[string][]string)
	maps.Copy(ScopeGroups, CommonScopeGroups)
	maps.Copy(ScopeGroups, DomainScopeGroups)
}

// Matches reports whether a granted scope covers the required one: exact,
// global "*" or a "resource:*" wildcard
func Matches(granted, required string) bool {
	if granted == required || granted == ScopeAll {
		return true
	}
	if prefix, ok := strings.CutSuffix(granted, ":*"); ok {
		return strings.HasPrefix(required, prefix+":")
	}
	return false
}

// GetScopesByGroup returns the scopes of a role group, nil when unknown
func GetScopesByGroup(group string) []string {
	return ScopeGroups[group]
}

// GetScopeDescription returns the description for a given scope
func GetScopeDescription(scope string) string {
	if desc, exists := ScopeDescriptions[scope]; exists {
		return desc
	}
	return "No description available"
}

// ValidateScope checks if a scope is valid
func ValidateScope(scope string) bool {
	if scope == ScopeAll {
		return true
	}

	for _, scopes := range ScopeCategories {
		if slices.Contains(scopes, scope) {
			return true
		}
	}
	return false
}

// GetScopeCategory returns the category of a scope
func GetScopeCategory(scope string) string {
	for category, scopes := range ScopeCategories {
		if slices.Contains(scopes, scope) {
			return category
		}
	}
	return "Unknown"
}

// ExpandWildcardScope lists the concrete scopes a grant covers, sorted.
// e.g. "assignments:*" -> ["assignments:delete", "assignments:read", ...]
func ExpandWildcardScope(granted string) []string {
	if granted != ScopeAll && !strings.HasSuffix(granted, ":*") {
		return []string{granted}
	}

	var expanded []string
	for _, scopes := range ScopeCategories {
		for _, scope := range scopes {
			if scope == ScopeAll || strings.HasSuffix(scope, ":*") {
				continue
			}
			if Matches(granted, scope) {
				expanded = append(expanded, scope)
			}
		}
	}
	slices.Sort(expanded)
	return slices.Compact(expanded)
}
