package kernel

import "testing"

func TestAuthContextScopes(t *testing.T) {
	uid := UserID("u-1")
	ac := &AuthContext{UserID: &uid, Scopes: []string{"candidates:read", "assignments:*"}}

	cases := []struct {
		scope string
		want  bool
	}{
		{"candidates:read", true},
		{"candidates:write", false},
		{"assignments:write", true},
		{"assignmentsx:write", false},
	}
	for _, tc := range cases {
		if got := ac.HasScope(tc.scope); got != tc.want {
			t.Fatalf("HasScope(%q) = %v, want %v", tc.scope, got, tc.want)
		}
	}
	if !ac.HasAnyScope("hires:process", "candidates:read") {
		t.Fatalf("expected any-scope match")
	}
	if ac.HasAllScopes("candidates:read", "hires:process") {
		t.Fatalf("did not expect all-scope match")
	}
}

func TestAuthContextValidity(t *testing.T) {
	if (&AuthContext{}).IsValid() {
		t.Fatalf("empty context must be invalid")
	}
	root := &AuthContext{UserID: new(UserID), Scopes: []string{"*"}}
	if root.IsValid() {
		t.Fatalf("empty user id must be invalid")
	}
}
