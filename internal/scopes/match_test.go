package scopes

import "testing"

func TestMatchLiterals(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"user-42:read-info", "user-42:read-info", true},
		{"user-42:read-info", "user-42:write-info", false},
		{"user-42:read-info", "user-43:read-info", false},
		{"", "", true},
		{"a", "", false},
		{"", "a", false},
	}
	for _, tc := range cases {
		if got := Match(tc.a, tc.b); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMatchWildcardOneSide(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"user-42:read-api-key-*", "user-42:read-api-key-7", true},
		{"user-42:read-api-key-*", "user-42:read-api-key-", true},
		{"user-42:read-api-key-*", "user-42:read-api-keys", false},
		{"team-*:*", "team-7:delete", true},
		{"team-*:*", "user-7:delete", false},
		{"*", "anything:at-all", true},
		{"*", "", true},
		{"user-*:read-info", "user-42:read-info", true},
		{"user-*:read-info", "user-42:write-info", false},
	}
	for _, tc := range cases {
		if got := Match(tc.a, tc.b); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		// Intersection is symmetric regardless of which side the wildcard
		// sits on.
		if got := Match(tc.b, tc.a); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestMatchWildcardBothSides(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		// "team-7:write-*" and "team-*:write-billing" intersect on
		// "team-7:write-billing".
		{"team-7:write-*", "team-*:write-billing", true},
		// Doubly-wildcarded patterns intersect whenever any witness string
		// exists; here "team-7:read-:write-billing" satisfies both sides.
		{"team-7:read-*", "team-*:write-billing", true},
		// No witness can start with both "team-" and "user-".
		{"team-7:read-*", "user-*:write-billing", false},
		{"user-*:*", "*", true},
		{"user-*:*", "user-42:delete-session-9", true},
		{"*-api-key-*", "team-3:read-api-key-logs-5", true},
		{"a*c", "ab*", true},
		{"a*c", "ab*d", false},
		{"**", "x", true},
	}
	for _, tc := range cases {
		if got := Match(tc.a, tc.b); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if got := Match(tc.b, tc.a); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestAuthorize(t *testing.T) {
	granted := []string{
		"user-42:read-info",
		"user-42:write-api-key-*",
		"team-7:read-membership-*",
	}

	t.Run("direct match", func(t *testing.T) {
		if !Authorize([]string{"user-{userId}:read-info"}, granted, map[string]string{"userId": "42"}) {
			t.Error("expected authorization for own user-info read")
		}
	})

	t.Run("wrong principal id", func(t *testing.T) {
		if Authorize([]string{"user-{userId}:read-info"}, granted, map[string]string{"userId": "43"}) {
			t.Error("expected denial for another user's info")
		}
	})

	t.Run("wildcard grant covers concrete requirement", func(t *testing.T) {
		if !Authorize([]string{"user-42:write-api-key-17"}, granted, nil) {
			t.Error("expected wildcard grant to cover concrete key id")
		}
	})

	t.Run("or across patterns", func(t *testing.T) {
		patterns := []string{"team-{teamId}:write-info", "team-{teamId}:read-membership-*"}
		if !Authorize(patterns, granted, map[string]string{"teamId": "7"}) {
			t.Error("expected any one matching pattern to authorize")
		}
	})

	t.Run("no grants denies", func(t *testing.T) {
		if Authorize([]string{"user-42:read-info"}, nil, nil) {
			t.Error("expected denial with no granted scopes")
		}
	})

	t.Run("empty requirements fail open", func(t *testing.T) {
		if !Authorize(nil, nil, nil) {
			t.Error("expected operations with no declared scopes to be open")
		}
	})

	t.Run("sudo star grants everything", func(t *testing.T) {
		sudo := []string{"*"}
		for _, pattern := range []string{"user-1:deactivate", "team-9:delete", "anything"} {
			if !Authorize([]string{pattern}, sudo, nil) {
				t.Errorf("expected %q to be granted under *", pattern)
			}
		}
	})
}
