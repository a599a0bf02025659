package scopes

import "strings"

// Match reports whether two scope patterns intersect: whether some concrete
// scope string satisfies both. A "*" on either side matches any run of
// characters, including the empty run and across segment separators. Matching
// is case-sensitive. Both sides may carry wildcards; with no wildcard on
// either side this degenerates to string equality, and with a wildcard on one
// side only it is a plain glob match.
func Match(a, b string) bool {
	// f[i][j]: a[i:] and b[j:] can match a common string.
	la, lb := len(a), len(b)
	prev := make([]bool, lb+1)
	cur := make([]bool, lb+1)

	prev[lb] = true
	for j := lb - 1; j >= 0; j-- {
		prev[j] = b[j] == '*' && prev[j+1]
	}

	for i := la - 1; i >= 0; i-- {
		cur[lb] = a[i] == '*' && prev[lb]
		for j := lb - 1; j >= 0; j-- {
			switch {
			case a[i] == '*' && b[j] == '*':
				cur[j] = prev[j] || cur[j+1] || prev[j+1]
			case a[i] == '*':
				// '*' consumes zero chars of the common string, or b[j]
				// contributes a literal char that '*' also covers.
				cur[j] = prev[j] || cur[j+1]
			case b[j] == '*':
				cur[j] = cur[j+1] || prev[j]
			default:
				cur[j] = a[i] == b[j] && prev[j+1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[0]
}

// Authorize decides whether a request holding grantedScopes may perform an
// operation protected by requiredPatterns. Placeholders {userId}, {teamId},
// and {id} in a required pattern are substituted from params (the request's
// path parameters, not the principal's own ids) before matching. A single
// required pattern matching a single granted scope is sufficient: the check
// is OR across patterns and OR across grants.
//
// An empty requiredPatterns always authorizes. This mirrors the guard it
// replaces: operations that declare no scopes are open, so forgetting the
// declaration fails open, not closed.
func Authorize(requiredPatterns, grantedScopes []string, params map[string]string) bool {
	if len(requiredPatterns) == 0 {
		return true
	}
	for _, pattern := range requiredPatterns {
		p := substituteParams(pattern, params)
		for _, granted := range grantedScopes {
			if Match(p, granted) {
				return true
			}
		}
	}
	return false
}

func substituteParams(pattern string, params map[string]string) string {
	if params == nil {
		return pattern
	}
	for key, value := range params {
		pattern = strings.ReplaceAll(pattern, "{"+key+"}", value)
	}
	return pattern
}
