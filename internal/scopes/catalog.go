// Package scopes holds the capability catalog, the effective-scope resolver,
// and the glob matcher that decides whether a requested operation is
// authorized.
//
// A scope is a string of the form "<subject>-<id>:<action>" (or the universal
// "*"). Catalog entries are templates carrying the literal placeholders
// {userId} and {teamId}, substituted with concrete ids at resolution time.
// Wildcard segments match any run of characters during authorization checks.
package scopes

// UserScopes are the self-scopes every user holds over their own account.
var UserScopes = map[string]string{
	"user-{userId}:write-api-key-*":          "Create and update API keys",
	"user-{userId}:read-api-key-*":           "Read API keys",
	"user-{userId}:delete-api-key-*":         "Delete API keys",
	"user-{userId}:read-api-key-logs-*":      "Read API key logs",
	"user-{userId}:read-approved-subnet-*":   "Read approved subnets",
	"user-{userId}:delete-approved-subnet-*": "Unapprove subnets",
	"user-{userId}:write-email-*":            "Create and update emails",
	"user-{userId}:read-email-*":             "Read emails",
	"user-{userId}:delete-email-*":           "Delete emails",
	"user-{userId}:write-membership-*":       "Create teams",
	"user-{userId}:read-membership-*":        "Read memberships",
	"user-{userId}:delete-membership-*":      "Delete memberships",
	"user-{userId}:delete-mfa-*":             "Disable MFA",
	"user-{userId}:write-mfa-regenerate":     "Regenerate MFA backup codes",
	"user-{userId}:write-mfa-totp":           "Enable TOTP-based MFA",
	"user-{userId}:write-mfa-sms":            "Enable SMS-based MFA",
	"user-{userId}:write-mfa-email":          "Enable email-based MFA",
	"user-{userId}:read-session-*":           "Read sessions",
	"user-{userId}:delete-session-*":         "Log out of sessions",
	"user-{userId}:read-info":                "Read user details",
	"user-{userId}:write-info":               "Update user details",
	"user-{userId}:deactivate":               "Delete user account",
	"user-{userId}:merge":                    "Merge two users",
	"user-{userId}:read-audit-log-*":         "Read audit log",
}

// TeamOwnerScopes is the full capability bundle for a team OWNER.
var TeamOwnerScopes = map[string]string{
	"team-{teamId}:write-api-key-*":       "Create and update API keys",
	"team-{teamId}:read-api-key-*":        "Read API keys",
	"team-{teamId}:delete-api-key-*":      "Delete API keys",
	"team-{teamId}:read-api-key-logs-*":   "Read API key logs",
	"team-{teamId}:read-audit-log-*":      "Read audit log",
	"team-{teamId}:write-domain-*":        "Create and update domains",
	"team-{teamId}:read-domain-*":         "Read domains",
	"team-{teamId}:delete-domain-*":       "Delete domains",
	"team-{teamId}:read-info":             "Read team details",
	"team-{teamId}:write-info":            "Update team details",
	"team-{teamId}:delete":                "Delete team",
	"team-{teamId}:write-membership-*":    "Create and update memberships",
	"team-{teamId}:read-membership-*":     "Read memberships",
	"team-{teamId}:delete-membership-*":   "Delete memberships",
	"team-{teamId}:write-billing":         "Create and update billing details",
	"team-{teamId}:read-billing":          "Read billing details",
	"team-{teamId}:delete-billing":        "Delete billing details",
	"team-{teamId}:read-invoice-*":        "Read invoices",
	"team-{teamId}:write-source-*":        "Create and update payment methods",
	"team-{teamId}:read-source-*":         "Read payment methods",
	"team-{teamId}:delete-source-*":       "Delete payment methods",
	"team-{teamId}:write-subscription-*":  "Create and update subscriptions",
	"team-{teamId}:read-subscription-*":   "Read subscriptions",
	"team-{teamId}:delete-subscription-*": "Delete subscriptions",
	"team-{teamId}:write-webhook-*":       "Create and update webhooks",
	"team-{teamId}:read-webhook-*":        "Read webhooks",
	"team-{teamId}:delete-webhook-*":      "Delete webhooks",
}

// TeamAdminScopes is the OWNER bundle minus team deletion and membership
// deletion.
var TeamAdminScopes = map[string]string{
	"team-{teamId}:write-api-key-*":       "Create and update API keys",
	"team-{teamId}:read-api-key-*":        "Read API keys",
	"team-{teamId}:delete-api-key-*":      "Delete API keys",
	"team-{teamId}:read-api-key-logs-*":   "Read API key logs",
	"team-{teamId}:read-audit-log-*":      "Read audit log",
	"team-{teamId}:write-domain-*":        "Create and update domains",
	"team-{teamId}:read-domain-*":         "Read domains",
	"team-{teamId}:delete-domain-*":       "Delete domains",
	"team-{teamId}:read-info":             "Read team details",
	"team-{teamId}:write-info":            "Update team details",
	"team-{teamId}:write-membership-*":    "Create and update memberships",
	"team-{teamId}:read-membership-*":     "Read memberships",
	"team-{teamId}:write-billing":         "Create and update billing details",
	"team-{teamId}:read-billing":          "Read billing details",
	"team-{teamId}:delete-billing":        "Delete billing details",
	"team-{teamId}:read-invoice-*":        "Read invoices",
	"team-{teamId}:write-source-*":        "Create and update payment methods",
	"team-{teamId}:read-source-*":         "Read payment methods",
	"team-{teamId}:delete-source-*":       "Delete payment methods",
	"team-{teamId}:write-subscription-*":  "Create and update subscriptions",
	"team-{teamId}:read-subscription-*":   "Read subscriptions",
	"team-{teamId}:delete-subscription-*": "Delete subscriptions",
	"team-{teamId}:write-webhook-*":       "Create and update webhooks",
	"team-{teamId}:read-webhook-*":        "Read webhooks",
	"team-{teamId}:delete-webhook-*":      "Delete webhooks",
}

// TeamMemberScopes gives a MEMBER read-only access to team resources.
var TeamMemberScopes = map[string]string{
	"team-{teamId}:read-api-key-*":      "Read API keys",
	"team-{teamId}:read-api-key-logs-*": "Read API key logs",
	"team-{teamId}:read-audit-log-*":    "Read audit log",
	"team-{teamId}:read-domain-*":       "Read domains",
	"team-{teamId}:read-info":           "Read team details",
	"team-{teamId}:read-membership-*":   "Read memberships",
	"team-{teamId}:read-billing":        "Read billing details",
	"team-{teamId}:read-invoice-*":      "Read invoices",
	"team-{teamId}:read-source-*":       "Read payment methods",
	"team-{teamId}:read-subscription-*": "Read subscriptions",
	"team-{teamId}:read-webhook-*":      "Read webhooks",
}

// UserScopesCustomized are application scopes granted to every user,
// namespaced away from the core catalog.
var UserScopesCustomized = map[string]string{
	"application-{userId}:message-bot-api-key-*": "Message Bot",
}

// TeamMemberScopesCustomized are application scopes granted to team members.
var TeamMemberScopesCustomized = map[string]string{
	"application-{teamId}:message-bot-api-key-*": "Message Bot",
}

// SudoScopes are the unrestricted superuser scopes. The universal "*" alone
// grants everything; the broad wildcards are kept alongside it so that scope
// listings for SUDO users remain self-describing.
var SudoScopes = map[string]string{
	"*":        "Do everything (USE WITH CAUTION)",
	"user-*:*": "CRUD users",
	"team-*:*": "CRUD teams",
}
