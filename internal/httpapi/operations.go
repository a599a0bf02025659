package httpapi

// Operation declares the authorization surface of one route. Scopes are
// required patterns fed to the matcher with the request's path parameters
// substituted; an operation with no scopes but Public false still requires an
// authenticated principal. AuditEvent, when set, is recorded after a
// successful response for operations whose service layer does not audit
// itself.
type Operation struct {
	Public     bool
	Scopes     []string
	AuditEvent string
}

// operations is the single authorization table. Every route names its
// operation here; there is no annotation scanning, what is listed is what is
// enforced.
var operations = map[string]Operation{
	// auth flows authenticate by credential or purpose token, not by scope.
	"auth.register":            {Public: true},
	"auth.login":               {Public: true},
	"auth.login.totp":          {Public: true},
	"auth.login.token":         {Public: true},
	"auth.refresh":             {Public: true},
	"auth.logout":              {Public: true},
	"auth.approve-subnet":      {Public: true},
	"auth.verify-email":        {Public: true},
	"auth.resend-verification": {Public: true},
	"auth.forgot-password":     {Public: true},
	"auth.reset-password":      {Public: true},
	"auth.merge":               {Public: true},

	"users.get":        {Scopes: []string{"user-{userId}:read-info"}},
	"users.update":     {Scopes: []string{"user-{userId}:write-info"}},
	"users.deactivate": {Scopes: []string{"user-{userId}:deactivate"}},

	"users.sessions.list":   {Scopes: []string{"user-{userId}:read-session-*"}},
	"users.sessions.delete": {Scopes: []string{"user-{userId}:delete-session-{id}"}},

	"users.memberships.list":   {Scopes: []string{"user-{userId}:read-membership-*"}},
	"users.memberships.delete": {Scopes: []string{"user-{userId}:delete-membership-{id}"}},

	"users.subnets.list":   {Scopes: []string{"user-{userId}:read-approved-subnet-*"}},
	"users.subnets.delete": {Scopes: []string{"user-{userId}:delete-approved-subnet-{id}"}, AuditEvent: "subnet.delete"},

	"users.audit-logs.list": {Scopes: []string{"user-{userId}:read-audit-log-*"}},

	"users.mfa.totp": {Scopes: []string{"user-{userId}:write-mfa-totp"}},
	"users.mfa.enable": {Scopes: []string{
		"user-{userId}:write-mfa-totp",
		"user-{userId}:write-mfa-sms",
		"user-{userId}:write-mfa-email",
	}},
	"users.mfa.disable":    {Scopes: []string{"user-{userId}:delete-mfa-*"}},
	"users.mfa.regenerate": {Scopes: []string{"user-{userId}:write-mfa-regenerate"}},

	"users.merge-request": {Scopes: []string{"user-{userId}:merge"}},

	"users.api-keys.list":   {Scopes: []string{"user-{userId}:read-api-key-*"}},
	"users.api-keys.create": {Scopes: []string{"user-{userId}:write-api-key-*"}, AuditEvent: "api-key.create"},
	"users.api-keys.update": {Scopes: []string{"user-{userId}:write-api-key-{id}"}, AuditEvent: "api-key.update"},
	"users.api-keys.delete": {Scopes: []string{"user-{userId}:delete-api-key-{id}"}, AuditEvent: "api-key.delete"},

	// Team creation needs a login but no team scope; {userId} resolves to the
	// caller since the path carries no user id.
	"teams.create": {Scopes: []string{"user-{userId}:write-membership-*"}},
	"teams.get":    {Scopes: []string{"team-{teamId}:read-info"}},
	"teams.update": {Scopes: []string{"team-{teamId}:write-info"}},
	"teams.delete": {Scopes: []string{"team-{teamId}:delete"}},

	"teams.memberships.list":   {Scopes: []string{"team-{teamId}:read-membership-*"}},
	"teams.memberships.create": {Scopes: []string{"team-{teamId}:write-membership-*"}},
	"teams.memberships.update": {Scopes: []string{"team-{teamId}:write-membership-{id}"}},
	"teams.memberships.delete": {Scopes: []string{"team-{teamId}:delete-membership-{id}"}},

	"teams.audit-logs.list": {Scopes: []string{"team-{teamId}:read-audit-log-*"}},

	"teams.api-keys.list":   {Scopes: []string{"team-{teamId}:read-api-key-*"}},
	"teams.api-keys.create": {Scopes: []string{"team-{teamId}:write-api-key-*"}, AuditEvent: "api-key.create"},
	"teams.api-keys.update": {Scopes: []string{"team-{teamId}:write-api-key-{id}"}, AuditEvent: "api-key.update"},
	"teams.api-keys.delete": {Scopes: []string{"team-{teamId}:delete-api-key-{id}"}, AuditEvent: "api-key.delete"},
}
