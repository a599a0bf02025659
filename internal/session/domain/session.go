package domain

import "time"

// Session is the server-side record backing a refresh token. Deleting the
// record is the revocation mechanism; there is no separate revoked flag.
type Session struct {
	ID              int64
	UserID          int64
	Token           string // opaque refresh token, unique
	IPAddress       string
	UserAgent       string
	Browser         string
	OperatingSystem string
	City            string
	Region          string
	CountryCode     string
	Timezone        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
