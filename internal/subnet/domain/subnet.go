package domain

import "time"

// ApprovedSubnet records a network prefix a user has logged in from before.
// The subnet is anonymized and bcrypt-hashed; comparison is by hash only.
type ApprovedSubnet struct {
	ID         int64
	UserID     int64
	SubnetHash string
	CreatedAt  time.Time
}
