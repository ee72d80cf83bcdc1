package models

import "time"

// LinkedinProfile holds the credential used to publish on a user's behalf.
// At most one row exists per user; writes go through an upsert keyed by
// user_id. AccessToken is stored encrypted.
type LinkedinProfile struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	MemberURN      string    `db:"member_urn" json:"member_urn"`
	MemberName     string    `db:"member_name" json:"member_name"`
	AccessToken    string    `db:"access_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
