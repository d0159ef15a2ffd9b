package store

import "time"

// SessionTTL is fixed at creation time; expiry is never extended in place,
// a renewal requires a fresh login.
const SessionTTL = 30 * 24 * time.Hour

type Session struct {
	ID string `gorm:"column:session_id;primaryKey;size:250"`

	UserID string `gorm:"column:user_id;not null"`

	// AccessToken is the provider credential. It never leaves the server;
	// the client only ever holds the session ID.
	AccessToken string `gorm:"column:access_token;not null"`

	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;not null"`
}

func (Session) TableName() string {
	return "sessions"
}
