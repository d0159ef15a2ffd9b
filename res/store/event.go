package store

import "time"

// Event is an append-only audit record (logins, logouts and similar
// account-level actions). Properties holds JSON-encoded extra fields.
type Event struct {
	ID string `gorm:"column:id;primaryKey;size:50"`

	Timestamp  time.Time `gorm:"column:timestamp;not null"`
	Event      string    `gorm:"column:event;size:100;not null"`
	User       string    `gorm:"column:user;size:256"`
	Properties string    `gorm:"column:properties"`
}

func (Event) TableName() string {
	return "events"
}
