package notification

import "time"

// Preferences holds the per-owner alert settings.
// No gorm default on SoundEnabled: a default would swallow explicit false on insert.
type Preferences struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"-"`
	OwnerID      string    `gorm:"column:owner_id;size:64;not null;uniqueIndex" json:"owner_id"`
	SoundEnabled bool      `gorm:"column:sound_enabled;not null" json:"sound_enabled"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies table name for GORM
func (Preferences) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns what a first-time owner gets.
func DefaultPreferences(ownerID string) *Preferences {
	return &Preferences{OwnerID: ownerID, SoundEnabled: true}
}
