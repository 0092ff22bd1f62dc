package notification

import "time"

// ReadMarker records that an owner acknowledged one interest.
type ReadMarker struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	OwnerID    string    `gorm:"column:owner_id;size:64;not null;uniqueIndex:idx_read_markers_owner_interest"`
	InterestID string    `gorm:"column:interest_id;size:64;not null;uniqueIndex:idx_read_markers_owner_interest"`
	ReadAt     time.Time `gorm:"column:read_at;autoCreateTime"`
}

// TableName specifies table name for GORM
func (ReadMarker) TableName() string {
	return "interest_read_markers"
}
