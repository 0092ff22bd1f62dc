package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLPersister keeps read-state in the read-marker and preference tables.
type SQLPersister struct {
	db *gorm.DB
}

func NewSQLPersister(db *gorm.DB) *SQLPersister {
	return &SQLPersister{db: db}
}

func (r *SQLPersister) DB() *gorm.DB {
	return r.db
}

func (r *SQLPersister) Migrate() error {
	return r.db.AutoMigrate(&ReadMarker{}, &Preferences{})
}

func (r *SQLPersister) Load(ctx context.Context, ownerID string) (Snapshot, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&ReadMarker{}).
		Where("owner_id = ?", ownerID).
		Order("read_at ASC").
		Pluck("interest_id", &ids).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load read markers: %w", err)
	}

	prefs := &Preferences{}
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(prefs).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		prefs = DefaultPreferences(ownerID)
	case err != nil:
		return Snapshot{}, fmt.Errorf("load preferences: %w", err)
	}

	return Snapshot{ReadIDs: ids, SoundEnabled: prefs.SoundEnabled}, nil
}

// AddRead inserts one marker per id. Existing markers are left alone.
func (r *SQLPersister) AddRead(ctx context.Context, ownerID string, ids ...string) error {
	for _, id := range ids {
		m := &ReadMarker{OwnerID: ownerID, InterestID: id}
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("save read marker %s: %w", id, err)
		}
	}
	return nil
}

func (r *SQLPersister) SetSound(ctx context.Context, ownerID string, enabled bool) error {
	p := &Preferences{OwnerID: ownerID, SoundEnabled: enabled}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sound_enabled", "updated_at"}),
		}).
		Create(p).Error
}

// Clear drops the owner's read markers. Preferences stay.
func (r *SQLPersister) Clear(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&ReadMarker{}).Error
}

// ClearAll wipes every owner's read markers and reports how many went.
func (r *SQLPersister) ClearAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&ReadMarker{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
