package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geofence-attendance-backend/internal/model"
)

// Scope identifies whose records a store operation touches. Records are
// namespaced per backend+user so a device can be reused across tenants.
type Scope struct {
	Namespace string
	UserID    string
}

// Store is the only coordination channel between the foreground and
// background execution contexts. All operations are read-modify-write over
// the same keyed records with no cross-context locking; callers own the
// consequences (see model.CooldownLedger).
type Store interface {
	Snapshot(ctx context.Context, scope Scope) (*model.AttendanceRecord, error)
	SaveSnapshot(ctx context.Context, rec *model.AttendanceRecord) error

	SelectedGeofence(ctx context.Context, scope Scope) (string, error)
	SetSelectedGeofence(ctx context.Context, scope Scope, geofenceID string) error

	WorkingHours(ctx context.Context, scope Scope) (string, error)
	SetWorkingHours(ctx context.Context, scope Scope, value string) error

	CooldownLedger(ctx context.Context, scope Scope) (*model.CooldownLedger, error)
	SaveCooldownLedger(ctx context.Context, scope Scope, ledger *model.CooldownLedger) error
	ClearCooldowns(ctx context.Context, scope Scope, keys ...string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Snapshot returns the persisted attendance record for the scope, or nil when
// none has been written yet.
func (s *gormStore) Snapshot(ctx context.Context, scope Scope) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND user_id = ?", scope.Namespace, scope.UserID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance snapshot: %w", err)
	}
	return &rec, nil
}

// SaveSnapshot upserts the attendance record. The record carries its own
// scope in Namespace/UserID.
func (s *gormStore) SaveSnapshot(ctx context.Context, rec *model.AttendanceRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save attendance snapshot: %w", err)
	}
	return nil
}

func (s *gormStore) SelectedGeofence(ctx context.Context, scope Scope) (string, error) {
	return s.setting(ctx, scope, model.SettingSelectedGeofence)
}

func (s *gormStore) SetSelectedGeofence(ctx context.Context, scope Scope, geofenceID string) error {
	return s.setSetting(ctx, scope, model.SettingSelectedGeofence, geofenceID)
}

func (s *gormStore) WorkingHours(ctx context.Context, scope Scope) (string, error) {
	return s.setting(ctx, scope, model.SettingWorkingHours)
}

func (s *gormStore) SetWorkingHours(ctx context.Context, scope Scope, value string) error {
	return s.setSetting(ctx, scope, model.SettingWorkingHours, value)
}

func (s *gormStore) setting(ctx context.Context, scope Scope, name string) (string, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND user_id = ? AND name = ?", scope.Namespace, scope.UserID, name).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load setting %q: %w", name, err)
	}
	return setting.Value, nil
}

func (s *gormStore) setSetting(ctx context.Context, scope Scope, name, value string) error {
	setting := model.Setting{
		Namespace: scope.Namespace,
		UserID:    scope.UserID,
		Name:      name,
		Value:     value,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %q: %w", name, err)
	}
	return nil
}

// CooldownLedger loads every cooldown entry for the scope into an in-memory
// ledger. The global lock is stored under model.KeyLastAction.
func (s *gormStore) CooldownLedger(ctx context.Context, scope Scope) (*model.CooldownLedger, error) {
	var entries []model.CooldownEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND user_id = ?", scope.Namespace, scope.UserID).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cooldown ledger: %w", err)
	}

	ledger := model.NewCooldownLedger()
	for _, e := range entries {
		if e.Key == model.KeyLastAction {
			ledger.LastActionAt = e.FiredAt
			continue
		}
		ledger.Entries[e.Key] = e.FiredAt
	}
	return ledger, nil
}

// SaveCooldownLedger upserts every entry of the ledger. Cleared keys are not
// deleted here; use ClearCooldowns for that.
func (s *gormStore) SaveCooldownLedger(ctx context.Context, scope Scope, ledger *model.CooldownLedger) error {
	entries := make([]model.CooldownEntry, 0, len(ledger.Entries)+1)
	for key, firedAt := range ledger.Entries {
		entries = append(entries, model.CooldownEntry{
			Namespace: scope.Namespace,
			UserID:    scope.UserID,
			Key:       key,
			FiredAt:   firedAt,
		})
	}
	if !ledger.LastActionAt.IsZero() {
		entries = append(entries, model.CooldownEntry{
			Namespace: scope.Namespace,
			UserID:    scope.UserID,
			Key:       model.KeyLastAction,
			FiredAt:   ledger.LastActionAt,
		})
	}
	if len(entries) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"fired_at"}),
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to save cooldown ledger: %w", err)
	}
	return nil
}

// ClearCooldowns deletes the given ledger keys, releasing their windows. This
// is the path manual checkout uses so a user action is never blocked by
// automatic-tracking cooldowns.
func (s *gormStore) ClearCooldowns(ctx context.Context, scope Scope, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND user_id = ? AND key IN ?", scope.Namespace, scope.UserID, keys).
		Delete(&model.CooldownEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cooldown keys %v: %w", keys, err)
	}
	return nil
}
