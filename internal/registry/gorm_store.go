package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/pkg/log"
)

// GormStore implements Store on top of a GORM database.
type GormStore struct {
	db *gorm.DB

	// writeMu serializes uniqueness checks with the writes that depend on them.
	writeMu sync.Mutex
}

// NewGormStore creates a GORM-backed registry. The caller migrates the schema.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, roomID, title string, quality domain.AudioQuality) (*domain.Broadcast, error) {
	if roomID == "" {
		return nil, ErrEmptyRoomID
	}
	l := log.Ctx(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	model := domain.BroadcastToModel(&domain.Broadcast{
		ID:           uuid.New().String(),
		RoomID:       roomID,
		Title:        title,
		IsActive:     true,
		AudioQuality: quality,
		CreatedAt:    time.Now().UTC(),
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.BroadcastModel{}).
			Where("room_id = ? AND is_active = ?", roomID, true).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateRoom
		}
		return tx.Create(model).Error
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateRoom) {
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to create broadcast in db")
		}
		return nil, err
	}

	l.Debug().Str(log.FieldBroadcastID, model.ID).Str(log.FieldRoomID, roomID).Msg("broadcast created in db")
	return model.ToDomain(), nil
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	var model domain.BroadcastModel
	result := s.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBroadcastNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldBroadcastID, id).Msg("failed to get broadcast by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (s *GormStore) GetByRoomID(ctx context.Context, roomID string) (*domain.Broadcast, error) {
	var model domain.BroadcastModel
	result := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("is_active DESC").
		Order("created_at DESC").
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBroadcastNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to get broadcast by room id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (s *GormStore) Update(ctx context.Context, id string, patch domain.BroadcastPatch) (*domain.Broadcast, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var model domain.BroadcastModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBroadcastNotFound
			}
			return err
		}

		if patch.IsActive != nil && *patch.IsActive && !model.IsActive {
			var n int64
			if err := tx.Model(&domain.BroadcastModel{}).
				Where("room_id = ? AND is_active = ? AND id <> ?", model.RoomID, true, id).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicateRoom
			}
		}

		cols := patch.Columns()
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&domain.BroadcastModel{}).Where("id = ?", id).Updates(cols).Error
	})
	if err != nil {
		if !errors.Is(err, ErrBroadcastNotFound) && !errors.Is(err, ErrDuplicateRoom) {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldBroadcastID, id).Msg("failed to update broadcast in db")
		}
		return nil, err
	}

	b := model.ToDomain()
	patch.Apply(b)
	return b, nil
}

func (s *GormStore) ListActive(ctx context.Context) ([]domain.Broadcast, error) {
	var models []domain.BroadcastModel
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list active broadcasts")
		return nil, err
	}

	out := make([]domain.Broadcast, len(models))
	for i := range models {
		out[i] = *models[i].ToDomain()
	}
	return out, nil
}
