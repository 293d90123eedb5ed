package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dumpbot/internal/model"
)

// BindingRepository persists the user → dump channel mapping.
type BindingRepository struct {
	db *gorm.DB
}

func NewBindingRepository(db *gorm.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Get returns the dump channel bound to the user. A user that never
// configured a channel yields found=false with a nil error.
func (r *BindingRepository) Get(ctx context.Context, telegramID int64) (int64, bool, error) {
	var binding model.ChannelBinding
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&binding).Error
	switch {
	case err == nil:
		return binding.DumpChannel, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("find binding: %w", err)
	}
}

// Set stores or overwrites the binding for the user. Last write wins.
func (r *BindingRepository) Set(ctx context.Context, telegramID, channelID int64) error {
	var binding model.ChannelBinding
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&binding).Error
	switch {
	case err == nil:
		if err := db.Model(&binding).Update("dump_channel", channelID).Error; err != nil {
			return fmt.Errorf("update binding: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		binding = model.ChannelBinding{
			TelegramID:  telegramID,
			DumpChannel: channelID,
		}
		if err := db.Create(&binding).Error; err != nil {
			return fmt.Errorf("create binding: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find binding: %w", err)
	}
}

// Ping performs a no-op round trip against the backing store.
func (r *BindingRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}
