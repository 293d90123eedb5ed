package model

import "time"

// ChannelBinding stores the dump channel a Telegram user configured.
// At most one row exists per user; reconfiguring overwrites it.
type ChannelBinding struct {
	ID          uint  `gorm:"primaryKey"`
	TelegramID  int64 `gorm:"uniqueIndex"`
	DumpChannel int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
