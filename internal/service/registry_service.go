package service

import (
	"context"

	"dumpbot/internal/repository"
)

// Registry resolves and stores per-user dump channel bindings.
type Registry struct {
	repo *repository.BindingRepository
}

func NewRegistry(repo *repository.BindingRepository) *Registry {
	return &Registry{repo: repo}
}

// DumpChannel returns the configured destination for the user, if any.
func (s *Registry) DumpChannel(ctx context.Context, userID int64) (int64, bool, error) {
	return s.repo.Get(ctx, userID)
}

// SetDumpChannel stores or overwrites the destination for the user.
func (s *Registry) SetDumpChannel(ctx context.Context, userID, channelID int64) error {
	return s.repo.Set(ctx, userID, channelID)
}
