package service

import (
	"context"
	"time"

	"nftmarket/internal/repository"
)

// MergeLockService guards records of one collection while a merge is pending.
type MergeLockService struct {
	Repo       repository.ListingRepository
	Collection string
	Now        func() time.Time
}

// Lock reports whether this call took the lock.
func (s *MergeLockService) Lock(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	return s.Repo.LockListing(ctx, s.Collection, id, now)
}

// Unlock reports whether the record was locked.
func (s *MergeLockService) Unlock(ctx context.Context, id int64) (bool, error) {
	return s.Repo.UnlockListing(ctx, s.Collection, id)
}

// ForceUnlock clears the lock whether or not it was held.
func (s *MergeLockService) ForceUnlock(ctx context.Context, id int64) error {
	_, err := s.Repo.UnlockListing(ctx, s.Collection, id)
	return err
}
