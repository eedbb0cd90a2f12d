package inmemdb

import (
	"context"
	"time"

	"github.com/nojinx/ssm/core/auth"
)

type blacklistRepository struct {
	db  *blacklistTable
	now func() time.Time
}

var _ auth.Blacklist = (*blacklistRepository)(nil) // interface compliance check

func NewBlacklist(db *DB) auth.Blacklist {
	return &blacklistRepository{db: db.blacklist, now: time.Now}
}

func (repo *blacklistRepository) Add(_ context.Context, jti string, expiresAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	// drop expired tokens while at it
	now := repo.now()
	for id, exp := range repo.db.table {
		if exp.Before(now) {
			delete(repo.db.table, id)
		}
	}
	repo.db.table[jti] = expiresAt
	return nil
}

func (repo *blacklistRepository) Contains(_ context.Context, jti string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.table[jti]
	return ok, nil
}
