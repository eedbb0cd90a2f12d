package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/nojinx/ssm/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) Insert(_ context.Context, e audit.Entry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows = append(repo.db.rows, e)
	return nil
}

func (repo *auditRepository) Query(_ context.Context, filter audit.QueryFilter, limit, offset int) ([]audit.Entry, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matches := make([]audit.Entry, 0)
	for _, e := range repo.db.rows {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ActorType != "" && e.ActorType != filter.ActorType {
			continue
		}
		if filter.Search != "" && !containsFold(filter.Search, e.ActorID, e.ActorName, e.Message, e.ObjectType, e.IPAddress) {
			continue
		}
		if !filter.From.IsZero() && e.Timestamp.Before(filter.From.Time) {
			continue
		}
		if !filter.To.IsZero() && !e.Timestamp.Before(filter.To.Add(24*time.Hour)) {
			continue
		}
		matches = append(matches, e)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Timestamp.After(matches[j].Timestamp) })

	count := len(matches)
	if offset < 0 || offset >= count {
		return []audit.Entry{}, count, nil
	}
	end := offset + limit
	if end > count {
		end = count
	}
	return matches[offset:end], count, nil
}

func (repo *auditRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, e := range repo.db.rows {
		if e.ID == id {
			repo.db.rows = append(repo.db.rows[:i], repo.db.rows[i+1:]...)
			return nil
		}
	}
	return audit.ErrNotFound
}
