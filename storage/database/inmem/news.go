package inmemdb

import (
	"context"
	"sort"

	"github.com/nojinx/ssm/core/news"
)

type newsRepository struct {
	db *newsTable
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *DB) news.Repository {
	return &newsRepository{db: db.news}
}

func (repo *newsRepository) Create(_ context.Context, n news.News) (news.News, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[n.ID]; ok {
		return news.News{}, errDuplicateKey
	}
	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *newsRepository) Get(_ context.Context, id string) (news.News, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return news.News{}, news.ErrNotFound
}

func (repo *newsRepository) Query(_ context.Context, filter *news.QueryFilter) ([]news.News, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]news.News, 0)
	for _, n := range repo.db.table {
		if filter != nil {
			if filter.Target != "" && n.Target != filter.Target {
				continue
			}
			if filter.IsActive != nil && n.IsActive != *filter.IsActive {
				continue
			}
		}
		items = append(items, *n)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
	return items, nil
}

func (repo *newsRepository) Update(_ context.Context, n news.News) (news.News, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[n.ID]
	if !ok {
		return news.News{}, news.ErrNotFound
	}
	n.Date = orig.Date
	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *newsRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return news.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *newsRepository) Deactivate(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if n, ok := repo.db.table[id]; ok {
			n.IsActive = false
		}
	}
	return nil
}
