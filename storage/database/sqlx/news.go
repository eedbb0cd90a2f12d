package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nojinx/ssm/core/news"
)

type newsRow struct {
	ID                string    `db:"id"`
	Content           string    `db:"content"`
	Link              string    `db:"link"`
	DocumentURL       string    `db:"document_url"`
	Target            string    `db:"target"`
	Date              time.Time `db:"date"`
	StartDate         null.Time `db:"start_date"`
	EndDate           null.Time `db:"end_date"`
	IsActive          bool      `db:"is_active"`
	NewIndicatorStart null.Time `db:"new_indicator_start"`
	NewIndicatorEnd   null.Time `db:"new_indicator_end"`
}

func (r newsRow) toNews() news.News {
	return news.News{
		ID:                r.ID,
		Content:           r.Content,
		Link:              r.Link,
		DocumentURL:       r.DocumentURL,
		Target:            r.Target,
		Date:              r.Date.UTC(),
		StartDate:         toDate(r.StartDate),
		EndDate:           toDate(r.EndDate),
		IsActive:          r.IsActive,
		NewIndicatorStart: toDate(r.NewIndicatorStart),
		NewIndicatorEnd:   toDate(r.NewIndicatorEnd),
	}
}

// newsValues returns the mutable columns; the publication date is set once on insert.
func newsValues(n news.News) ([]string, []interface{}) {
	cols := []string{
		"content", "link", "document_url", "target", "start_date", "end_date", "is_active",
		"new_indicator_start", "new_indicator_end",
	}
	args := []interface{}{
		n.Content, n.Link, n.DocumentURL, n.Target, nullDate(n.StartDate), nullDate(n.EndDate), n.IsActive,
		nullDate(n.NewIndicatorStart), nullDate(n.NewIndicatorEnd),
	}
	return cols, args
}

type newsRepository struct {
	db *sqlx.DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *sqlx.DB) news.Repository {
	return &newsRepository{db: db}
}

func (repo *newsRepository) Create(ctx context.Context, n news.News) (news.News, error) {
	cols, args := newsValues(n)
	cols = append([]string{"id", "date"}, cols...)
	args = append([]interface{}{n.ID, n.Date}, args...)

	var row newsRow
	if err := repo.db.GetContext(ctx, &row, insertQuery("news", cols)+" RETURNING *", args...); err != nil {
		return news.News{}, errors.Wrap(err, "creating news")
	}
	return row.toNews(), nil
}

func (repo *newsRepository) Get(ctx context.Context, id string) (news.News, error) {
	var row newsRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "news" WHERE "id" = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return news.News{}, news.ErrNotFound
		}
		return news.News{}, err
	}
	return row.toNews(), nil
}

func (repo *newsRepository) Query(ctx context.Context, filter *news.QueryFilter) ([]news.News, error) {
	var w where
	if filter != nil {
		if filter.Target != "" {
			w.add(`"target" = ?`, filter.Target)
		}
		if filter.IsActive != nil {
			w.add(`"is_active" = ?`, *filter.IsActive)
		}
	}

	var rows []newsRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "news"`+w.String()+` ORDER BY "date" DESC`, w.args...); err != nil {
		return nil, err
	}
	items := make([]news.News, len(rows))
	for i, r := range rows {
		items[i] = r.toNews()
	}
	return items, nil
}

func (repo *newsRepository) Update(ctx context.Context, n news.News) (news.News, error) {
	cols, args := newsValues(n)
	args = append(args, n.ID)

	var row newsRow
	if err := repo.db.GetContext(ctx, &row, updateQuery("news", cols, "id")+" RETURNING *", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return news.News{}, news.ErrNotFound
		}
		return news.News{}, err
	}
	return row.toNews(), nil
}

func (repo *newsRepository) Delete(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "news" WHERE "id" = $1`, id)
	return checkAffected(res, err, news.ErrNotFound)
}

func (repo *newsRepository) Deactivate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := repo.db.ExecContext(ctx, `UPDATE "news" SET "is_active" = FALSE WHERE "id" IN `+inPlaceholders(1, len(ids)), args...)
	return errors.Wrap(err, "deactivating news")
}
