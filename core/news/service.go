package news

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
)

var (
	// errors
	ErrNotFound = errors.New("news not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		Create(ctx context.Context, n News) (News, error)
		Get(ctx context.Context, id string) (News, error)
		// Query returns news matching filter, newest first.
		Query(ctx context.Context, filter *QueryFilter) ([]News, error)
		Update(ctx context.Context, n News) (News, error)
		Delete(ctx context.Context, id string) error
		// Deactivate sets is_active = false on the given news.
		Deactivate(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, ni NewsInput) (News, error)
		Get(ctx context.Context, id string) (News, error)
		Query(ctx context.Context, filter *QueryFilter) ([]News, error)
		Update(ctx context.Context, orig News, ni NewsInput) (News, error)
		Delete(ctx context.Context, id string) error
		ListVisible(ctx context.Context, audience string, day core.Date) ([]VisibleNews, error)
		DisableExpired(ctx context.Context, day core.Date, dryRun bool) ([]News, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, ni NewsInput) (News, error) {
	if err := ni.Validate(svc.validate); err != nil {
		return News{}, err
	}
	n := ni.apply(News{
		ID:       uuid.New().String(),
		Date:     NowFunc().UTC(),
		IsActive: true,
	})
	return svc.repo.Create(ctx, n)
}

func (svc *Service) Get(ctx context.Context, id string) (News, error) {
	if _, err := uuid.Parse(id); err != nil {
		return News{}, ErrNotFound
	}
	return svc.repo.Get(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]News, error) {
	return svc.repo.Query(ctx, filter)
}

// Update replaces orig's editable fields with ni.
func (svc *Service) Update(ctx context.Context, orig News, ni NewsInput) (News, error) {
	if err := ni.Validate(svc.validate); err != nil {
		return News{}, err
	}
	return svc.repo.Update(ctx, ni.apply(orig))
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.Delete(ctx, id)
}

// ListVisible returns the news visible on day to audience (TargetStaff or TargetStudents):
// news targeted at everyone plus the audience's own, newest first.
func (svc *Service) ListVisible(ctx context.Context, audience string, day core.Date) ([]VisibleNews, error) {
	active := true
	all, err := svc.repo.Query(ctx, &QueryFilter{IsActive: &active})
	if err != nil {
		return nil, errors.Wrap(err, "querying news")
	}

	visible := make([]VisibleNews, 0, len(all))
	for _, n := range all {
		if n.Target != TargetAll && n.Target != audience {
			continue
		}
		if !n.IsVisible(day) {
			continue
		}
		visible = append(visible, VisibleNews{News: n, ShowNewIndicator: n.ShouldShowNewIndicator(day)})
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].Date.After(visible[j].Date) })
	return visible, nil
}

// DisableExpired finds the active news whose end date is before day and, unless dryRun, deactivates them.
// The affected news are returned either way.
func (svc *Service) DisableExpired(ctx context.Context, day core.Date, dryRun bool) ([]News, error) {
	active := true
	all, err := svc.repo.Query(ctx, &QueryFilter{IsActive: &active})
	if err != nil {
		return nil, errors.Wrap(err, "querying news")
	}

	expired := make([]News, 0)
	ids := make([]string, 0)
	for _, n := range all {
		if n.IsExpired(day) {
			expired = append(expired, n)
			ids = append(ids, n.ID)
		}
	}
	if dryRun || len(ids) == 0 {
		return expired, nil
	}
	if err := svc.repo.Deactivate(ctx, ids...); err != nil {
		return nil, errors.Wrap(err, "deactivating news")
	}
	for i := range expired {
		expired[i].IsActive = false
	}
	return expired, nil
}
