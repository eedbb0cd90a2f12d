package boiledrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/nojinx/ssm/core/audit"
)

const auditTable = `"audit_log"`

var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

type auditRow struct {
	ID         string     `boil:"id"`
	Timestamp  time.Time  `boil:"timestamp"`
	Action     string     `boil:"action"`
	ActorType  string     `boil:"actor_type"`
	ActorID    string     `boil:"actor_id"`
	ActorName  string     `boil:"actor_name"`
	IPAddress  string     `boil:"ip_address"`
	UserAgent  string     `boil:"user_agent"`
	ObjectType string     `boil:"object_type"`
	ObjectID   string     `boil:"object_id"`
	Message    string     `boil:"message"`
	ExtraData  types.JSON `boil:"extra_data"`
}

type auditRepository struct {
	exec boil.ContextExecutor
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec boil.ContextExecutor) audit.Repository {
	return &auditRepository{exec: exec}
}

func (repo *auditRepository) unboil(r *auditRow) audit.Entry {
	return audit.Entry{
		ID:         r.ID,
		Timestamp:  r.Timestamp.UTC(),
		Action:     r.Action,
		ActorType:  r.ActorType,
		ActorID:    r.ActorID,
		ActorName:  r.ActorName,
		IPAddress:  r.IPAddress,
		UserAgent:  r.UserAgent,
		ObjectType: r.ObjectType,
		ObjectID:   r.ObjectID,
		Message:    r.Message,
		ExtraData:  json.RawMessage(r.ExtraData),
	}
}

func (repo *auditRepository) Insert(ctx context.Context, e audit.Entry) error {
	extra := types.JSON(e.ExtraData)
	if len(extra) == 0 {
		extra = types.JSON("{}")
	}
	_, err := queries.Raw(
		`INSERT INTO "audit_log" ("id","timestamp","action","actor_type","actor_id","actor_name","ip_address",`+
			`"user_agent","object_type","object_id","message","extra_data") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.Timestamp.UTC(), e.Action, e.ActorType, e.ActorID, e.ActorName, e.IPAddress,
		e.UserAgent, e.ObjectType, e.ObjectID, e.Message, extra,
	).ExecContext(ctx, repo.exec)
	return errors.Wrap(err, "inserting audit log")
}

// filterMods returns the where mods matching filter.
func filterMods(filter audit.QueryFilter) []qm.QueryMod {
	mods := []qm.QueryMod{qm.From(auditTable)}
	if filter.Action != "" {
		mods = append(mods, qm.Where(`"action" = ?`, filter.Action))
	}
	if filter.ActorType != "" {
		mods = append(mods, qm.Where(`"actor_type" = ?`, filter.ActorType))
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		mods = append(mods, qm.Where(
			`("actor_id" ILIKE ? OR "actor_name" ILIKE ? OR "message" ILIKE ? OR "object_type" ILIKE ? OR "ip_address" ILIKE ?)`,
			val, val, val, val, val))
	}
	if !filter.From.IsZero() {
		mods = append(mods, qm.Where(`"timestamp" >= ?`, filter.From.Time))
	}
	if !filter.To.IsZero() {
		mods = append(mods, qm.Where(`"timestamp" < ?`, filter.To.Add(24*time.Hour)))
	}
	return mods
}

func (repo *auditRepository) Query(ctx context.Context, filter audit.QueryFilter, limit, offset int) ([]audit.Entry, int, error) {
	mods := filterMods(filter)

	var count int
	countMods := append([]qm.QueryMod{qm.Select("COUNT(*)")}, mods...)
	if err := newQuery(countMods...).QueryRowContext(ctx, repo.exec).Scan(&count); err != nil {
		return nil, 0, errors.Wrap(err, "counting audit logs")
	}
	if count == 0 || offset < 0 || offset >= count {
		return []audit.Entry{}, count, nil
	}

	var rows []*auditRow
	mods = append(mods, qm.OrderBy(`"timestamp" DESC`), qm.Limit(limit), qm.Offset(offset))
	if err := newQuery(mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, 0, errors.Wrap(err, "querying audit logs")
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repo.unboil(r))
	}
	return entries, count, nil
}

func (repo *auditRepository) Delete(ctx context.Context, id string) error {
	res, err := queries.Raw(`DELETE FROM "audit_log" WHERE "id" = $1`, id).ExecContext(ctx, repo.exec)
	if err != nil {
		return errors.Wrap(err, "deleting audit log")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting audit log")
	}
	if n == 0 {
		return audit.ErrNotFound
	}
	return nil
}
