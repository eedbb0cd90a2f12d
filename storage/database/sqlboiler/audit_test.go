package boiledrepos

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/storage/database"
)

func TestFilterMods(t *testing.T) {
	filter := audit.QueryFilter{
		Action:    audit.ActionLogin,
		ActorType: audit.ActorStaff,
		Search:    "admin",
		From:      core.NewDate(2024, 1, 1),
		To:        core.NewDate(2024, 1, 31),
	}

	q, args := queries.BuildQuery(newQuery(filterMods(filter)...))

	assert.Contains(t, q, `FROM "audit_log"`)
	assert.Contains(t, q, `"action" = $1`)
	assert.Contains(t, q, `"actor_type" = $2`)
	assert.Contains(t, q, `"ip_address" ILIKE $7`)
	assert.Contains(t, q, `"timestamp" < $9`)
	if assert.Len(t, args, 9) {
		assert.Equal(t, "login", args[0])
		assert.Equal(t, "%admin%", args[2])
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), args[8])
	}
}

func TestFilterModsEmpty(t *testing.T) {
	q, args := queries.BuildQuery(newQuery(filterMods(audit.QueryFilter{})...))
	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)
}

// TestAuditRepository runs against the database at TEST_DATABASE_URL.
func TestAuditRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec(`TRUNCATE "audit_log"`)
	require.NoError(t, err)

	repo := NewAuditRepository(db)
	ctx := context.Background()

	start := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, audit.Entry{
			ID:        uuid.New().String(),
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Action:    audit.ActionLogin,
			ActorType: audit.ActorStaff,
			ActorID:   "S001",
			ActorName: "Jane Doe",
			Message:   "logged in",
		}))
	}
	extra := json.RawMessage(`{"client_type":"web"}`)
	require.NoError(t, repo.Insert(ctx, audit.Entry{
		ID: uuid.New().String(), Timestamp: start, Action: audit.ActionLogout, ActorType: audit.ActorStudent, ExtraData: extra,
	}))

	tests := []struct {
		name      string
		filter    audit.QueryFilter
		limit     int
		offset    int
		wantCount int
		wantLen   int
	}{
		{name: "all", limit: 10, wantCount: 4, wantLen: 4},
		{name: "paged", limit: 2, offset: 2, wantCount: 4, wantLen: 2},
		{name: "past the end", limit: 2, offset: 4, wantCount: 4},
		{name: "action", filter: audit.QueryFilter{Action: audit.ActionLogout}, limit: 10, wantCount: 1, wantLen: 1},
		{name: "search", filter: audit.QueryFilter{Search: "jane"}, limit: 10, wantCount: 3, wantLen: 3},
		{name: "single day", filter: audit.QueryFilter{From: core.NewDate(2024, time.March, 2), To: core.NewDate(2024, time.March, 2)}, limit: 10, wantCount: 1, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, count, err := repo.Query(ctx, tt.filter, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
			assert.Len(t, entries, tt.wantLen)
		})
	}

	entries, _, err := repo.Query(ctx, audit.QueryFilter{ActorType: audit.ActorStudent}, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, string(extra), string(entries[0].ExtraData))

	require.NoError(t, repo.Delete(ctx, entries[0].ID))
	assert.Equal(t, audit.ErrNotFound, repo.Delete(ctx, entries[0].ID))
}
