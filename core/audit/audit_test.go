package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	logsvc "github.com/nojinx/ssm/services/logger"
	inmemdb "github.com/nojinx/ssm/storage/database/inmem"
)

func newService() *audit.Service {
	logger := logsvc.NewRollbarLogger(zap.NewNop(), core.NewTestConfig())
	return audit.NewService(inmemdb.NewAuditRepository(inmemdb.Open()), logger)
}

func TestService_Query(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	actor := audit.Actor{Type: audit.ActorStaff, ID: "S001", Name: "Jane Doe"}
	for i := 0; i < audit.PageSize+1; i++ {
		svc.Record(ctx, actor, audit.Event{Action: audit.ActionLogin, Message: "logged in"})
	}

	tests := []struct {
		name     string
		page     int
		wantPage int
		wantLen  int
	}{
		{name: "default page", page: 0, wantPage: 1, wantLen: audit.PageSize},
		{name: "negative page", page: -3, wantPage: 1, wantLen: audit.PageSize},
		{name: "last page", page: 2, wantPage: 2, wantLen: 1},
		{name: "past the end", page: 3, wantPage: 3},
		{name: "huge page", page: 184467440737095518},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.Query(ctx, audit.QueryFilter{Page: tt.page})
			require.NoError(t, err)
			assert.Equal(t, audit.PageSize+1, page.Count)
			assert.Len(t, page.Results, tt.wantLen)
			if tt.wantPage > 0 {
				assert.Equal(t, tt.wantPage, page.Page)
			}
		})
	}
}

func TestService_Record(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	svc.Record(ctx, audit.Actor{}, audit.Event{Action: audit.ActionLogout, Extra: map[string]interface{}{"client_type": "web"}})
	page, err := svc.Query(ctx, audit.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)

	e := page.Results[0]
	assert.Equal(t, audit.ActorAnonymous, e.ActorType)
	assert.JSONEq(t, `{"client_type":"web"}`, string(e.ExtraData))
	assert.Equal(t, "—", e.MessageShort())

	assert.Equal(t, audit.ErrNotFound, svc.Delete(ctx, "lol"))
	require.NoError(t, svc.Delete(ctx, e.ID))
}
