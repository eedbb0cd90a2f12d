package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/auth"
)

type blacklist struct {
	db *sqlx.DB
}

var _ auth.Blacklist = (*blacklist)(nil) // interface compliance check

// NewBlacklist returns a refresh token blacklist stored in the token_blacklist table.
func NewBlacklist(db *sqlx.DB) auth.Blacklist {
	return &blacklist{db: db}
}

func (bl *blacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	// drop expired tokens while at it
	if _, err := bl.db.ExecContext(ctx, `DELETE FROM "token_blacklist" WHERE "expires_at" < NOW()`); err != nil {
		return errors.Wrap(err, "pruning token blacklist")
	}
	_, err := bl.db.ExecContext(ctx,
		insertQuery("token_blacklist", []string{"jti", "expires_at"})+` ON CONFLICT ("jti") DO NOTHING`,
		jti, expiresAt,
	)
	return errors.Wrap(err, "blacklisting token")
}

func (bl *blacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := bl.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM "token_blacklist" WHERE "jti" = $1)`, jti)
	return exists, errors.Wrap(err, "checking token blacklist")
}
