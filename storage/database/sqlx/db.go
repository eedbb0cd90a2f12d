package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/nojinx/ssm/core"
)

// executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
}

func quote(col string) string {
	return `"` + col + `"`
}

func insertQuery(table string, cols []string) string {
	return fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		quote(table),
		strings.Join(strmangle.IdentQuoteSlice('"', '"', cols), ","),
		strmangle.Placeholders(true, len(cols), 1, 1),
	)
}

// updateQuery sets cols on the row whose pk is the last arg.
func updateQuery(table string, cols []string, pk string) string {
	return fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s = $%d`,
		quote(table),
		strmangle.SetParamNames(`"`, `"`, 1, cols),
		quote(pk),
		len(cols)+1,
	)
}

// inPlaceholders returns "($start,...,$start+n-1)".
func inPlaceholders(start, n int) string {
	return "(" + strmangle.Placeholders(true, n, start, 1) + ")"
}

// orderByClause maps orderings to " ORDER BY ..." using columns (field -> column). Unknown fields are dropped.
func orderByClause(ordering []core.DBOrdering, columns map[string]string, def string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: quote(col), Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// where accumulates AND-ed conditions with positional args.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, where each "?" is replaced by the next positional placeholder.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, "("+cond+")")
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// postgres unique_violation error code
const uniqueViolation = "23505"

// checkAffected returns errNotFound when the statement matched no row.
func checkAffected(res sql.Result, err error, errNotFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

func nullDate(d core.Date) null.Time {
	return null.NewTime(d.Time, !d.IsZero())
}

func toDate(t null.Time) core.Date {
	if !t.Valid {
		return core.Date{}
	}
	return core.NewDate(t.Time.Year(), t.Time.Month(), t.Time.Day())
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t, !t.IsZero())
}

func toTime(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// placeholderGroups returns rows groups of size (> 1) placeholders: "($1,$2),($3,$4)".
func placeholderGroups(rows, size int) string {
	return strmangle.Placeholders(true, rows*size, 1, size)
}
