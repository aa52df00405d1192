// Package sqlxrepos implements the domain repositories over sqlx, building queries with squirrel.
// Queries stick to SQL understood by both postgres and sqlite.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/storage/database"
)

type repo struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func newRepo(db *sqlx.DB) repo {
	return repo{db: db, sb: database.Builder(db.DriverName())}
}

func (r repo) get(ctx context.Context, exec core.DBExecutor, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.GetContext(ctx, dest, query, args...)
}

func (r repo) sel(ctx context.Context, exec core.DBExecutor, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.SelectContext(ctx, dest, query, args...)
}

// exec runs q and returns the number of affected rows.
func (r repo) exec(ctx context.Context, exec core.DBExecutor, q sq.Sqlizer) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r repo) count(ctx context.Context, exec core.DBExecutor, q sq.SelectBuilder) (int, error) {
	var n int
	err := r.get(ctx, exec, &n, q.RemoveColumns().Column("COUNT(*)"))
	return n, err
}

// inTx runs fn in a transaction, rolled back when fn fails.
func (r repo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func orderBy(q sq.SelectBuilder, ordering []core.DBOrdering, defaults ...string) sq.SelectBuilder {
	if len(ordering) == 0 {
		return q.OrderBy(defaults...)
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return q.OrderBy(clauses...)
}

func paginate(q sq.SelectBuilder, page core.Page) sq.SelectBuilder {
	return q.Limit(page.Limit()).Offset(page.Offset())
}

// like builds a case-insensitive "contains" match on any of cols; kw must be lowercase.
func like(kw string, cols ...string) sq.Or {
	val := "%" + escapeLike(kw) + "%"
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.Expr("LOWER("+col+") LIKE ? ESCAPE '\\'", val))
	}
	return or
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// trapNoRows maps sql.ErrNoRows to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}
