package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"village-portal/internal/database"
	"village-portal/internal/reconcile"
)

// placeholders returns "$start, $start+1, ..." for n arguments.
func placeholders(start int, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func stringArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// lockRow takes a row lock on table.id for the rest of the transaction.
func lockRow(ctx context.Context, q database.DBTX, table string, id string) error {
	var one int
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 FOR UPDATE`, table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return reconcile.ErrParentNotFound
	}
	if err != nil {
		return fmt.Errorf("lock %s row: %w", table, err)
	}
	return nil
}

func rowExists(ctx context.Context, q database.DBTX, table string, id string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", table, err)
	}
	return exists, nil
}

// deleteChildren removes ids from table, scoped to the parent column.
func deleteChildren(ctx context.Context, q database.DBTX, table string, parentColumn string, parentID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := append([]any{parentID}, stringArgs(ids)...)
	res, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND id IN (%s)`, table, parentColumn, placeholders(2, len(ids))),
		args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return res.RowsAffected()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
