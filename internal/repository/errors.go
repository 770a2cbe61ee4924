package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert collides with a unique constraint.
var ErrDuplicate = errors.New("repository: duplicate record")

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// appendTargets whitelists the array columns that support set-style appends.
var appendTargets = map[string]map[string]bool{
	"users":      {"courses": true, "course_progress": true},
	"courses":    {"enrolled_students": true, "sections": true, "ratings": true},
	"sections":   {"lessons": true},
	"categories": {"courses": true},
}

// appendUnique adds value to the array column of row id unless it is already a member. It reports
// whether the array changed. A missing row yields sql.ErrNoRows.
func appendUnique(ctx context.Context, db sqlx.ExtContext, table, column, id, value string) (bool, error) {
	if !appendTargets[table][column] {
		return false, fmt.Errorf("append to %s.%s not allowed", table, column)
	}
	touch := ""
	if table != "categories" {
		touch = ", updated_at = NOW()"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = array_append(%s, $2)%s WHERE id = $1 AND NOT ($2 = ANY(%s))`,
		table, column, column, touch, column)
	res, err := db.ExecContext(ctx, query, id, value)
	if err != nil {
		return false, fmt.Errorf("append %s.%s: %w", table, column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append %s.%s rows: %w", table, column, err)
	}
	if affected > 0 {
		return true, nil
	}
	return false, ensureExists(ctx, db, table, id)
}

func ensureExists(ctx context.Context, db sqlx.ExtContext, table, id string) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := sqlx.GetContext(ctx, db, &exists, query, id); err != nil {
		return fmt.Errorf("check %s exists: %w", table, err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
