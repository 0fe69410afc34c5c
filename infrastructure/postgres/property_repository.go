// Package postgres answers property questions from a Postgres datastore.
package postgres

import (
	"chat-relay/contract"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectProperty = `SELECT name, address FROM properties WHERE id = $1`
	noPropertyID   = "Database query for properties would happen here."
)

var propertyID = regexp.MustCompile(`\d+`)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PropertyRepository struct {
	log *slog.Logger
	db  Querier
}

var _ contract.PropertyLookup = (*PropertyRepository)(nil)

func NewPropertyRepository(log *slog.Logger, db Querier) *PropertyRepository {
	return &PropertyRepository{log: log, db: db}
}

// NewPool opens a pool on dsn and checks connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// Describe looks up the first number found in text as a property id.
func (r *PropertyRepository) Describe(ctx context.Context, text string) (string, error) {
	match := propertyID.FindString(text)
	if match == "" {
		return noPropertyID, nil
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return fmt.Sprintf("I couldn't find any information on property %s.", match), nil
	}

	var name, address string
	err = r.db.QueryRow(ctx, selectProperty, id).Scan(&name, &address)
	if stdErrors.Is(err, pgx.ErrNoRows) {
		return fmt.Sprintf("I couldn't find any information on property %d.", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("property %d: %w", id, err)
	}
	r.log.Debug("Property found", "id", id)
	return fmt.Sprintf("Property %d: %s, %s", id, name, address), nil
}
