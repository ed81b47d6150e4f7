package membership

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"collabrelay/internal/pkg/logx"
)

// membershipQuery checks the project_members table owned by the project service.
const membershipQuery = `SELECT EXISTS (
	SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2
)`

// PostgresChecker answers membership questions from the tracker database.
type PostgresChecker struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresChecker constructs a PostgresChecker backed by the given pool.
func NewPostgresChecker(pool *pgxpool.Pool) *PostgresChecker {
	return &PostgresChecker{
		pool:   pool,
		logger: logx.Logger().With().Str("component", "MembershipChecker").Logger(),
	}
}

// Allowed reports whether identity is a member of the project identified by roomKey.
func (c *PostgresChecker) Allowed(ctx context.Context, identity string, roomKey string) (bool, error) {
	var allowed bool

	if err := c.pool.QueryRow(ctx, membershipQuery, roomKey, identity).Scan(&allowed); err != nil {
		c.logger.Error().
			Err(err).
			Str("room_key", roomKey).
			Msg("Membership lookup failed.")
		return false, fmt.Errorf("membership lookup for project %s: %w", roomKey, err)
	}

	return allowed, nil
}
