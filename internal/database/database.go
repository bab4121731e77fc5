/*
Package database is the boundary to the stored cycle records. It owns the
Postgres connection pool and turns cycle rows plus dated symptom notes into the
cycle summaries the recommendation engine consumes.
*/
package database

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"Cyclepulse/internal/config"
	"Cyclepulse/internal/cycle"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxHistoryCycles bounds how many past cycles are sent for analysis.
const maxHistoryCycles = 12

//go:embed schema.sql
var schemaSQL string

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	// Migrate creates the cycle tables when they do not exist yet.
	Migrate(ctx context.Context) error

	// CycleHistory loads the most recent cycles of a user, oldest first,
	// each carrying the symptoms noted during it.
	CycleHistory(ctx context.Context, userID string) ([]cycle.CycleSummary, error)

	// Close terminates the database connection.
	Close()
}

type service struct {
	pool   *pgxpool.Pool
	dbName string
}

// CycleRecord is one row of user_cycles.
type CycleRecord struct {
	CycleID        int64     `db:"cycle_id"`
	StartDate      time.Time `db:"start_date"`
	CycleLength    int32     `db:"cycle_length"`
	PeriodDuration int32     `db:"period_duration"`
}

// SymptomNote is one dated symptom label attached to a cycle.
type SymptomNote struct {
	CycleID int64  `db:"cycle_id"`
	Symptom string `db:"symptom"`
}

const listRecentCycles = `
SELECT cycle_id, start_date, cycle_length, period_duration
FROM (
	SELECT cycle_id, start_date, cycle_length, period_duration
	FROM user_cycles
	WHERE user_id = $1
	ORDER BY start_date DESC
	LIMIT $2
) recent
ORDER BY start_date ASC`

const listCycleSymptomNotes = `
SELECT cycle_id, symptom
FROM user_symptom_notes
WHERE user_id = $1 AND cycle_id IS NOT NULL
ORDER BY noted_on ASC, note_id ASC`

// NewService creates the connection pool. The pool connects lazily, so a
// missing database only surfaces on first use.
func NewService(cfg config.DatabaseConfig) (Service, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.Schema)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	return &service{pool: pool, dbName: cfg.Name}, nil
}

// Migrate implements Service.
func (s *service) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CycleHistory implements Service. Cycles and notes are fetched concurrently.
func (s *service) CycleHistory(ctx context.Context, userID string) ([]cycle.CycleSummary, error) {
	var (
		records []CycleRecord
		notes   []SymptomNote
	)

	g, grpCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.pool.Query(grpCtx, listRecentCycles, userID, maxHistoryCycles)
		if err != nil {
			return fmt.Errorf("failed to query cycles: %w", err)
		}
		records, err = pgx.CollectRows(rows, pgx.RowToStructByName[CycleRecord])
		if err != nil {
			return fmt.Errorf("failed to scan cycles: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := s.pool.Query(grpCtx, listCycleSymptomNotes, userID)
		if err != nil {
			return fmt.Errorf("failed to query symptom notes: %w", err)
		}
		notes, err = pgx.CollectRows(rows, pgx.RowToStructByName[SymptomNote])
		if err != nil {
			return fmt.Errorf("failed to scan symptom notes: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return AssembleCycles(records, notes), nil
}

// AssembleCycles attaches notes to their cycles. Cycle order is kept; within a
// cycle, symptoms keep note order and repeated labels are listed once. Notes
// for cycles outside records are ignored.
func AssembleCycles(records []CycleRecord, notes []SymptomNote) []cycle.CycleSummary {
	byCycle := make(map[int64][]string, len(records))
	seen := make(map[int64]map[string]bool, len(records))

	for _, n := range notes {
		if n.Symptom == "" {
			continue
		}
		if seen[n.CycleID] == nil {
			seen[n.CycleID] = map[string]bool{}
		}
		if seen[n.CycleID][n.Symptom] {
			continue
		}
		seen[n.CycleID][n.Symptom] = true
		byCycle[n.CycleID] = append(byCycle[n.CycleID], n.Symptom)
	}

	summaries := make([]cycle.CycleSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, cycle.CycleSummary{
			StartDate:      r.StartDate,
			CycleLength:    int(r.CycleLength),
			PeriodDuration: int(r.PeriodDuration),
			Symptoms:       byCycle[r.CycleID],
		})
	}
	return summaries
}

// Health checks the health of the database connection.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Warn().Err(err).Msg("Cycle history database is unreachable")
		return stats
	}

	poolStats := s.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["empty_acquire_count"] = strconv.FormatInt(poolStats.EmptyAcquireCount(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) {
		stats["message"] = "The database connection pool is experiencing heavy load."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() {
	log.Info().Str("database", s.dbName).Msg("Disconnected from database")
	s.pool.Close()
}
