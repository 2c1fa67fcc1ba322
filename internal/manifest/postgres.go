package manifest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS generation_runs (
		id              BIGSERIAL PRIMARY KEY,
		run_id          TEXT NOT NULL,
		split           TEXT NOT NULL,
		seed            BIGINT NOT NULL,
		target          INTEGER NOT NULL,
		written         INTEGER NOT NULL,
		attempts        INTEGER NOT NULL,
		exhausted       BOOLEAN NOT NULL,
		format          TEXT NOT NULL,
		path            TEXT NOT NULL,
		sha256          TEXT NOT NULL,
		label_counts    TEXT NOT NULL,
		mean_similarity DOUBLE PRECISION NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresStore keeps manifest entries in the generation_runs table
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore connects and makes sure the table exists
func NewPostgresStore(config *Config, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Manifest store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

func (s *PostgresStore) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create generation_runs table: %w", err)
	}
	return nil
}

// Record implements Store.
func (s *PostgresStore) Record(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO generation_runs (run_id, split, seed, target, written, attempts, exhausted,
			format, path, sha256, label_counts, mean_similarity, created_at)
		VALUES (:run_id, :split, :seed, :target, :written, :attempts, :exhausted,
			:format, :path, :sha256, :label_counts, :mean_similarity, :created_at)
		RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, query, run)
	if err != nil {
		s.logger.Error("Failed to record run", zap.Error(err), zap.String("split", run.Split))
		return fmt.Errorf("failed to record run: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return fmt.Errorf("failed to read run id: %w", err)
		}
	}

	s.logger.Debug("Run recorded",
		zap.Int64("id", run.ID),
		zap.String("run_id", run.RunID),
		zap.String("split", run.Split))

	return rows.Err()
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, run_id, split, seed, target, written, attempts, exhausted,
			format, path, sha256, label_counts, mean_similarity, created_at
		FROM generation_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	var runs []*Run
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password of a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	scheme := strings.Index(userPart, "://")
	if colon < 0 || colon <= scheme+2 {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
