package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"handoff_service/internal/config"
	"handoff_service/internal/models"
	"handoff_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code raised when an insert hits the
// unique index on verifications.code.
const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	repo := &PostgresRepo{pool: pool}

	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return repo, nil
}

func (r *PostgresRepo) ensureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS verifications (
			id BIGSERIAL PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			file_ref TEXT NOT NULL,
			file_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		);
	`

	_, err := r.pool.Exec(ctx, query)

	return err
}

// SaveVerification inserts a record for an already generated code.
// A collision with a live or stale code returns storage.ErrCodeExists so the
// caller can regenerate.
func (r *PostgresRepo) SaveVerification(ctx context.Context, v models.Verification) error {
	const op = "storage.postgres.SaveVerification"

	query := `
		INSERT INTO verifications (code, file_ref, file_name, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := r.pool.Exec(ctx, query, v.Code, v.FileRef, v.FileName, v.CreatedAt, v.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrCodeExists
		}

		return fmt.Errorf("%s: failed to save verification: %w", op, err)
	}

	return nil
}

// Verification returns the live record for a code. Expired rows are filtered
// here rather than deleted; the reaper removes them later.
func (r *PostgresRepo) Verification(ctx context.Context, code string) (models.Verification, error) {
	const op = "storage.postgres.Verification"

	query := `
		SELECT code, file_ref, file_name, created_at, expires_at
		FROM verifications
		WHERE code = $1 AND expires_at > NOW();
	`

	row := r.pool.QueryRow(ctx, query, code)

	var v models.Verification
	err := row.Scan(
		&v.Code,
		&v.FileRef,
		&v.FileName,
		&v.CreatedAt,
		&v.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Verification{}, storage.ErrCodeNotFound
		}

		return models.Verification{}, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// DeleteVerification removes a code. Deleting an absent code is not an error.
func (r *PostgresRepo) DeleteVerification(ctx context.Context, code string) error {
	const op = "storage.postgres.DeleteVerification"

	query := `DELETE FROM verifications WHERE code = $1`

	_, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpired removes rows whose expiry has passed and reports how many.
func (r *PostgresRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const op = "storage.postgres.DeleteExpired"

	query := `DELETE FROM verifications WHERE expires_at <= NOW()`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
