// Package postgresdb provides the PostgreSQL-backed implementation of the
// entity store. It owns the schema via goose migrations and maps database
// constraint violations onto the storage sentinel errors.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/fittrack/internal/db/storage"
	"github.com/patric-chuzhbe/fittrack/internal/models"
)

const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
)

// PostgresDB is a PostgreSQL-backed entity store.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables dropping all public tables before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("error while `result.resetDB()` calling: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

// CreateUser inserts a new user record and returns it with the generated id.
// A unique-constraint violation on the username maps to storage.ErrUsernameTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, username string) (*models.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (username) VALUES ($1) RETURNING id`,
		username,
	)

	var userID string
	err := row.Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return nil, storage.ErrUsernameTaken
		}
		return nil, err
	}

	return &models.User{
		ID:       userID,
		Username: username,
	}, nil
}

// GetUserByID fetches a user by id. An unknown id maps to storage.ErrUserNotFound.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, username FROM users WHERE id = $1`,
		userID,
	)

	usr := &models.User{}
	err := row.Scan(&usr.ID, &usr.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return usr, nil
}

// GetUsers returns all users in registration order.
func (db *PostgresDB) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, username FROM users ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.User{}
	for rows.Next() {
		var usr models.User
		err = rows.Scan(&usr.ID, &usr.Username)
		if err != nil {
			return nil, err
		}

		result = append(result, usr)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// InsertExercise stores an exercise entry for its owning user and returns it
// with the generated id. A foreign-key violation on the owner maps to
// storage.ErrUserNotFound.
func (db *PostgresDB) InsertExercise(ctx context.Context, exercise *models.Exercise) (*models.Exercise, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO exercises (user_id, description, duration, date)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		exercise.UserID,
		exercise.Description,
		exercise.Duration,
		exercise.Date,
	)

	stored := *exercise
	err := row.Scan(&stored.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return &stored, nil
}

// FindExercisesByUser returns every exercise entry that belongs to the given
// user. Rows come back in insertion order, but callers must not rely on it.
func (db *PostgresDB) FindExercisesByUser(ctx context.Context, userID string) ([]models.Exercise, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, description, duration, date
				FROM exercises
				WHERE user_id = $1
				ORDER BY seq
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		var exercise models.Exercise
		err = rows.Scan(
			&exercise.ID,
			&exercise.UserID,
			&exercise.Description,
			&exercise.Duration,
			&exercise.Date,
		)
		if err != nil {
			return nil, err
		}

		result = append(result, exercise)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)

	var count int64
	err := row.Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetNumberOfExercises returns the total amount of logged exercises.
func (db *PostgresDB) GetNumberOfExercises(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM exercises`)

	var count int64
	err := row.Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Ping verifies connectivity with the database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("error while `db.database.ExecContext()` calling: %w", err)
	}

	return nil
}
