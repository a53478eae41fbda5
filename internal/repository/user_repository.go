package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/user-service/shared/models"
)

// UserRepository is the persistence contract used by the user services.
// FindByID returns (nil, nil) when no user has the given id.
type UserRepository interface {
	FindAll(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
	DeleteByID(ctx context.Context, id int64) error
}

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id           BIGSERIAL PRIMARY KEY,
		email        TEXT   NOT NULL,
		first_name   TEXT   NOT NULL,
		last_name    TEXT   NOT NULL,
		birth_date   DATE   NOT NULL,
		address      TEXT,
		phone_number BIGINT NOT NULL DEFAULT 0
	)
`

const (
	selectUsersQuery = `
		SELECT id, email, first_name, last_name, birth_date, address, phone_number
		FROM users
		ORDER BY id
	`
	selectUserByIDQuery = `
		SELECT id, email, first_name, last_name, birth_date, address, phone_number
		FROM users
		WHERE id = $1
	`
	insertUserQuery = `
		INSERT INTO users (email, first_name, last_name, birth_date, address, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	upsertUserQuery = `
		INSERT INTO users (id, email, first_name, last_name, birth_date, address, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			birth_date = EXCLUDED.birth_date, address = EXCLUDED.address, phone_number = EXCLUDED.phone_number
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

// UserWriteRepository stores users in PostgreSQL, the source of truth.
type UserWriteRepository struct {
	db *sql.DB
}

var _ UserRepository = (*UserWriteRepository)(nil)

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

// EnsureSchema creates the users table when it does not exist yet.
func (r *UserWriteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var birthDate time.Time
	var address sql.NullString

	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &birthDate, &address, &user.PhoneNumber); err != nil {
		return nil, err
	}
	user.BirthDate = models.DateOf(birthDate)
	if address.Valid {
		user.Address = address.String
	}
	return &user, nil
}

func (r *UserWriteRepository) FindAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserWriteRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Save inserts the user when ID is zero and assigns the generated id,
// otherwise it overwrites the row with that id.
func (r *UserWriteRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	saved := *user
	saved.BirthDate = models.DateOf(user.BirthDate)

	if saved.ID == 0 {
		err := r.db.QueryRowContext(ctx, insertUserQuery,
			saved.Email, saved.FirstName, saved.LastName, saved.BirthDate, nullString(saved.Address), saved.PhoneNumber,
		).Scan(&saved.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return &saved, nil
	}

	_, err := r.db.ExecContext(ctx, upsertUserQuery,
		saved.ID, saved.Email, saved.FirstName, saved.LastName, saved.BirthDate, nullString(saved.Address), saved.PhoneNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &saved, nil
}

// DeleteByID removes the row. Deleting a missing id is not an error.
func (r *UserWriteRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, deleteUserQuery, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
