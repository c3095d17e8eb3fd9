package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
)

// UserRepository implements app.UserRepository using PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a user and their security questions atomically.
func (r *UserRepository) Create(ctx context.Context, u *user.User, questions []user.SecurityQuestion) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.ExecContext(ctx, query,
			u.ID.String(),
			u.Username,
			u.PasswordHash,
			u.Role.String(),
			u.CreatedAt,
			u.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("username %q: %w", u.Username, shared.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		qQuery := `
			INSERT INTO security_questions (id, user_id, question, answer_salt, answer_digest)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, q := range questions {
			_, err := tx.ExecContext(ctx, qQuery,
				q.ID.String(),
				q.UserID.String(),
				q.Question,
				q.AnswerSalt,
				q.AnswerDigest,
			)
			if err != nil {
				return fmt.Errorf("failed to insert security question: %w", err)
			}
		}
		return nil
	})
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	var u user.User
	var role string
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	u.Role = user.Role(role)
	return &u, nil
}

// SecurityQuestions returns the user's security questions in stored order.
func (r *UserRepository) SecurityQuestions(ctx context.Context, userID shared.ID) ([]user.SecurityQuestion, error) {
	query := `
		SELECT id, user_id, question, answer_salt, answer_digest
		FROM security_questions
		WHERE user_id = $1
		ORDER BY question
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query security questions: %w", err)
	}
	defer rows.Close()

	questions := make([]user.SecurityQuestion, 0, user.QuestionCount)
	for rows.Next() {
		var q user.SecurityQuestion
		if err := rows.Scan(&q.ID, &q.UserID, &q.Question, &q.AnswerSalt, &q.AnswerDigest); err != nil {
			return nil, fmt.Errorf("failed to scan security question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security questions: %w", err)
	}

	return questions, nil
}

// UpdatePassword replaces the user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID shared.ID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID.String(), passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", userID.String(), shared.ErrNotFound)
	}
	return nil
}
