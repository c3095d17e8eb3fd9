// Package user provides the user credential domain model.
package user

import (
	"time"

	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
)

// Role represents the user's role carried inside session tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// QuestionCount is the number of security questions every account
// carries. Recovery requires all of them to be answered correctly.
const QuestionCount = 3

// User is a stored account credential.
type User struct {
	ID           shared.ID
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SecurityQuestion is one recovery question bound to a user. The answer
// is stored as a salted digest, never in clear text. The question text
// itself is the identifier used on the wire.
type SecurityQuestion struct {
	ID           shared.ID
	UserID       shared.ID
	Question     string
	AnswerSalt   string
	AnswerDigest string
}

// QuestionTexts extracts the question identifiers in stored order.
func QuestionTexts(questions []SecurityQuestion) []string {
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.Question)
	}
	return texts
}
