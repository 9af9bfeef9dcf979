// Package agent defines the Agent domain entity: a registered participant
// identified by a unique name and an opaque bearer key.
package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Strob0t/ClawCouncil/internal/domain"
)

// KeyPrefix is prepended to generated agent keys for identification.
const KeyPrefix = "ck_"

// MaxNameLength is the upper bound on agent names, in characters.
const MaxNameLength = 64

// Agent is a participant in deliberation rounds. TotalScore is a cached
// projection of the agent's score-event ledger.
type Agent struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	KeyHash    string    `json:"-"` // SHA-256 of the plain key, never serialized
	TotalScore int       `json:"total_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegisterRequest is the input for registering a new agent.
type RegisterRequest struct {
	Name string `json:"name"`
}

// Validate trims the name in place and checks its bounds.
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return fmt.Errorf("%w: name must be %d characters or fewer", domain.ErrValidation, MaxNameLength)
	}
	return nil
}

// Registration is returned once at registration time; APIKey is never
// retrievable afterwards.
type Registration struct {
	Agent
	APIKey string `json:"api_key"`
}

// NewKey returns a fresh plain agent key.
func NewKey() string {
	return KeyPrefix + uuid.NewString()
}

// HashKey returns the hex SHA-256 digest under which a key is stored.
func HashKey(plain string) string {
	h := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(h[:])
}
