package wager

import (
	"errors"
	"net/http"

	"github.com/vreid/stakes/internal/pkg/registry"
	"github.com/vreid/stakes/internal/pkg/vault"
)

var (
	ErrAlreadyExists         = errors.New("wager already exists")
	ErrNotFound              = errors.New("wager not found")
	ErrNotActive             = errors.New("wager is not active")
	ErrStillActive           = errors.New("wager is still active")
	ErrHasOpponent           = errors.New("wager already has an opponent")
	ErrNoOpponent            = errors.New("wager has no opponent")
	ErrJoinRequirementNotMet = errors.New("not enough assets staked to join")
	ErrNoOutcome             = errors.New("wager has no outcome")
	ErrAlreadyClaimed        = errors.New("wager already claimed")
	ErrNotParticipant        = errors.New("caller is not a participant")
	ErrLengthMismatch        = errors.New("stake sequences differ in length")
	ErrInvalidRequest        = errors.New("invalid request body")
)

type errorKind struct {
	err    error
	code   string
	status int
}

//nolint:gochecknoglobals
var errorKinds = []errorKind{
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict},
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrNotActive, "NOT_ACTIVE", http.StatusConflict},
	{ErrStillActive, "STILL_ACTIVE", http.StatusConflict},
	{ErrHasOpponent, "HAS_OPPONENT", http.StatusConflict},
	{ErrNoOpponent, "NO_OPPONENT", http.StatusConflict},
	{ErrJoinRequirementNotMet, "JOIN_REQUIREMENT_NOT_MET", http.StatusBadRequest},
	{ErrNoOutcome, "NO_OUTCOME", http.StatusConflict},
	{ErrAlreadyClaimed, "ALREADY_CLAIMED", http.StatusConflict},
	{ErrNotParticipant, "NOT_PARTICIPANT", http.StatusForbidden},
	{ErrLengthMismatch, "LENGTH_MISMATCH", http.StatusBadRequest},
	{ErrInvalidRequest, "BAD_REQUEST", http.StatusBadRequest},
	{vault.ErrVaultIdentity, "VAULT_IDENTITY", http.StatusForbidden},
	{registry.ErrUnknownAsset, "UNKNOWN_ASSET", http.StatusNotFound},
	{registry.ErrNotOwner, "NOT_OWNER", http.StatusForbidden},
}

// ErrorCode returns the stable code and HTTP status for err.
// Unknown errors map to INTERNAL.
func ErrorCode(err error) (string, int) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.code, kind.status
		}
	}

	return "INTERNAL", http.StatusInternalServerError
}
