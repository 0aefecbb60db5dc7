package wager

import (
	"fmt"

	"github.com/vreid/stakes/internal/pkg/registry"
	"github.com/vreid/stakes/internal/pkg/vault"
)

// Guards inspect a record and never mutate it. A nil record means no wager
// is stored for the requested identity.

func exists(r *Record) error {
	if r == nil {
		return ErrNotFound
	}

	return nil
}

func doesNotExist(r *Record) error {
	if r != nil {
		return ErrAlreadyExists
	}

	return nil
}

func isActive(r *Record) error {
	if !r.Active {
		return ErrNotActive
	}

	return nil
}

func isNotActive(r *Record) error {
	if r.Active {
		return ErrStillActive
	}

	return nil
}

func hasOpponent(r *Record) error {
	if !r.HasOpponent() {
		return ErrNoOpponent
	}

	return nil
}

func hasNoOpponent(r *Record) error {
	if r.HasOpponent() {
		return ErrHasOpponent
	}

	return nil
}

// joinRequirementMet also rejects an empty stake, since an opponent is only
// recorded together with at least one asset.
func joinRequirementMet(r *Record, staked int) error {
	if staked == 0 || uint64(staked) < r.JoinRequirement { //nolint:gosec
		return ErrJoinRequirementNotMet
	}

	return nil
}

func hasOutcome(r *Record) error {
	if r.Outcome == NotResolved {
		return ErrNoOutcome
	}

	return nil
}

func notYetClaimed(r *Record) error {
	if r.Claimed {
		return ErrAlreadyClaimed
	}

	return nil
}

func callerIsParticipant(caller registry.Address, r *Record) error {
	if caller == r.Creator || (r.HasOpponent() && caller == r.Opponent) {
		return nil
	}

	return ErrNotParticipant
}

func callerIsNotVault(caller registry.Address) error {
	if vault.IsVaultAddress(caller) {
		return fmt.Errorf("%w: %s", vault.ErrVaultIdentity, caller)
	}

	return nil
}

func equalLengthBatches(b StakeBatch) error {
	n := len(b.Collections)
	if len(b.Issuers) != n || len(b.Names) != n || len(b.Versions) != n {
		return ErrLengthMismatch
	}

	return nil
}

// check runs guards in order and returns the first failure.
func check(guards ...func() error) error {
	for _, guard := range guards {
		err := guard()
		if err != nil {
			return err
		}
	}

	return nil
}
