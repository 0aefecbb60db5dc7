package wager

import (
	"errors"
	"fmt"
	"time"

	"github.com/vreid/stakes/internal/pkg/registry"
	"github.com/vreid/stakes/internal/pkg/vault"
)

type Outcome uint8

const (
	NotResolved Outcome = 0
	CreatorWon  Outcome = 1
	CreatorLost Outcome = 2
)

func OutcomeOf(creatorWon bool) Outcome {
	if creatorWon {
		return CreatorWon
	}

	return CreatorLost
}

func (o Outcome) String() string {
	switch o {
	case CreatorWon:
		return "creator_won"
	case CreatorLost:
		return "creator_lost"
	case NotResolved:
		return "not_resolved"
	}

	return "unknown"
}

var ErrInvalidOutcome = errors.New("invalid outcome")

func (o Outcome) MarshalText() ([]byte, error) {
	switch o {
	case NotResolved, CreatorWon, CreatorLost:
		return []byte(o.String()), nil
	}

	return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, o)
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{NotResolved, CreatorWon, CreatorLost} {
		if candidate.String() == string(text) {
			*o = candidate

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidOutcome, text)
}

// Record is the wager state of one creator.
type Record struct {
	Creator         registry.Address   `json:"creator"`
	CreatorAsset    registry.AssetID   `json:"creator_asset"`
	JoinRequirement uint64             `json:"join_requirement"`
	Opponent        registry.Address   `json:"opponent,omitempty"`
	OpponentAssets  []registry.AssetID `json:"opponent_assets"`
	Active          bool               `json:"active"`
	Outcome         Outcome            `json:"outcome"`
	Claimed         bool               `json:"claimed"`
	VaultAddress    registry.Address   `json:"vault"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	vault *vault.Capability
}

func (r *Record) HasOpponent() bool {
	return len(r.Opponent) > 0
}

// Resolution is published once a wager outcome is fixed.
type Resolution struct {
	Creator    registry.Address `json:"creator"`
	Opponent   registry.Address `json:"opponent"`
	CreatorWon bool             `json:"creator_won"`
}

// StakeBatch describes the assets an opponent stakes as four parallel
// sequences, one entry per asset.
type StakeBatch struct {
	Issuers     []registry.Address `json:"issuers"`
	Collections []string           `json:"collections"`
	Names       []string           `json:"names"`
	Versions    []uint64           `json:"versions"`
}

func (b StakeBatch) Len() int {
	return len(b.Collections)
}

func (b StakeBatch) Spec(idx int) registry.AssetSpec {
	return registry.AssetSpec{
		Issuer:     b.Issuers[idx],
		Collection: b.Collections[idx],
		Name:       b.Names[idx],
		Version:    b.Versions[idx],
	}
}

type InitializeRequest struct {
	Asset           registry.AssetSpec `json:"asset"`
	JoinRequirement uint64             `json:"join_requirement"`
}

type PlayRequest struct {
	CreatorWon bool `json:"creator_won"`
}
