package wager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vreid/stakes/internal/pkg/common"
	"github.com/vreid/stakes/internal/pkg/registry"
	"github.com/vreid/stakes/internal/pkg/vault"
	bolt "go.etcd.io/bbolt"
)

// Store owns the wager records. Every operation runs inside a single bbolt
// write transaction, so guards, asset transfers and the record update
// commit together or not at all. bbolt allows one writer at a time, which
// serializes all mutations of a record.
type Store struct {
	DB *bolt.DB

	ResolutionSink chan<- Resolution

	Now func() time.Time
}

func NewStore(db *bolt.DB, resolutionSink chan<- Resolution) *Store {
	return &Store{
		DB:             db,
		ResolutionSink: resolutionSink,
		Now:            time.Now,
	}
}

func loadRecord(tx *bolt.Tx, creator registry.Address) (*Record, error) {
	records, err := common.Bucket(tx, common.WagerRecordsBucket)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	raw := records.Get([]byte(creator))
	if raw == nil {
		return nil, nil //nolint:nilnil
	}

	var record Record

	err = json.Unmarshal(raw, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal wager %s: %w", creator, err)
	}

	capability, err := vault.Open(tx, record.Creator)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault of wager %s: %w", creator, err)
	}

	if capability.Address() != record.VaultAddress {
		return nil, fmt.Errorf("%w: wager %s is bound to %s", vault.ErrUnknownVault, creator, record.VaultAddress)
	}

	record.vault = capability

	return &record, nil
}

func saveRecord(tx *bolt.Tx, record *Record) error {
	records, err := common.Bucket(tx, common.WagerRecordsBucket)
	if err != nil {
		return err //nolint:wrapcheck
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal wager %s: %w", record.Creator, err)
	}

	err = records.Put([]byte(record.Creator), raw)
	if err != nil {
		return fmt.Errorf("failed to put wager %s: %w", record.Creator, err)
	}

	return nil
}

// detached returns a copy that carries no capability and shares no slices.
func (r *Record) detached() *Record {
	result := *r
	result.vault = nil
	result.OpponentAssets = append([]registry.AssetID{}, r.OpponentAssets...)

	return &result
}

func (s *Store) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	//nolint:wrapcheck
	return s.DB.Update(fn)
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}

	return s.Now().UTC()
}

// Initialize moves the creator's asset into a fresh vault and opens a wager.
func (s *Store) Initialize(
	ctx context.Context,
	creator registry.Address,
	asset registry.AssetSpec,
	joinRequirement uint64,
) (*Record, error) {
	err := callerIsNotVault(creator)
	if err != nil {
		log.WithError(err).WithField("creator", creator).Debug("initialize rejected")

		return nil, err
	}

	var result *Record

	err = s.update(ctx, func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, creator)
		if err != nil {
			return err
		}

		err = doesNotExist(record)
		if err != nil {
			return err
		}

		assetID, err := registry.ResolveAssetID(tx, asset)
		if err != nil {
			return err //nolint:wrapcheck
		}

		capability, err := vault.CreateVault(tx, creator)
		if err != nil {
			return err //nolint:wrapcheck
		}

		err = vault.Deposit(tx, capability, creator, assetID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		now := s.now()
		record = &Record{
			Creator:         creator,
			CreatorAsset:    assetID,
			JoinRequirement: joinRequirement,
			OpponentAssets:  []registry.AssetID{},
			Active:          true,
			Outcome:         NotResolved,
			VaultAddress:    capability.Address(),
			CreatedAt:       now,
			UpdatedAt:       now,
			vault:           capability,
		}

		result = record.detached()

		return saveRecord(tx, record)
	})
	if err != nil {
		log.WithError(err).WithField("creator", creator).Debug("initialize rejected")

		return nil, err
	}

	log.WithFields(log.Fields{
		"creator":          creator,
		"asset":            result.CreatorAsset,
		"join_requirement": joinRequirement,
	}).Info("wager created")

	return result, nil
}

// Cancel returns the creator's asset while nobody has joined yet.
func (s *Store) Cancel(ctx context.Context, creator registry.Address) (*Record, error) {
	var result *Record

	err := s.update(ctx, func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, creator)
		if err != nil {
			return err
		}

		err = check(
			func() error { return exists(record) },
			func() error { return isActive(record) },
			func() error { return hasNoOpponent(record) },
		)
		if err != nil {
			return err
		}

		err = vault.Release(tx, record.vault, record.Creator, record.CreatorAsset)
		if err != nil {
			return err //nolint:wrapcheck
		}

		record.Active = false
		record.UpdatedAt = s.now()

		result = record.detached()

		return saveRecord(tx, record)
	})
	if err != nil {
		log.WithError(err).WithField("creator", creator).Debug("cancel rejected")

		return nil, err
	}

	log.WithField("creator", creator).Info("wager cancelled")

	return result, nil
}

// Join stakes the opponent's assets into the vault of the wager at gameAddress.
func (s *Store) Join(
	ctx context.Context,
	opponent registry.Address,
	gameAddress registry.Address,
	stakes StakeBatch,
) (*Record, error) {
	err := check(
		func() error { return equalLengthBatches(stakes) },
		func() error { return callerIsNotVault(opponent) },
	)
	if err != nil {
		log.WithError(err).WithField("creator", gameAddress).Debug("join rejected")

		return nil, err
	}

	var result *Record

	err = s.update(ctx, func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, gameAddress)
		if err != nil {
			return err
		}

		err = check(
			func() error { return exists(record) },
			func() error { return isActive(record) },
			func() error { return hasNoOpponent(record) },
			func() error { return joinRequirementMet(record, stakes.Len()) },
		)
		if err != nil {
			return err
		}

		assetIDs := make([]registry.AssetID, 0, stakes.Len())

		for idx := range stakes.Len() {
			assetID, err := registry.ResolveAssetID(tx, stakes.Spec(idx))
			if err != nil {
				return err //nolint:wrapcheck
			}

			err = vault.Deposit(tx, record.vault, opponent, assetID)
			if err != nil {
				return err //nolint:wrapcheck
			}

			assetIDs = append(assetIDs, assetID)
		}

		record.Opponent = opponent
		record.OpponentAssets = assetIDs
		record.UpdatedAt = s.now()

		result = record.detached()

		return saveRecord(tx, record)
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"creator":  gameAddress,
			"opponent": opponent,
		}).Debug("join rejected")

		return nil, err
	}

	log.WithFields(log.Fields{
		"creator":  gameAddress,
		"opponent": opponent,
		"staked":   len(result.OpponentAssets),
	}).Info("wager joined")

	return result, nil
}

// Play fixes the outcome of a joined wager. It cannot be changed afterwards.
func (s *Store) Play(ctx context.Context, creator registry.Address, creatorWon bool) (*Record, error) {
	var result *Record

	err := s.update(ctx, func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, creator)
		if err != nil {
			return err
		}

		err = check(
			func() error { return exists(record) },
			func() error { return isActive(record) },
			func() error { return hasOpponent(record) },
		)
		if err != nil {
			return err
		}

		record.Outcome = OutcomeOf(creatorWon)
		record.Active = false
		record.UpdatedAt = s.now()

		result = record.detached()

		return saveRecord(tx, record)
	})
	if err != nil {
		log.WithError(err).WithField("creator", creator).Debug("play rejected")

		return nil, err
	}

	log.WithFields(log.Fields{
		"creator":  creator,
		"opponent": result.Opponent,
		"outcome":  result.Outcome,
	}).Info("wager resolved")

	s.publish(Resolution{
		Creator:    result.Creator,
		Opponent:   result.Opponent,
		CreatorWon: creatorWon,
	})

	return result, nil
}

// Claim settles a finished wager. When the creator won, the opponent's
// staked assets are released to the opponent. A lost or cancelled wager
// moves nothing, and the creator's own asset is never moved here.
// TODO: settle CreatorLost and the creator asset once the owners confirm the payout rule.
func (s *Store) Claim(ctx context.Context, caller registry.Address, gameAddress registry.Address) (*Record, error) {
	var result *Record

	err := s.update(ctx, func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, gameAddress)
		if err != nil {
			return err
		}

		err = check(
			func() error { return exists(record) },
			func() error { return isNotActive(record) },
			func() error { return notYetClaimed(record) },
			func() error { return callerIsParticipant(caller, record) },
		)
		if err != nil {
			return err
		}

		if record.Outcome == CreatorWon {
			for _, assetID := range record.OpponentAssets {
				err = vault.Release(tx, record.vault, record.Opponent, assetID)
				if err != nil {
					return err //nolint:wrapcheck
				}
			}
		}

		record.Claimed = true
		record.UpdatedAt = s.now()

		result = record.detached()

		return saveRecord(tx, record)
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"creator": gameAddress,
			"caller":  caller,
		}).Debug("claim rejected")

		return nil, err
	}

	log.WithFields(log.Fields{
		"creator": gameAddress,
		"caller":  caller,
		"outcome": result.Outcome,
	}).Info("wager claimed")

	return result, nil
}

func (s *Store) Get(ctx context.Context, creator registry.Address) (*Record, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	var result *Record

	err = s.DB.View(func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, creator)
		if err != nil {
			return err
		}

		err = exists(record)
		if err != nil {
			return err
		}

		result = record.detached()

		return nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return result, nil
}

func (s *Store) Outcome(ctx context.Context, creator registry.Address) (Outcome, error) {
	record, err := s.Get(ctx, creator)
	if err != nil {
		return NotResolved, err
	}

	err = hasOutcome(record)
	if err != nil {
		return NotResolved, err
	}

	return record.Outcome, nil
}

// HoldsAsset reports whether the vault of the wager at creator holds id.
func (s *Store) HoldsAsset(ctx context.Context, creator registry.Address, id registry.AssetID) (bool, error) {
	err := ctx.Err()
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}

	var holds bool

	err = s.DB.View(func(tx *bolt.Tx) error {
		record, err := loadRecord(tx, creator)
		if err != nil {
			return err
		}

		err = exists(record)
		if err != nil {
			return err
		}

		holds, err = vault.HoldsAsset(tx, record.vault, id)

		return err //nolint:wrapcheck
	})
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	return holds, nil
}

func (s *Store) publish(resolution Resolution) {
	if s.ResolutionSink == nil {
		return
	}

	select {
	case s.ResolutionSink <- resolution:
	default:
		log.WithField("creator", resolution.Creator).Warn("resolution sink full, dropping resolution")
	}
}
