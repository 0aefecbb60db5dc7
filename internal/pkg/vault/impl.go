package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vreid/stakes/internal/pkg/common"
	"github.com/vreid/stakes/internal/pkg/registry"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrVaultExists   = errors.New("vault already exists")
	ErrUnknownVault  = errors.New("vault doesn't exist")
	ErrNoCapability  = errors.New("missing vault capability")
	ErrVaultIdentity = errors.New("vault identities cannot act as players")
)

const addressPrefix = "vault:"

//nolint:gochecknoglobals
var vaultNamespace = uuid.MustParse("0c9e7d52-3b8a-4f61-b2d4-6a1e5f9c7b30")

// Capability is the only handle that can move assets out of a vault.
// It is obtained from CreateVault or Open and has no exported fields.
type Capability struct {
	address registry.Address
	owner   registry.Address
}

func (c *Capability) Address() registry.Address {
	return c.address
}

func (c *Capability) Owner() registry.Address {
	return c.owner
}

// DeriveAddress returns the vault identity bound to owner.
func DeriveAddress(owner registry.Address) registry.Address {
	return registry.Address(addressPrefix + uuid.NewSHA1(vaultNamespace, []byte(owner)).String())
}

// IsVaultAddress reports whether address lies in the namespace reserved for
// vaults. Such an address never holds assets on its own behalf.
func IsVaultAddress(address registry.Address) bool {
	return strings.HasPrefix(string(address), addressPrefix)
}

func CreateVault(tx *bolt.Tx, owner registry.Address) (*Capability, error) {
	accounts, err := common.Bucket(tx, common.VaultAccountsBucket)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	address := DeriveAddress(owner)
	if accounts.Get([]byte(address)) != nil {
		return nil, fmt.Errorf("%w: %s", ErrVaultExists, address)
	}

	err = accounts.Put([]byte(address), []byte(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to put vault %s: %w", address, err)
	}

	return &Capability{
		address: address,
		owner:   owner,
	}, nil
}

// Open rebinds the capability of a vault previously created for owner.
func Open(tx *bolt.Tx, owner registry.Address) (*Capability, error) {
	accounts, err := common.Bucket(tx, common.VaultAccountsBucket)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	address := DeriveAddress(owner)

	stored := accounts.Get([]byte(address))
	if stored == nil || registry.Address(stored) != owner {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVault, address)
	}

	return &Capability{
		address: address,
		owner:   owner,
	}, nil
}

func Deposit(tx *bolt.Tx, c *Capability, from registry.Address, id registry.AssetID) error {
	if c == nil {
		return ErrNoCapability
	}

	if IsVaultAddress(from) {
		return fmt.Errorf("%w: %s", ErrVaultIdentity, from)
	}

	err := registry.Transfer(tx, from, c.address, id)
	if err != nil {
		return fmt.Errorf("failed to deposit %s into %s: %w", id, c.address, err)
	}

	return nil
}

func Release(tx *bolt.Tx, c *Capability, to registry.Address, id registry.AssetID) error {
	if c == nil {
		return ErrNoCapability
	}

	err := registry.Transfer(tx, c.address, to, id)
	if err != nil {
		return fmt.Errorf("failed to release %s from %s: %w", id, c.address, err)
	}

	return nil
}

func HoldsAsset(tx *bolt.Tx, c *Capability, id registry.AssetID) (bool, error) {
	if c == nil {
		return false, ErrNoCapability
	}

	owner, err := registry.OwnerOf(tx, id)
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	return owner == c.address, nil
}
