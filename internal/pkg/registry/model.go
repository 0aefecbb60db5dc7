package registry

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Address identifies an account that can hold assets: a player or a vault.
type Address string

type AssetID string

//nolint:gochecknoglobals
var assetNamespace = uuid.MustParse("5b0f4a1e-7c53-4d8e-9a61-0f2d9b6c8e14")

// AssetSpec is the human readable description of a collectible.
// Issuer is the account that created the collection.
type AssetSpec struct {
	Issuer     Address `json:"issuer"`
	Collection string  `json:"collection"`
	Name       string  `json:"name"`
	Version    uint64  `json:"version"`
}

// ID derives the asset identifier. The same spec always yields the same ID.
func (s AssetSpec) ID() AssetID {
	key := strings.Join([]string{
		string(s.Issuer),
		s.Collection,
		s.Name,
		strconv.FormatUint(s.Version, 10),
	}, "\x00")

	return AssetID(uuid.NewSHA1(assetNamespace, []byte(key)).String())
}

type Asset struct {
	ID    AssetID   `json:"id"`
	Spec  AssetSpec `json:"spec"`
	Owner Address   `json:"owner"`
}
