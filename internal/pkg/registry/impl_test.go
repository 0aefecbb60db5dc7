package registry_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/stakes/internal/pkg/common"
	registry "github.com/vreid/stakes/internal/pkg/registry"
	bolt "go.etcd.io/bbolt"
)

func openDatabase(t *testing.T) *common.DatabaseService {
	t.Helper()

	databaseService, err := common.OpenDatabase(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = databaseService.Shutdown()
	})

	return databaseService
}

func sword() registry.AssetSpec {
	return registry.AssetSpec{
		Issuer:     "studio",
		Collection: "armory",
		Name:       "sword",
		Version:    0,
	}
}

func TestAssetSpecID(t *testing.T) {
	t.Parallel()

	spec := sword()
	assert.Equal(t, spec.ID(), sword().ID())

	spec.Version = 1
	assert.NotEqual(t, sword().ID(), spec.ID())

	other := registry.AssetSpec{Issuer: "studio", Collection: "armor", Name: "ysword"}
	assert.NotEqual(t, sword().ID(), other.ID())
}

func TestMintAndTransfer(t *testing.T) {
	t.Parallel()

	databaseService := openDatabase(t)
	registryService := &registry.RegistryService{DatabaseService: databaseService}

	id, err := registryService.MintAsset(sword(), "alice")
	require.NoError(t, err)
	assert.Equal(t, sword().ID(), id)

	_, err = registryService.MintAsset(sword(), "bob")
	require.ErrorIs(t, err, registry.ErrAssetExists)

	err = databaseService.DB.Update(func(tx *bolt.Tx) error {
		return registry.Transfer(tx, "bob", "carol", id)
	})
	require.ErrorIs(t, err, registry.ErrNotOwner)

	err = databaseService.DB.Update(func(tx *bolt.Tx) error {
		return registry.Transfer(tx, "alice", "bob", id)
	})
	require.NoError(t, err)

	asset, err := registryService.Asset(id)
	require.NoError(t, err)
	assert.Equal(t, registry.Address("bob"), asset.Owner)

	holdings, err := registryService.HoldingsOf("alice")
	require.NoError(t, err)
	assert.Empty(t, holdings)

	holdings, err = registryService.HoldingsOf("bob")
	require.NoError(t, err)
	assert.Len(t, holdings, 1)
}

func TestResolveAssetID(t *testing.T) {
	t.Parallel()

	databaseService := openDatabase(t)

	err := databaseService.DB.View(func(tx *bolt.Tx) error {
		_, err := registry.ResolveAssetID(tx, sword())

		return err
	})
	require.ErrorIs(t, err, registry.ErrUnknownAsset)

	var id registry.AssetID

	err = databaseService.DB.Update(func(tx *bolt.Tx) error {
		_, err := registry.Mint(tx, sword(), "alice")
		if err != nil {
			return err
		}

		id, err = registry.ResolveAssetID(tx, sword())

		return err
	})
	require.NoError(t, err)
	assert.Equal(t, sword().ID(), id)
}

func TestMintRejectsIncompleteSpec(t *testing.T) {
	t.Parallel()

	registryService := &registry.RegistryService{DatabaseService: openDatabase(t)}

	_, err := registryService.MintAsset(registry.AssetSpec{Issuer: "studio"}, "alice")
	require.ErrorIs(t, err, registry.ErrInvalidSpec)
}

func TestGetAsset(t *testing.T) {
	t.Parallel()

	registryService := &registry.RegistryService{DatabaseService: openDatabase(t)}

	id, err := registryService.MintAsset(sword(), "alice")
	require.NoError(t, err)

	e := echo.New()
	registryService.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registry/assets/"+string(id), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var asset registry.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.Equal(t, registry.Address("alice"), asset.Owner)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registry/assets/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
