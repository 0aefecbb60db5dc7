package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
	"github.com/vreid/stakes/internal/pkg/common"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrUnknownAsset = errors.New("asset doesn't exist")
	ErrAssetExists  = errors.New("asset already exists")
	ErrNotOwner     = errors.New("asset not held by sender")
	ErrInvalidSpec  = errors.New("invalid asset spec")
)

type RegistryService struct {
	DatabaseService *common.DatabaseService
}

func NewRegistryService(i do.Injector) (*RegistryService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)

	result := &RegistryService{
		DatabaseService: databaseService,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(result.RegisterRoutes)

	return result, nil
}

func (s *RegistryService) RegisterRoutes(e *echo.Echo) {
	registryGroup := e.Group("/api/registry")

	registryGroup.GET("/assets/:id", s.GetAsset)
	registryGroup.GET("/holdings/:owner", s.GetHoldings)
}

func getAsset(tx *bolt.Tx, id AssetID) (*Asset, error) {
	assets, err := common.Bucket(tx, common.RegistryAssetBucket)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	raw := assets.Get([]byte(id))
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}

	var asset Asset

	err = json.Unmarshal(raw, &asset)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset %s: %w", id, err)
	}

	return &asset, nil
}

func putAsset(tx *bolt.Tx, asset *Asset) error {
	assets, err := common.Bucket(tx, common.RegistryAssetBucket)
	if err != nil {
		return err //nolint:wrapcheck
	}

	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("failed to marshal asset %s: %w", asset.ID, err)
	}

	err = assets.Put([]byte(asset.ID), raw)
	if err != nil {
		return fmt.Errorf("failed to put asset %s: %w", asset.ID, err)
	}

	return nil
}

// ResolveAssetID maps spec to the identifier of an already minted asset.
func ResolveAssetID(tx *bolt.Tx, spec AssetSpec) (AssetID, error) {
	id := spec.ID()

	_, err := getAsset(tx, id)
	if err != nil {
		return "", err
	}

	return id, nil
}

func Mint(tx *bolt.Tx, spec AssetSpec, to Address) (AssetID, error) {
	if spec.Issuer == "" || spec.Collection == "" || spec.Name == "" || to == "" {
		return "", ErrInvalidSpec
	}

	id := spec.ID()

	_, err := getAsset(tx, id)
	if err == nil {
		return "", fmt.Errorf("%w: %s", ErrAssetExists, id)
	}

	if !errors.Is(err, ErrUnknownAsset) {
		return "", err
	}

	err = putAsset(tx, &Asset{
		ID:    id,
		Spec:  spec,
		Owner: to,
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// Transfer moves id from one holder to another. It fails without side
// effects unless from currently holds the asset.
func Transfer(tx *bolt.Tx, from, to Address, id AssetID) error {
	asset, err := getAsset(tx, id)
	if err != nil {
		return err
	}

	if asset.Owner != from {
		return fmt.Errorf("%w: %s is not held by %s", ErrNotOwner, id, from)
	}

	asset.Owner = to

	return putAsset(tx, asset)
}

func OwnerOf(tx *bolt.Tx, id AssetID) (Address, error) {
	asset, err := getAsset(tx, id)
	if err != nil {
		return "", err
	}

	return asset.Owner, nil
}

func Holdings(tx *bolt.Tx, owner Address) ([]Asset, error) {
	assets, err := common.Bucket(tx, common.RegistryAssetBucket)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	result := []Asset{}

	err = assets.ForEach(func(k, v []byte) error {
		var asset Asset

		err := json.Unmarshal(v, &asset)
		if err != nil {
			return fmt.Errorf("failed to unmarshal asset %s: %w", k, err)
		}

		if asset.Owner == owner {
			result = append(result, asset)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assets: %w", err)
	}

	return result, nil
}

func (s *RegistryService) MintAsset(spec AssetSpec, to Address) (AssetID, error) {
	var id AssetID

	err := s.DatabaseService.DB.Update(func(tx *bolt.Tx) error {
		var err error

		id, err = Mint(tx, spec, to)

		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to mint asset: %w", err)
	}

	log.WithFields(log.Fields{
		"asset":      id,
		"collection": spec.Collection,
		"name":       spec.Name,
		"owner":      to,
	}).Info("asset minted")

	return id, nil
}

func (s *RegistryService) Asset(id AssetID) (*Asset, error) {
	var asset *Asset

	err := s.DatabaseService.DB.View(func(tx *bolt.Tx) error {
		var err error

		asset, err = getAsset(tx, id)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}

	return asset, nil
}

func (s *RegistryService) HoldingsOf(owner Address) ([]Asset, error) {
	var result []Asset

	err := s.DatabaseService.DB.View(func(tx *bolt.Tx) error {
		var err error

		result, err = Holdings(tx, owner)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings: %w", err)
	}

	return result, nil
}

func (s *RegistryService) GetAsset(c echo.Context) error {
	asset, err := s.Asset(AssetID(c.Param("id")))
	if errors.Is(err, ErrUnknownAsset) {
		return echo.NewHTTPError(http.StatusNotFound, "asset not found")
	}

	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read asset")
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, asset, "  ")
}

func (s *RegistryService) GetHoldings(c echo.Context) error {
	holdings, err := s.HoldingsOf(Address(c.Param("owner")))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read holdings")
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, holdings, "  ")
}
