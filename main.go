package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
	"github.com/vreid/stakes/internal/pkg/auth"
	"github.com/vreid/stakes/internal/pkg/common"
	"github.com/vreid/stakes/internal/pkg/registry"
	"github.com/vreid/stakes/internal/pkg/scorer"
	"github.com/vreid/stakes/internal/pkg/wager"

	"github.com/urfave/cli/v3"
)

type StakesService struct {
	EchoService *common.EchoService `do:""`

	RegistryService *registry.RegistryService `do:""`
	WagerService    *wager.WagerService       `do:""`
	ScorerService   *scorer.ScorerService     `do:""`
}

func configureLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	//nolint:wrapcheck
	return ctx, common.ConfigureLogging(cmd.String("log-level"))
}

func runServer(_ context.Context, cmd *cli.Command) error {
	i := do.New()

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))

	do.ProvideNamedValue(i, "signature-secret", cmd.String("signature-secret"))
	do.ProvideNamedValue(i, "token-max-age-minutes", cmd.Int("token-max-age-minutes"))

	resolutionChan := make(chan wager.Resolution, cmd.Int("outcome-buffer"))
	var resolutionSource <-chan wager.Resolution = resolutionChan
	var resolutionSink chan<- wager.Resolution = resolutionChan

	do.ProvideNamedValue(i, "resolution-source", resolutionSource)
	do.ProvideNamedValue(i, "resolution-sink", resolutionSink)

	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, common.NewEchoService)
	do.Provide(i, auth.NewAuthService)

	do.Provide(i, registry.NewRegistryService)
	do.Provide(i, wager.NewWagerService)
	do.Provide(i, scorer.NewScorerService)

	do.Provide(i, do.InvokeStruct[StakesService])

	stakesService, err := do.Invoke[StakesService](i)
	if err != nil {
		return fmt.Errorf("failed to create stakes service: %w", err)
	}

	defer func() {
		_ = i.Shutdown()
	}()

	stakesService.ScorerService.Start()

	log.WithField("port", cmd.Int("port")).Info("stakes server starting")

	//nolint:wrapcheck
	return stakesService.EchoService.Start()
}

func runMint(_ context.Context, cmd *cli.Command) error {
	databaseService, err := common.OpenDatabase(cmd.String("data-dir"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	defer func() {
		_ = databaseService.Shutdown()
	}()

	registryService := &registry.RegistryService{
		DatabaseService: databaseService,
	}

	issuer := cmd.String("issuer")

	id, err := registryService.MintAsset(registry.AssetSpec{
		Issuer:     registry.Address(issuer),
		Collection: cmd.String("collection"),
		Name:       cmd.String("name"),
		Version:    cmd.Uint64("version"),
	}, registry.Address(cmd.String("to")))
	if err != nil {
		return fmt.Errorf("failed to mint: %w", err)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, id)

	//nolint:wrapcheck
	return err
}

func runToken(_ context.Context, cmd *cli.Command) error {
	token := auth.SignIdentity(cmd.String("identity"), []byte(cmd.String("signature-secret")), time.Now())

	_, err := fmt.Fprintf(cmd.Root().Writer, "%s: %s\n%s: %d\n%s: %s\n",
		auth.IdentityHeader, token.Identity,
		auth.TimestampHeader, token.Timestamp,
		auth.SignatureHeader, token.Signature)

	//nolint:wrapcheck
	return err
}

func dataDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Value:   "./stakes/data",
		Sources: cli.EnvVars("STAKES_DATA_DIR"),
	}
}

func signatureSecretFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "signature-secret",
		Value:   "secret",
		Sources: cli.EnvVars("STAKES_SIGNATURE_SECRET"),
	}
}

//nolint:funlen
func newCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name: "stakes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("STAKES_LOG_LEVEL"),
			},
		},
		Before: configureLogging,
		Commands: []*cli.Command{
			{
				Name: "server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Value:   3000, //nolint:mnd
						Sources: cli.EnvVars("STAKES_PORT"),
					},
					dataDirFlag(),
					signatureSecretFlag(),
					&cli.IntFlag{
						Name:    "token-max-age-minutes",
						Value:   5,
						Sources: cli.EnvVars("STAKES_TOKEN_MAX_AGE_MINUTES"),
					},
					&cli.IntFlag{
						Name:    "outcome-buffer",
						Value:   1000, //nolint:mnd
						Sources: cli.EnvVars("STAKES_OUTCOME_BUFFER"),
					},
				},
				Action: runServer,
			},
			{
				Name:  "mint",
				Usage: "mint a collectible into the asset registry",
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.StringFlag{Name: "issuer", Required: true},
					&cli.StringFlag{Name: "collection", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.Uint64Flag{Name: "version", Value: 0},
					&cli.StringFlag{Name: "to", Required: true},
				},
				Action: runMint,
			},
			{
				Name:  "token",
				Usage: "print signed identity headers",
				Flags: []cli.Flag{
					signatureSecretFlag(),
					&cli.StringFlag{Name: "identity", Required: true},
				},
				Action: runToken,
			},
		},
		DefaultCommand: "server",
	}
}

func main() {
	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
