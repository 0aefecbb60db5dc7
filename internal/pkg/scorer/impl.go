package scorer

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
	"github.com/vreid/stakes/internal/pkg/common"
	"github.com/vreid/stakes/internal/pkg/wager"
	bolt "go.etcd.io/bbolt"
)

const DefaultRating = 1500.0

var ErrSelfPlay = errors.New("winner and loser are the same identity")

type ScorerService struct {
	DatabaseService *common.DatabaseService

	ResolutionSource <-chan wager.Resolution

	stop chan struct{}
	done chan struct{}
}

func NewScorerService(i do.Injector) (*ScorerService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)
	resolutionSource := do.MustInvokeNamed[<-chan wager.Resolution](i, "resolution-source")

	result := &ScorerService{
		DatabaseService: databaseService,

		ResolutionSource: resolutionSource,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(result.RegisterRoutes)

	return result, nil
}

func (s *ScorerService) RegisterRoutes(e *echo.Echo) {
	scorerGroup := e.Group("/api/scorer")

	scorerGroup.GET("/standings/:identity", s.GetStanding)
}

func (s *ScorerService) Start() {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.processResolutions(s.stop, s.done)
}

// Shutdown stops the resolution loop and waits for the resolution in
// flight, so nothing touches the database after it is closed.
func (s *ScorerService) Shutdown() error {
	if s.stop == nil {
		return nil
	}

	close(s.stop)
	<-s.done

	s.stop = nil

	return nil
}

func GetKFactor(gamesPlayed int64) float64 {
	if gamesPlayed <= 20 {
		return 128.0
	}

	if gamesPlayed <= 50 {
		return 64.0
	}

	return 32.0
}

func CalculateExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

func UpdateRatings(winner Scorecard, loser Scorecard) (Scorecard, Scorecard) {
	expectedWinner := CalculateExpectedScore(winner.Rating, loser.Rating)

	k := (GetKFactor(winner.Count) + GetKFactor(loser.Count)) / 2.0

	winner.Rating += k * (1.0 - expectedWinner)
	winner.Count++

	loser.Rating -= k * (1.0 - expectedWinner)
	loser.Count++

	return winner, loser
}

func readScorecard(ratings, count *bolt.Bucket, identity string) Scorecard {
	return Scorecard{
		Identity: identity,
		Rating:   common.BytesToFloat64(ratings.Get([]byte(identity)), DefaultRating),
		Count:    common.BytesToInt64(count.Get([]byte(identity)), 0),
	}
}

func writeScorecard(ratings, count *bolt.Bucket, scorecard Scorecard) error {
	err := ratings.Put([]byte(scorecard.Identity), common.Float64ToBytes(scorecard.Rating))
	if err != nil {
		return fmt.Errorf("failed to put rating of %s: %w", scorecard.Identity, err)
	}

	err = count.Put([]byte(scorecard.Identity), common.Int64ToBytes(scorecard.Count))
	if err != nil {
		return fmt.Errorf("failed to put count of %s: %w", scorecard.Identity, err)
	}

	return nil
}

func (s *ScorerService) HandleResolution(resolution wager.Resolution) error {
	winnerID, loserID := string(resolution.Opponent), string(resolution.Creator)
	if resolution.CreatorWon {
		winnerID, loserID = loserID, winnerID
	}

	if winnerID == loserID {
		return ErrSelfPlay
	}

	//nolint:wrapcheck
	return s.DatabaseService.DB.Update(func(tx *bolt.Tx) error {
		ratings, err := common.Bucket(tx, common.ScorerRatingsBucket)
		if err != nil {
			return err
		}

		count, err := common.Bucket(tx, common.ScorerCountBucket)
		if err != nil {
			return err
		}

		winner, loser := UpdateRatings(
			readScorecard(ratings, count, winnerID),
			readScorecard(ratings, count, loserID),
		)

		err = writeScorecard(ratings, count, winner)
		if err != nil {
			return err
		}

		return writeScorecard(ratings, count, loser)
	})
}

func (s *ScorerService) Standing(identity string) (Scorecard, error) {
	var result Scorecard

	err := s.DatabaseService.DB.View(func(tx *bolt.Tx) error {
		ratings, err := common.Bucket(tx, common.ScorerRatingsBucket)
		if err != nil {
			return err //nolint:wrapcheck
		}

		count, err := common.Bucket(tx, common.ScorerCountBucket)
		if err != nil {
			return err //nolint:wrapcheck
		}

		result = readScorecard(ratings, count, identity)

		return nil
	})
	if err != nil {
		return Scorecard{}, fmt.Errorf("failed to read standing: %w", err)
	}

	return result, nil
}

func (s *ScorerService) GetStanding(c echo.Context) error {
	scorecard, err := s.Standing(c.Param("identity"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read standing")
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, scorecard, "  ")
}

func (s *ScorerService) processResolutions(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case resolution, ok := <-s.ResolutionSource:
			if !ok {
				return
			}

			err := s.HandleResolution(resolution)
			if err != nil {
				log.WithError(err).
					WithField("creator", resolution.Creator).
					Warn("failed to score resolution")
			}
		}
	}
}
