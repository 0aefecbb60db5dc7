package wager

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/stakes/internal/pkg/auth"
	"github.com/vreid/stakes/internal/pkg/common"
	"github.com/vreid/stakes/internal/pkg/registry"
)

type WagerService struct {
	Store *Store

	AuthService *auth.AuthService
}

func NewWagerService(i do.Injector) (*WagerService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)
	authService := do.MustInvoke[*auth.AuthService](i)
	resolutionSink := do.MustInvokeNamed[chan<- Resolution](i, "resolution-sink")

	result := &WagerService{
		Store:       NewStore(databaseService.DB, resolutionSink),
		AuthService: authService,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(result.RegisterRoutes)

	return result, nil
}

func (s *WagerService) RegisterRoutes(e *echo.Echo) {
	authenticated := s.AuthService.Middleware()

	wagerGroup := e.Group("/api/wagers")

	wagerGroup.GET("/:creator", s.GetWager)

	wagerGroup.POST("", s.PostInitialize, authenticated)
	wagerGroup.POST("/cancel", s.PostCancel, authenticated)
	wagerGroup.POST("/play", s.PostPlay, authenticated)
	wagerGroup.POST("/:creator/join", s.PostJoin, authenticated)
	wagerGroup.POST("/:creator/claim", s.PostClaim, authenticated)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func httpError(err error) error {
	code, status := ErrorCode(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}

	return echo.NewHTTPError(status, errorResponse{
		Code:    code,
		Message: message,
	}).SetInternal(err)
}

func caller(c echo.Context) registry.Address {
	return registry.Address(auth.Identity(c))
}

func (s *WagerService) GetWager(c echo.Context) error {
	record, err := s.Store.Get(c.Request().Context(), registry.Address(c.Param("creator")))
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, record, "  ")
}

func (s *WagerService) PostInitialize(c echo.Context) error {
	var request InitializeRequest

	err := c.Bind(&request)
	if err != nil {
		return httpError(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	record, err := s.Store.Initialize(c.Request().Context(), caller(c), request.Asset, request.JoinRequirement)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusCreated, record, "  ")
}

func (s *WagerService) PostCancel(c echo.Context) error {
	record, err := s.Store.Cancel(c.Request().Context(), caller(c))
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, record, "  ")
}

func (s *WagerService) PostJoin(c echo.Context) error {
	var stakes StakeBatch

	err := c.Bind(&stakes)
	if err != nil {
		return httpError(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	record, err := s.Store.Join(c.Request().Context(), caller(c), registry.Address(c.Param("creator")), stakes)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, record, "  ")
}

func (s *WagerService) PostPlay(c echo.Context) error {
	var request PlayRequest

	err := c.Bind(&request)
	if err != nil {
		return httpError(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	record, err := s.Store.Play(c.Request().Context(), caller(c), request.CreatorWon)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, record, "  ")
}

func (s *WagerService) PostClaim(c echo.Context) error {
	record, err := s.Store.Claim(c.Request().Context(), caller(c), registry.Address(c.Param("creator")))
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSONPretty(http.StatusOK, record, "  ")
}
