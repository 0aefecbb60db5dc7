package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
	"github.com/vreid/stakes/internal/pkg/registry"
	"github.com/vreid/stakes/internal/pkg/vault"
)

var (
	ErrMissingIdentity  = errors.New("missing identity")
	ErrInvalidSignature = errors.New("invalid identity signature")
	ErrTokenExpired     = errors.New("identity token expired")
)

type AuthService struct {
	SignatureSecret string

	TokenMaxAgeMinutes int
}

func NewAuthService(i do.Injector) (*AuthService, error) {
	signatureSecret := do.MustInvokeNamed[string](i, "signature-secret")
	tokenMaxAgeMinutes := do.MustInvokeNamed[int](i, "token-max-age-minutes")

	return &AuthService{
		SignatureSecret:    signatureSecret,
		TokenMaxAgeMinutes: tokenMaxAgeMinutes,
	}, nil
}

func ComputeSignature(identity string, timestamp int64, signatureSecret []byte) string {
	message := fmt.Sprintf("%s|%d", identity, timestamp)

	h := hmac.New(sha256.New, signatureSecret)
	h.Write([]byte(message))

	return hex.EncodeToString(h.Sum(nil))
}

func SignIdentity(identity string, signatureSecret []byte, now time.Time) Token {
	timestamp := now.Unix()

	return Token{
		Identity:  identity,
		Timestamp: timestamp,
		Signature: ComputeSignature(identity, timestamp, signatureSecret),
	}
}

func VerifyToken(token Token, signatureSecret []byte, maxAge time.Duration, now time.Time) error {
	if len(token.Identity) == 0 {
		return ErrMissingIdentity
	}

	if vault.IsVaultAddress(registry.Address(token.Identity)) {
		return vault.ErrVaultIdentity
	}

	signature := ComputeSignature(token.Identity, token.Timestamp, signatureSecret)
	if !hmac.Equal([]byte(token.Signature), []byte(signature)) {
		return ErrInvalidSignature
	}

	if now.Sub(time.Unix(token.Timestamp, 0)) > maxAge {
		return ErrTokenExpired
	}

	return nil
}

// Middleware rejects requests without a valid signed identity and stores
// the verified identity on the echo context.
func (s *AuthService) Middleware() echo.MiddlewareFunc {
	maxAge := time.Duration(s.TokenMaxAgeMinutes) * time.Minute

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header

			timestamp, err := strconv.ParseInt(header.Get(TimestampHeader), 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid identity timestamp")
			}

			token := Token{
				Identity:  header.Get(IdentityHeader),
				Timestamp: timestamp,
				Signature: header.Get(SignatureHeader),
			}

			err = VerifyToken(token, []byte(s.SignatureSecret), maxAge, time.Now())
			if err != nil {
				log.WithError(err).
					WithField("identity", token.Identity).
					Debug("rejected identity token")

				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set(identityKey, token.Identity)

			return next(c)
		}
	}
}

// Identity returns the caller identity set by Middleware.
func Identity(c echo.Context) string {
	identity, _ := c.Get(identityKey).(string)

	return identity
}
