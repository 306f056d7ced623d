// auth.go — проверка Bearer-токенов через JWKS.
// Включается параметром PE_JWKS_URL; субъект токена становится
// инициатором изменений в журнале аудита.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

var (
	errNoBearer     = errors.New("отсутствует заголовок Authorization")
	errBadBearer    = errors.New("неверный формат Authorization: ожидается Bearer <token>")
	errInvalidToken = errors.New("невалидный или просроченный токен")
)

// tokenClaims — claims, из которых берётся инициатор.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	ClientID          string `json:"client_id,omitempty"`
}

// JWTAuth валидирует RS256-токены по ключам JWKS.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	issuer    string
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewJWTAuth создаёт валидатор с фоновым обновлением JWKS.
// Недоступность JWKS при старте не мешает запуску.
func NewJWTAuth(
	jwksURL string,
	issuer string,
	clientTimeout time.Duration,
	refreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: clientTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	return NewJWTAuthWithKeyfunc(k, issuer, jwtLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт валидатор с готовой keyfunc (в тестах — статический JWKS).
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, jwtLeeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:      kf,
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}
}

// Authenticate извлекает инициатора из Bearer-токена запроса.
func (j *JWTAuth) Authenticate(r *http.Request) (model.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.Actor{}, errNoBearer
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return model.Actor{}, errBadBearer
	}

	claims := &tokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.jwtLeeway),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	token, err := jwt.ParseWithClaims(parts[1], claims, j.jwks.KeyfuncCtx(r.Context()), opts...)
	if err != nil || !token.Valid {
		j.logger.Debug("JWT валидация не пройдена",
			slog.Any("error", err),
			slog.String("remote_addr", r.RemoteAddr),
		)
		return model.Actor{}, errInvalidToken
	}

	id := claims.PreferredUsername
	if id == "" {
		id = claims.ClientID
	}
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return model.Actor{}, errInvalidToken
	}
	display := claims.Name
	if display == "" {
		display = id
	}
	return model.Actor{ID: id, DisplayName: display}, nil
}
