package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenProvider возвращает значение заголовка Authorization для запроса.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken — API-ключ вида "Token <key>".
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return "Token " + token, nil
	}
}

// ZGWToken выпускает короткоживущий HS256 JWT в формате авторизации ZGW API
// (client_id + общий секрет). Токен подписывается на каждый запрос.
func ZGWToken(clientID, secret string, now func() time.Time) TokenProvider {
	if now == nil {
		now = time.Now
	}
	return func(context.Context) (string, error) {
		claims := jwt.MapClaims{
			"iss":                 clientID,
			"iat":                 now().Unix(),
			"client_id":           clientID,
			"user_id":             clientID,
			"user_representation": clientID,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			return "", fmt.Errorf("подпись ZGW JWT: %w", err)
		}
		return "Bearer " + signed, nil
	}
}
