package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/util"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const (
	ClientContextKey contextKey = "client"
)

// Claims : токен сервиса-клиента (бот, фронтенд), пользователей у нас нет
type Claims struct {
	Client  string `json:"client"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	*config.AuthConfig
	now func() time.Time
}

func NewJWTService(cfg *config.AuthConfig) *JWTService {
	return &JWTService{AuthConfig: cfg, now: time.Now}
}

// IssueServiceToken : подписанный HS512 токен для клиента с именем client
func (service *JWTService) IssueServiceToken(client string) (string, error) {
	if strings.TrimSpace(client) == "" {
		return "", fmt.Errorf("имя клиента обязательно")
	}

	now := service.now()
	claims := Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   client,
			ExpiresAt: jwt.NewNumericDate(now.Add(service.ServiceTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    service.Issuer,
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	token, err := jwtToken.SignedString([]byte(service.SecretKey))
	if err != nil {
		return "", util.LogError("ошибка подписи токена", err)
	}
	return token, nil
}

func (service *JWTService) ValidateJWT(jwtTokenStr string) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return []byte(service.SecretKey), nil
	}, jwt.WithIssuer(service.Issuer), jwt.WithTimeFunc(service.now))

	if err != nil {
		return nil, fmt.Errorf("невалидный токен: %w", err)
	}
	if !jwtToken.Valid {
		return nil, fmt.Errorf("невалидный токен")
	}

	return claims, nil
}

// ServiceAuthMiddleware : Bearer токен сервиса или admin_token из конфигурации
func ServiceAuthMiddleware(jwtService *JWTService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(handleAuthentication(jwtService, next))
	}
}

func handleAuthentication(jwtService *JWTService, next http.Handler) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		authorizationHeader := request.Header.Get("Authorization")
		if !strings.HasPrefix(authorizationHeader, "Bearer ") {
			util.HandleError(writer, "нужен заголовок Authorization: Bearer <token>", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authorizationHeader, "Bearer ")

		if jwtService.AdminToken != "" && token == jwtService.AdminToken {
			adminClaims := &Claims{
				Client:  "admin",
				IsAdmin: true,
			}
			req := request.WithContext(context.WithValue(request.Context(), ClientContextKey, adminClaims))
			next.ServeHTTP(writer, req)
			return
		}

		claims, err := jwtService.ValidateJWT(token)
		if err != nil {
			log.Printf("[ServiceAuth] %v", err)
			util.HandleError(writer, "невалидный токен", http.StatusUnauthorized)
			return
		}

		req := request.WithContext(context.WithValue(request.Context(), ClientContextKey, claims))
		next.ServeHTTP(writer, req)
	}
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(ClientContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("клиент не авторизован")
	}
	return claims, nil
}
