// auth.go — аутентификация владельцев сессий рендеринга.
// Bearer-токен RS256 проверяется по JWKS провайдера; sub токена
// становится владельцем открытых таблиц. health и metrics исключаются
// на уровне сервера (server.JWTAuthWithExclusions).
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/talentdesk/internal/api/errors"
)

type contextKey string

// ContextKeyClaims — ключ контекста с claims проверенного токена.
const ContextKeyClaims contextKey = "td_claims"

// signingMethod — единственный принимаемый алгоритм подписи.
const signingMethod = "RS256"

// Claims — claims токена рекрутера.
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
}

// DisplayName — имя рекрутера для журналов: username, email или sub.
func (c *Claims) DisplayName() string {
	switch {
	case c.PreferredUsername != "":
		return c.PreferredUsername
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}

// JWTAuth проверяет токены рекрутеров.
type JWTAuth struct {
	keys   keyfunc.Keyfunc
	opts   []jwt.ParserOption
	logger *slog.Logger
}

// JWTAuthConfig — параметры JWTAuth.
type JWTAuthConfig struct {
	JWKSURL         string
	CACertPath      string        // пусто — системный пул
	Issuer          string        // пусто — issuer не проверяется
	ClientTimeout   time.Duration // таймаут загрузки JWKS
	RefreshInterval time.Duration
	JWTLeeway       time.Duration
}

// NewJWTAuth создаёт JWTAuth с ключами из JWKS провайдера.
// Недоступность провайдера при старте не ошибка: ключи подтянутся при обновлении.
func NewJWTAuth(cfg JWTAuthConfig, logger *slog.Logger) (*JWTAuth, error) {
	client, err := jwksHTTPClient(cfg.CACertPath, cfg.ClientTimeout)
	if err != nil {
		return nil, err
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Не удалось обновить ключи JWKS",
				slog.String("url", cfg.JWKSURL),
				slog.String("error", err.Error()),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("хранилище JWKS: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("keyfunc: %w", err)
	}
	return NewJWTAuthWithKeyfunc(kf, cfg.Issuer, cfg.JWTLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт JWTAuth с готовой keyfunc (тесты, статический JWKS).
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTAuth{
		keys:   kf,
		opts:   opts,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// bearerToken извлекает токен из Authorization.
// Вторым значением возвращается причина отказа.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Отсутствует заголовок Authorization"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "Ожидается Authorization: Bearer <token>"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "Пустой Bearer token"
	}
	return token, ""
}

// authenticate разбирает и проверяет токен, возвращает claims с непустым sub.
func (j *JWTAuth) authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, j.keys.KeyfuncCtx(ctx), j.opts...); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// Middleware пропускает запрос дальше только с валидным токеном
// и кладёт его claims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, reason := bearerToken(r)
			if reason != "" {
				apierrors.Unauthorized(w, reason)
				return
			}

			claims, err := j.authenticate(r.Context(), raw)
			if err != nil {
				j.logger.Debug("Токен отклонён",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("error", err.Error()),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			j.logger.Debug("Рекрутер аутентифицирован",
				slog.String("sub", claims.Subject),
				slog.String("user", claims.DisplayName()),
			)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims)))
		})
	}
}

// ClaimsFromContext возвращает claims запроса или nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(ContextKeyClaims).(*Claims)
	return c
}

// SubjectFromContext возвращает sub владельца или "", если запрос без токена.
func SubjectFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// jwksHTTPClient — клиент загрузки JWKS, с дополнительным CA, если задан.
func jwksHTTPClient(caCertPath string, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	if caCertPath == "" {
		return client, nil
	}

	pem, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("CA-сертификат JWKS: %w", err)
	}
	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA-сертификат JWKS %s: нет PEM-блоков", caCertPath)
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12},
	}
	return client, nil
}

// JWKSReadinessChecker — готовность провайдера аутентификации:
// JWKS отдаётся и содержит хотя бы один RSA-ключ подписи.
type JWKSReadinessChecker struct {
	url    string
	client *http.Client
}

// NewJWKSReadinessChecker создаёт проверку JWKS.
func NewJWKSReadinessChecker(jwksURL, caCertPath string, timeout time.Duration) (*JWKSReadinessChecker, error) {
	client, err := jwksHTTPClient(caCertPath, timeout)
	if err != nil {
		return nil, err
	}
	return &JWKSReadinessChecker{url: jwksURL, client: client}, nil
}

// CheckReady: fail — JWKS недоступен, degraded — нет пригодных ключей.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), k.client.Timeout+time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, http.NoBody)
	if err != nil {
		return "fail", "запрос JWKS: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G107: URL из конфигурации
	if err != nil {
		return "fail", "JWKS недоступен: " + err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("JWKS: статус %d", resp.StatusCode)
	}

	var set jwkset.JWKSMarshal
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return "degraded", "JWKS: невалидный JSON: " + err.Error()
	}
	usable := 0
	for _, key := range set.Keys {
		if key.KTY == jwkset.KtyRSA && (key.USE == "" || key.USE == jwkset.UseSig) {
			usable++
		}
	}
	if usable == 0 {
		return "degraded", fmt.Sprintf("JWKS: нет RSA-ключей подписи (всего ключей %d)", len(set.Keys))
	}
	return "ok", fmt.Sprintf("JWKS: RSA-ключей подписи %d", usable)
}
