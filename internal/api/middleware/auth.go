// auth.go — JWT middleware для аутентификации запросов к записям анализа.
// Два режима верификации подписи (AN_AUTH_MODE):
//   - secret — HS256 с общим секретом (AN_JWT_SECRET)
//   - jwks   — RS256, ключи с JWKS endpoint провайдера токенов
//
// Все виды отказа (отсутствующий заголовок, битый формат, просроченный
// токен, неверная подпись, неизвестный subject) возвращают ЕДИНЫЙ
// 401-ответ — различимы причины только в логах и метриках.
// Публичные endpoints (health, metrics, analyze) подключаются без этого middleware.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/goanstore/analysis-module/internal/api/errors"
)

// authFailuresTotal — счётчик отказов аутентификации по причинам.
var authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "an_auth_failures_total",
	Help: "Общее количество отказов аутентификации по причинам.",
}, []string{"reason"})

// Причины отказа аутентификации (лейбл reason, в ответ не попадают).
const (
	reasonMissingToken   = "missing_token"
	reasonMalformedToken = "malformed_token"
	reasonExpiredToken   = "expired_token"
	reasonInvalidToken   = "invalid_token"
	reasonUnknownSubject = "unknown_subject"
)

// unauthorizedMessage — единый текст 401 для всех причин отказа.
const unauthorizedMessage = "Требуется действительный токен аутентификации"

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySubject — ключ для sub из JWT в контексте запроса.
const ContextKeySubject contextKey = "jwt_subject"

// SubjectResolver проверяет существование subject в хранилище пользователей.
// Токен с валидной подписью, но неизвестным subject не проходит аутентификацию.
type SubjectResolver interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Claims — структура JWT claims модуля анализа.
// Используются только RegisteredClaims: идентичность определяет sub.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTAuth — middleware для JWT-аутентификации.
// В режиме secret jwks == nil и подпись проверяется общим секретом;
// в режиме jwks secret пуст и ключи берутся из JWKS.
type JWTAuth struct {
	jwks         keyfunc.Keyfunc
	secret       []byte
	validMethods []string
	issuer       string
	jwtLeeway    time.Duration
	resolver     SubjectResolver
	logger       *slog.Logger
}

// JWTAuthConfig — параметры для создания JWT middleware в режиме jwks.
type JWTAuthConfig struct {
	// URL JWKS endpoint
	JWKSURL string
	// Путь к CA-сертификату (опционально)
	CACertPath string
	// Пропускать проверку TLS-сертификатов
	TLSSkipVerify bool
	// Таймаут HTTP-клиента JWKS
	ClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	RefreshInterval time.Duration
	// Ожидаемый issuer токена (пусто — не проверяется)
	Issuer string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
}

// NewJWTAuthSecret создаёт JWT middleware в режиме общего секрета (HS256).
func NewJWTAuthSecret(
	secret string,
	issuer string,
	jwtLeeway time.Duration,
	resolver SubjectResolver,
	logger *slog.Logger,
) (*JWTAuth, error) {
	if secret == "" {
		return nil, errors.New("пустой JWT secret")
	}
	return &JWTAuth{
		secret:       []byte(secret),
		validMethods: []string{"HS256"},
		issuer:       issuer,
		jwtLeeway:    jwtLeeway,
		resolver:     resolver,
		logger:       logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// NewJWTAuthJWKS создаёт JWT middleware с JWKS из указанного URL (RS256).
// Все параметры (таймауты, TLS, интервалы) берутся из JWTAuthConfig.
func NewJWTAuthJWKS(authCfg JWTAuthConfig, resolver SubjectResolver, logger *slog.Logger) (*JWTAuth, error) {
	httpClient, err := buildHTTPClient(authCfg)
	if err != nil {
		return nil, err
	}

	if authCfg.CACertPath != "" {
		logger.Info("CA-сертификат добавлен в пул доверия",
			slog.String("ca_cert", authCfg.CACertPath),
		)
	}

	// NoErrorReturnFirstHTTPReq позволяет стартовать даже если JWKS endpoint
	// ещё недоступен (например, при одновременном запуске pod-ов).
	storage, err := jwkset.NewStorageFromHTTP(authCfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           authCfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", authCfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:         k,
		validMethods: []string{"RS256"},
		issuer:       authCfg.Issuer,
		jwtLeeway:    authCfg.JWTLeeway,
		resolver:     resolver,
		logger:       logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// buildHTTPClient создаёт HTTP-клиент с настроенным TLS и таймаутом.
func buildHTTPClient(authCfg JWTAuthConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: authCfg.TLSSkipVerify, //nolint:gosec // настраивается через AN_TLS_SKIP_VERIFY
	}

	if authCfg.CACertPath != "" {
		caCert, err := os.ReadFile(authCfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", authCfg.CACertPath, err)
		}

		caCertPool, err := x509.SystemCertPool()
		if err != nil {
			caCertPool = x509.NewCertPool()
		}
		caCertPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caCertPool
	}

	return &http.Client{
		Timeout: authCfg.ClientTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}, nil
}

// keyfuncFor возвращает jwt.Keyfunc для текущего режима верификации.
func (j *JWTAuth) keyfuncFor(ctx context.Context) jwt.Keyfunc {
	if j.jwks != nil {
		return j.jwks.KeyfuncCtx(ctx)
	}
	return func(_ *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}
}

// reject фиксирует причину отказа в логах и метриках и возвращает
// единый 401-ответ: вызывающий не может отличить причины друг от друга.
func (j *JWTAuth) reject(w http.ResponseWriter, r *http.Request, reason string, err error) {
	attrs := []any{
		slog.String("reason", reason),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	j.logger.Debug("Аутентификация не пройдена", attrs...)

	authFailuresTotal.WithLabelValues(reason).Inc()
	apierrors.Unauthorized(w, unauthorizedMessage)
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token из заголовка Authorization, валидирует подпись,
// проверяет exp/nbf и существование subject, помещает sub в контекст запроса.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				j.reject(w, r, reasonMissingToken, nil)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				j.reject(w, r, reasonMalformedToken, nil)
				return
			}
			tokenString := parts[1]

			parseOpts := []jwt.ParserOption{
				jwt.WithValidMethods(j.validMethods),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parseOpts = append(parseOpts, jwt.WithIssuer(j.issuer))
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, j.keyfuncFor(r.Context()), parseOpts...)
			if err != nil {
				reason := reasonInvalidToken
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					reason = reasonExpiredToken
				case errors.Is(err, jwt.ErrTokenMalformed):
					reason = reasonMalformedToken
				}
				j.reject(w, r, reason, err)
				return
			}
			if !token.Valid {
				j.reject(w, r, reasonInvalidToken, nil)
				return
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				j.reject(w, r, reasonInvalidToken, err)
				return
			}

			// Подпись валидна, но subject должен существовать в хранилище
			exists, err := j.resolver.Exists(r.Context(), subject)
			if err != nil {
				j.logger.Warn("Проверка subject недоступна",
					slog.String("error", err.Error()),
				)
				apierrors.StorageUnavailable(w, "Хранилище пользователей временно недоступно")
				return
			}
			if !exists {
				j.reject(w, r, reasonUnknownSubject, nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext извлекает sub из контекста запроса.
// Возвращает пустую строку, если sub не найден.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}
