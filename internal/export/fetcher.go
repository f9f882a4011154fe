// Пакет export — скачивание файлов по ссылкам из таблицы:
// одиночное скачивание ячейки и пакетный экспорт выбранных ссылок колонки
// с ограниченным параллелизмом, откатом на внешнее открытие и
// сохранением в ZIP-архив, каталог или XLSX-книгу.
package export

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bigkaa/talentdesk/internal/table/plan"
)

// Ошибки получения файлов.
var (
	// ErrBlobTooLarge — файл превышает допустимый размер.
	ErrBlobTooLarge = errors.New("файл превышает допустимый размер")
	// ErrUnexpectedStatus — источник вернул статус, отличный от 200.
	ErrUnexpectedStatus = errors.New("неожиданный HTTP-статус источника файла")
	// ErrUnresolvableURL — относительная ссылка без настроенного origin или неподдерживаемая схема.
	ErrUnresolvableURL = errors.New("ссылка не может быть разрешена")
)

// Blob — полученный файл.
type Blob struct {
	// Data — содержимое файла
	Data []byte
	// ContentType — MIME-тип из ответа источника
	ContentType string
	// FileName — имя файла (Content-Disposition или последний сегмент URL)
	FileName string
}

// Fetcher — получение файла по ссылке целиком.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (Blob, error)
}

// FetcherFunc адаптирует функцию к Fetcher.
type FetcherFunc func(ctx context.Context, link string) (Blob, error)

// Fetch вызывает функцию.
func (f FetcherFunc) Fetch(ctx context.Context, link string) (Blob, error) {
	return f(ctx, link)
}

// TokenProvider — функция, возвращающая Bearer-токен для запросов к источнику файлов.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken возвращает TokenProvider с постоянным токеном.
// Пустой токен — запросы без авторизации.
func StaticToken(token string) TokenProvider {
	if token == "" {
		return nil
	}
	return func(context.Context) (string, error) { return token, nil }
}

// HTTPFetcherConfig — параметры HTTPFetcher.
type HTTPFetcherConfig struct {
	// Origin — базовый URL для относительных ссылок ("/files/a.pdf"); пусто — относительные ссылки не поддерживаются
	Origin string
	// CACertPath — путь к CA-сертификату для TLS (пусто — системный пул)
	CACertPath string
	// Timeout — таймаут одного запроса
	Timeout time.Duration
	// MaxBytes — ограничение размера файла (0 — без ограничения)
	MaxBytes int64
	// TokenProvider — источник Bearer-токена (nil — без авторизации)
	TokenProvider TokenProvider
}

// HTTPFetcher — Fetcher поверх net/http с кастомным CA и ограничением размера.
type HTTPFetcher struct {
	httpClient    *http.Client
	origin        *url.URL
	maxBytes      int64
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// NewHTTPFetcher создаёт HTTP-клиент получения файлов.
func NewHTTPFetcher(cfg HTTPFetcherConfig, logger *slog.Logger) (*HTTPFetcher, error) {
	transport := &http.Transport{
		// Пакетный экспорт обращается к одному хосту параллельно
		MaxIdleConnsPerHost: 10,
	}

	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата источника файлов: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
		logger.Info("CA-сертификат источника файлов добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	var origin *url.URL
	if cfg.Origin != "" {
		u, err := url.Parse(strings.TrimRight(cfg.Origin, "/"))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("некорректный origin источника файлов %q", cfg.Origin)
		}
		origin = u
	}

	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		origin:        origin,
		maxBytes:      cfg.MaxBytes,
		tokenProvider: cfg.TokenProvider,
		logger:        logger.With(slog.String("component", "http_fetcher")),
	}, nil
}

// Fetch получает файл целиком в память.
func (f *HTTPFetcher) Fetch(ctx context.Context, link string) (Blob, error) {
	target, err := ResolveURL(f.origin, link)
	if err != nil {
		return Blob{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return Blob{}, fmt.Errorf("создание запроса Fetch: %w", err)
	}

	// Токен передаётся только собственному origin
	if f.tokenProvider != nil && f.sameOrigin(target) {
		token, tokenErr := f.tokenProvider(ctx)
		if tokenErr != nil {
			return Blob{}, fmt.Errorf("получение токена источника файлов: %w", tokenErr)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.httpClient.Do(req) //nolint:gosec // G107: ссылка из данных таблицы, схема проверена в ResolveURL
	if err != nil {
		return Blob{}, fmt.Errorf("запрос Fetch к %s: %w", target.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Blob{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return Blob{}, fmt.Errorf("%w: %d > %d", ErrBlobTooLarge, resp.ContentLength, f.maxBytes)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		// +1 байт, чтобы отличить файл ровно на границе от превышения
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Blob{}, fmt.Errorf("чтение тела ответа: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return Blob{}, fmt.Errorf("%w: > %d", ErrBlobTooLarge, f.maxBytes)
	}

	f.logger.Debug("Файл получен",
		slog.String("host", target.Host),
		slog.Int("bytes", len(data)),
	)

	return Blob{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FileName:    blobFileName(resp.Header.Get("Content-Disposition"), link),
	}, nil
}

func (f *HTTPFetcher) sameOrigin(u *url.URL) bool {
	return f.origin != nil && strings.EqualFold(u.Host, f.origin.Host) && u.Scheme == f.origin.Scheme
}

// ResolveURL разрешает ссылку из ячейки в абсолютный http(s) URL.
// Относительные ссылки разрешаются относительно origin.
func ResolveURL(origin *url.URL, link string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvableURL, err)
	}
	if !u.IsAbs() {
		if origin == nil {
			return nil, fmt.Errorf("%w: относительная ссылка %q без origin", ErrUnresolvableURL, link)
		}
		u = origin.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: схема %q не поддерживается", ErrUnresolvableURL, u.Scheme)
	}
	return u, nil
}

// blobFileName берёт имя из Content-Disposition, иначе из ссылки.
func blobFileName(disposition, link string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return sanitizeFileName(name)
			}
		}
	}
	return sanitizeFileName(plan.FileName(link))
}

// sanitizeFileName убирает разделители путей из имени файла.
func sanitizeFileName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	if name == "" || name == "." {
		return plan.DefaultFileName
	}
	return name
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}
