package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestHTTPFetcher_Fetch — успешное получение с токеном и именем из Content-Disposition.
func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="resume.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPFetcherConfig{
		Origin:        srv.URL,
		Timeout:       5 * time.Second,
		TokenProvider: StaticToken("secret"),
	}, newTestLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher ошибка: %v", err)
	}

	blob, err := f.Fetch(context.Background(), "/files/42")
	if err != nil {
		t.Fatalf("Fetch ошибка: %v", err)
	}
	if string(blob.Data) != "%PDF-1.4" || blob.ContentType != "application/pdf" {
		t.Errorf("blob = %q / %q", blob.Data, blob.ContentType)
	}
	if blob.FileName != "resume.pdf" {
		t.Errorf("FileName = %q, ожидалось resume.pdf", blob.FileName)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

// TestHTTPFetcher_NoTokenForForeignHost — токен не уходит на чужой хост.
func TestHTTPFetcher_NoTokenForForeignHost(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPFetcherConfig{
		Origin:        "https://files.example.com",
		TokenProvider: StaticToken("secret"),
	}, newTestLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher ошибка: %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/a.jpg"); err != nil {
		t.Fatalf("Fetch ошибка: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("токен передан чужому хосту: %q", gotAuth)
	}
}

// TestHTTPFetcher_Errors проверяет статус, превышение размера и неразрешимые ссылки.
func TestHTTPFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("a", 100)))
		default:
			_, _ = w.Write([]byte(strings.Repeat("a", 10)))
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPFetcherConfig{MaxBytes: 10}, newTestLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher ошибка: %v", err)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("ожидалась ErrUnexpectedStatus, получено %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrBlobTooLarge) {
		t.Errorf("ожидалась ErrBlobTooLarge, получено %v", err)
	}
	if blob, err := f.Fetch(context.Background(), srv.URL+"/exact"); err != nil || len(blob.Data) != 10 {
		t.Errorf("файл ровно на границе должен пройти: %v", err)
	}
	if _, err := f.Fetch(context.Background(), "/relative.pdf"); !errors.Is(err, ErrUnresolvableURL) {
		t.Errorf("ожидалась ErrUnresolvableURL, получено %v", err)
	}
	if _, err := f.Fetch(context.Background(), "javascript:alert(1)"); !errors.Is(err, ErrUnresolvableURL) {
		t.Errorf("ожидалась ErrUnresolvableURL для javascript:, получено %v", err)
	}
}

func TestNewHTTPFetcher_BadConfig(t *testing.T) {
	if _, err := NewHTTPFetcher(HTTPFetcherConfig{Origin: "not a url"}, newTestLogger()); err == nil {
		t.Error("ожидалась ошибка для некорректного origin")
	}
	if _, err := NewHTTPFetcher(HTTPFetcherConfig{CACertPath: "/nonexistent/ca.pem"}, newTestLogger()); err == nil {
		t.Error("ожидалась ошибка для отсутствующего CA-сертификата")
	}
}
