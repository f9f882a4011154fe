package export

import (
	"context"
	"testing"
)

func TestLinkViewer_Open(t *testing.T) {
	v := NewLinkViewer("https://files.example.com/", newTestLogger())

	tests := []struct {
		name string
		link string
		want string
	}{
		{"абсолютная ссылка", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"относительная ссылка", "/p/alice.png", "https://files.example.com/p/alice.png"},
		{"пробелы вокруг", "  /p/bob.jpg ", "https://files.example.com/p/bob.jpg"},
		{"javascript", "javascript:alert(1)", InvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Open(context.Background(), tt.link)
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if got != tt.want {
				t.Errorf("Open(%q) = %q, ожидается %q", tt.link, got, tt.want)
			}
		})
	}
}

func TestLinkViewer_WithoutOrigin(t *testing.T) {
	v := NewLinkViewer("", newTestLogger())
	got, _ := v.Open(context.Background(), "/p/a.png")
	if got != "/p/a.png" {
		t.Errorf("без origin относительная ссылка должна возвращаться как есть, получено %q", got)
	}
}
