package export

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/safehtml"
)

// InvalidURL — значение, которое safehtml подставляет вместо небезопасной ссылки.
const InvalidURL = "about:invalid#zGoSafez"

// Viewer — открытие ресурса во внешнем контексте (новая вкладка браузера).
// Используется для превью и как запасной путь при неудачном скачивании.
// Возвращает безопасную ссылку, которую клиент должен открыть.
type Viewer interface {
	Open(ctx context.Context, link string) (string, error)
}

// LinkViewer — Viewer, который не открывает ничего сам, а готовит
// санитизированную абсолютную ссылку для клиента.
type LinkViewer struct {
	origin *url.URL
	logger *slog.Logger
}

// NewLinkViewer создаёт LinkViewer. origin — базовый URL для относительных
// ссылок (пусто — относительные ссылки возвращаются как есть).
func NewLinkViewer(origin string, logger *slog.Logger) *LinkViewer {
	v := &LinkViewer{
		logger: logger.With(slog.String("component", "link_viewer")),
	}
	if origin != "" {
		if u, err := url.Parse(strings.TrimRight(origin, "/")); err == nil && u.IsAbs() {
			v.origin = u
		}
	}
	return v
}

// Open возвращает санитизированную ссылку. Небезопасные схемы
// (javascript:, data: и т.п.) заменяются на InvalidURL.
func (v *LinkViewer) Open(_ context.Context, link string) (string, error) {
	link = strings.TrimSpace(link)
	if v.origin != nil {
		if u, err := url.Parse(link); err == nil && !u.IsAbs() {
			link = v.origin.ResolveReference(u).String()
		}
	}

	safe := SafeURL(link)
	if safe == InvalidURL {
		v.logger.Warn("Небезопасная ссылка отклонена", slog.String("link", link))
	}
	return safe, nil
}

// SafeURL санитизирует ссылку для вставки в HTML или Location.
func SafeURL(link string) string {
	return safehtml.URLSanitized(link).String()
}
