package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// DefaultFileName — имя файла, если из URL его не извлечь.
const DefaultFileName = "file"

// Cell — отформатированная ячейка.
type Cell struct {
	// Key — ключ колонки
	Key string `json:"key"`
	// Text — текстовое представление (для файловой ячейки — имя файла)
	Text string `json:"text"`
	// Empty — значение отсутствует (nil, пустая строка, нет ключа)
	Empty bool `json:"empty,omitempty"`
	// Media — данные файловой ячейки (nil для текстовых и пустых ячеек)
	Media *MediaCell `json:"media,omitempty"`
}

// MediaCell — файловая ячейка.
type MediaCell struct {
	URL         string          `json:"url"`
	FileName    string          `json:"file_name"`
	SizeLabel   string          `json:"size_label,omitempty"`
	Kind        model.MediaKind `json:"kind"`
	Previewable bool            `json:"previewable"`
}

// RenderCell форматирует значение записи по стратегии колонки.
// Файловая ячейка с нестроковым или пустым значением выводится как пустая.
func RenderCell(r model.Record, c Column) Cell {
	cell := Cell{Key: c.Key}

	if c.Strategy == StrategyMedia {
		link, ok := r.String(c.Key)
		if !ok {
			cell.Empty = true
			return cell
		}
		size, _ := SizeAnnotation(r, c.Key)
		cell.Text = FileName(link)
		cell.Media = &MediaCell{
			URL:         link,
			FileName:    cell.Text,
			SizeLabel:   size,
			Kind:        c.MediaKind,
			Previewable: c.MediaKind.Previewable(),
		}
		return cell
	}

	v, ok := r.Get(c.Key)
	if !ok || v == nil {
		cell.Empty = true
		return cell
	}
	cell.Text = FormatValue(v)
	cell.Empty = cell.Text == ""
	return cell
}

// FileName извлекает имя файла из последнего сегмента пути URL
// (без query и fragment, с декодированием). Возвращает DefaultFileName,
// если сегмент пуст или не разбирается.
func FileName(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return DefaultFileName
	}

	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	} else {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if dec, err := url.PathUnescape(p); err == nil {
			p = dec
		}
	}

	p = strings.TrimRight(p, "/")
	if p == "" {
		return DefaultFileName
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return DefaultFileName
	}
	return name
}

// sizeKeys возвращает ключи, под которыми может лежать размер файла колонки.
func sizeKeys(key string) []string {
	keys := []string{key + "_size"}
	if base, ok := strings.CutSuffix(key, "_url"); ok && base != "" {
		keys = append(keys, base+"_size")
	}
	return append(keys, "file_size", "size", "size_bytes")
}

// SizeAnnotation ищет размер файла в соседних полях записи
// ("<key>_size", "<base>_size" для "<base>_url", "file_size", "size", "size_bytes")
// и возвращает его в человекочитаемом виде.
func SizeAnnotation(r model.Record, key string) (string, bool) {
	for _, k := range sizeKeys(key) {
		v, ok := r.Get(k)
		if !ok || v == nil {
			continue
		}
		if n, ok := toBytes(v); ok {
			return HumanizeBytes(n), true
		}
		// Уже отформатированная строка ("1.2 MB") выводится как есть
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func toBytes(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), n >= 0
	case int32:
		return int64(n), n >= 0
	case int64:
		return n, n >= 0
	case float64:
		if math.IsNaN(n) || n < 0 {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil || i < 0 {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// HumanizeBytes форматирует размер: 512 B, 1.5 KB, 3.2 MB.
func HumanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTP"[exp])
}

// FormatValue приводит значение к строке для отображения.
// Вложенные структуры сериализуются в JSON, несериализуемые — через fmt.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
