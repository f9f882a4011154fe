package model

// MediaKind — категория файловой колонки (определяет иконку и доступность превью).
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaGeneric  MediaKind = "generic"
	MediaNone     MediaKind = "none"
)

// Previewable сообщает, поддерживает ли категория превью (только image и document).
func (k MediaKind) Previewable() bool {
	return k == MediaImage || k == MediaDocument
}

// ColumnDescriptor — результат классификации колонки за один проход рендеринга.
type ColumnDescriptor struct {
	// Key — ключ колонки в Record
	Key string `json:"key"`
	// Header — заголовок колонки для отображения
	Header string `json:"header"`
	// Sortable — допускает ли колонка сортировку по заголовку
	Sortable bool `json:"sortable"`
	// IsMediaColumn — колонка содержит ссылки на файлы
	IsMediaColumn bool `json:"is_media_column"`
	// MediaKind — категория файлов (MediaNone для обычных колонок)
	MediaKind MediaKind `json:"media_kind"`
}

// ColumnHint — подсказка вызывающего кода для колонки.
// Все поля — указатели, nil = решение принимает эвристика.
type ColumnHint struct {
	// Header — явный заголовок
	Header *string
	// Sortable — явная сортируемость
	Sortable *bool
	// Media — принудительно пометить колонку как файловую (true) или обычную (false)
	Media *bool
	// MediaKind — закреплённая категория (вместе с Media=true обходит эвристику)
	MediaKind *MediaKind
}

// Bool возвращает указатель на значение (для заполнения ColumnHint).
func Bool(v bool) *bool { return &v }

// Kind возвращает указатель на MediaKind (для заполнения ColumnHint).
func Kind(k MediaKind) *MediaKind { return &k }

// Str возвращает указатель на строку (для заполнения ColumnHint).
func Str(s string) *string { return &s }
