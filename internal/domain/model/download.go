package model

// Outcome — итог скачивания одного элемента пакетного экспорта.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// DownloadResult — результат по одному URL. Пакет в целом никогда не
// завершается атомарной ошибкой: каждый элемент несёт свой итог.
type DownloadResult struct {
	// URL — исходная ссылка из ячейки
	URL string `json:"url"`
	// Outcome — success или failure
	Outcome Outcome `json:"outcome"`
	// Error — текст ошибки (только для failure)
	Error string `json:"error,omitempty"`
	// FileName — имя, под которым файл сохранён
	FileName string `json:"file_name,omitempty"`
	// Bytes — размер полученного файла
	Bytes int64 `json:"bytes,omitempty"`
	// FallbackURL — безопасная ссылка для открытия во внешнем контексте (после неудачи)
	FallbackURL string `json:"fallback_url,omitempty"`
}

// Succeeded — true для успешного элемента.
func (r DownloadResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
