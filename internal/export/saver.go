package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// ManifestName — имя файла описи в ZIP-архиве экспорта.
const ManifestName = "manifest.json"

// Saver — приёмник файлов пакетного экспорта. Вызывается конкурентно.
// index — позиция ссылки в порядке выбора (0..N-1).
// Возвращает имя, под которым файл сохранён.
type Saver interface {
	Save(ctx context.Context, index int, blob Blob) (string, error)
}

// entryName — имя файла с префиксом порядкового номера: "001_cv.pdf".
// Префикс исключает коллизии одинаковых имён из разных ссылок.
func entryName(index int, blob Blob) string {
	return fmt.Sprintf("%03d_%s", index+1, sanitizeFileName(blob.FileName))
}

// Manifest — опись пакетного экспорта.
type Manifest struct {
	BatchID   string                 `json:"batch_id"`
	Column    string                 `json:"column"`
	CreatedAt time.Time              `json:"created_at"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Items     []model.DownloadResult `json:"items"`
}

// NewManifest строит опись по результатам экспорта.
func NewManifest(batchID, column string, results []model.DownloadResult) Manifest {
	m := Manifest{
		BatchID:   batchID,
		Column:    column,
		CreatedAt: time.Now().UTC(),
		Items:     results,
	}
	for _, r := range results {
		if r.Succeeded() {
			m.Succeeded++
		} else {
			m.Failed++
		}
	}
	return m
}

// ZipSaver — Saver, записывающий файлы в ZIP-архив потоком.
type ZipSaver struct {
	mu sync.Mutex
	zw *zip.Writer
}

// NewZipSaver создаёт ZIP-архив поверх w.
func NewZipSaver(w io.Writer) *ZipSaver {
	return &ZipSaver{zw: zip.NewWriter(w)}
}

// Save добавляет файл в архив. Записи сериализуются мьютексом.
func (z *ZipSaver) Save(ctx context.Context, index int, blob Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := entryName(index, blob)

	z.mu.Lock()
	defer z.mu.Unlock()

	fw, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("создание записи архива %s: %w", name, err)
	}
	if _, err := fw.Write(blob.Data); err != nil {
		return "", fmt.Errorf("запись %s в архив: %w", name, err)
	}
	return name, nil
}

// Finish добавляет опись и закрывает архив.
func (z *ZipSaver) Finish(m Manifest) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	fw, err := z.zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("создание описи архива: %w", err)
	}
	enc := json.NewEncoder(fw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("запись описи архива: %w", err)
	}
	if err := z.zw.Close(); err != nil {
		return fmt.Errorf("закрытие архива: %w", err)
	}
	return nil
}

// DirSaver — Saver, записывающий файлы в каталог пакета на диске.
type DirSaver struct {
	dir string
}

// NewDirSaver создаёт каталог root/batchID и возвращает Saver для него.
func NewDirSaver(root, batchID string) (*DirSaver, error) {
	dir := filepath.Join(root, batchID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("создание каталога экспорта %s: %w", dir, err)
	}
	return &DirSaver{dir: dir}, nil
}

// Dir — каталог пакета.
func (d *DirSaver) Dir() string {
	return d.dir
}

// Save записывает файл в каталог пакета.
func (d *DirSaver) Save(ctx context.Context, index int, blob Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := entryName(index, blob)
	if err := os.WriteFile(filepath.Join(d.dir, name), blob.Data, 0o640); err != nil {
		return "", fmt.Errorf("запись файла %s: %w", name, err)
	}
	return name, nil
}

// WriteManifest сохраняет опись в каталог пакета.
func (d *DirSaver) WriteManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация описи: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, ManifestName), data, 0o640); err != nil {
		return fmt.Errorf("запись описи: %w", err)
	}
	return nil
}
