package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/table/plan"
)

// workbookSheet — лист новой книги excelize по умолчанию.
const workbookSheet = "Sheet1"

// WriteWorkbook выгружает текущее представление таблицы в XLSX:
// заголовки плана, строки в порядке view, файловые ячейки — гиперссылки
// с именем файла. resolve приводит ссылку к абсолютной (nil — как есть).
func WriteWorkbook(w io.Writer, p *plan.Plan, rows []model.Record, resolve func(string) string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("стиль заголовка: %w", err)
	}
	linkStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "0563C1", Underline: "single"},
	})
	if err != nil {
		return fmt.Errorf("стиль ссылки: %w", err)
	}

	columns := p.Columns()

	// 1. Заголовки и ширина колонок
	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(workbookSheet, cell, c.Header); err != nil {
			return fmt.Errorf("заголовок %s: %w", c.Key, err)
		}
		if err := f.SetCellStyle(workbookSheet, cell, cell, headerStyle); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := 18.0
		if c.Strategy == plan.StrategyMedia {
			width = 28
		}
		if err := f.SetColWidth(workbookSheet, name, name, width); err != nil {
			return err
		}
	}

	// 2. Строки в порядке представления
	for r, record := range rows {
		for i, cell := range p.RenderRow(record) {
			ref, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if cell.Empty {
				continue
			}
			if cell.Media == nil {
				if err := f.SetCellValue(workbookSheet, ref, cellValue(record, columns[i].Key, cell)); err != nil {
					return fmt.Errorf("ячейка %s: %w", ref, err)
				}
				continue
			}

			link := cell.Media.URL
			if resolve != nil {
				link = resolve(link)
			}
			if err := f.SetCellValue(workbookSheet, ref, cell.Media.FileName); err != nil {
				return fmt.Errorf("ячейка %s: %w", ref, err)
			}
			if link == InvalidURL {
				continue
			}
			if err := f.SetCellHyperLink(workbookSheet, ref, link, "External"); err != nil {
				return fmt.Errorf("гиперссылка %s: %w", ref, err)
			}
			if err := f.SetCellStyle(workbookSheet, ref, ref, linkStyle); err != nil {
				return err
			}
		}
	}

	// 3. Закреплённая строка заголовков
	if err := f.SetPanes(workbookSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("закрепление заголовка: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("запись книги: %w", err)
	}
	return nil
}

// cellValue — числа и bool пишутся в книгу как есть, остальное — текстом.
func cellValue(r model.Record, key string, cell plan.Cell) any {
	v, _ := r.Get(key)
	switch v.(type) {
	case int, int32, int64, float32, float64, bool:
		return v
	default:
		return cell.Text
	}
}
