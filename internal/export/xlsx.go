// Package export renders priced estimates as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/smeta/internal/pricing"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"Наименование",
	"Назначение",
	"Этап",
	"Категория",
	"Ед.",
	"Кол-во",
	"Цена нетто",
	"Цена брутто",
	"Сумма нетто",
	"Сумма брутто",
	"Коэф.",
}

// WriteEstimateXLSX writes one sheet with the estimate header, one row per
// item followed by its auxiliary lines, and the estimate total.
func WriteEstimateXLSX(w io.Writer, v pricing.EstimateView) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	meta := [][]interface{}{
		{"Смета", v.Name},
		{"Дата", v.Date},
		{"Заказчик", v.Customer},
		{"Жилой комплекс", v.Residence},
		{"Планировка", v.Layout},
		{"Стиль", v.Style},
		{"Общий коэффициент", pricing.Coefficient(v.CoeffCommon)},
	}
	row := 1
	for _, r := range meta {
		if err := setRow(f, sheet, row, r); err != nil {
			return err
		}
		row++
	}
	row++

	if err := setRow(f, sheet, row, header); err != nil {
		return err
	}
	row++

	for _, it := range v.Items {
		itemRow := []interface{}{
			it.Name,
			string(it.Purpose),
			it.Stage,
			it.Category,
			it.Unit,
			it.Amount,
			it.PriceNet,
			it.PriceBrutto,
			it.TotalNet,
			it.TotalBrutto,
			pricing.Coefficient(it.CoeffIndividual),
		}
		if err := setRow(f, sheet, row, itemRow); err != nil {
			return err
		}
		row++

		for _, aux := range it.Auxiliary {
			auxRow := []interface{}{
				"  " + aux.Name,
				string(aux.Purpose),
				"",
				aux.Category,
				aux.Unit,
				aux.Amount,
				aux.PriceNet,
				"",
				aux.TotalNet,
			}
			if err := setRow(f, sheet, row, auxRow); err != nil {
				return err
			}
			row++
		}
	}

	row++
	if err := setRow(f, sheet, row, []interface{}{"Итого по смете", v.TotalEstimate}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", row, err)
	}
	return nil
}
