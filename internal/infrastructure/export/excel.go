package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

// SheetName is the worksheet the Excel export writes to
const SheetName = "Orders"

const dateLayout = "02/01/2006"

type column struct {
	title string
	value func(o *domain.Order, now time.Time) any
}

func dateValue(get func(o *domain.Order) *time.Time) func(*domain.Order, time.Time) any {
	return func(o *domain.Order, now time.Time) any {
		return formatDate(get(o), now.Location())
	}
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(dateLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// excelColumns lists the export layout: identity, client, article,
// quantities, dates, then one observation, forecast and stop reason column
// per sector
var excelColumns = buildExcelColumns()

func buildExcelColumns() []column {
	cols := []column{
		{"Internal ID", func(o *domain.Order, _ time.Time) any { return o.ID }},
		{"Document", func(o *domain.Order, _ time.Time) any { return o.DocNr }},
		{"Item", func(o *domain.Order, _ time.Time) any { return o.ItemNr }},
		{"Priority", func(o *domain.Order, _ time.Time) any { return o.Priority.Label() }},
		{"Manual Confection", func(o *domain.Order, _ time.Time) any { return yesNo(o.IsManual) }},
		{"State", func(o *domain.Order, now time.Time) any { return string(domain.ClassifyOrder(o, now)) }},

		{"Client Code", func(o *domain.Order, _ time.Time) any { return o.ClientCode }},
		{"Client", func(o *domain.Order, _ time.Time) any { return o.ClientName }},
		{"PO", func(o *domain.Order, _ time.Time) any { return o.PO }},

		{"Article", func(o *domain.Order, _ time.Time) any { return o.ArticleCode }},
		{"Reference", func(o *domain.Order, _ time.Time) any { return o.Reference }},
		{"Color Code", func(o *domain.Order, _ time.Time) any { return o.ColorCode }},
		{"Color", func(o *domain.Order, _ time.Time) any { return o.ColorDesc }},
		{"Size", func(o *domain.Order, _ time.Time) any { return o.Size }},
		{"Size Description", func(o *domain.Order, _ time.Time) any { return o.SizeDesc }},
		{"Family", func(o *domain.Order, _ time.Time) any { return o.Family }},
		{"EAN", func(o *domain.Order, _ time.Time) any { return o.EAN }},

		{"Qty Requested", func(o *domain.Order, _ time.Time) any { return o.QtyRequested }},
		{"Qty Billed", func(o *domain.Order, _ time.Time) any { return o.QtyBilled }},
		{"Qty Open", func(o *domain.Order, _ time.Time) any { return o.QtyOpen }},

		{"Issue Date", dateValue(func(o *domain.Order) *time.Time { return o.IssueDate })},
		{"Requested Delivery", dateValue(func(o *domain.Order) *time.Time { return o.RequestedDate })},
		{"Entry Date", dateValue(func(o *domain.Order) *time.Time { return o.EntryDate })},
		{"Warehouse Dispatch", dateValue(func(o *domain.Order) *time.Time { return o.WarehouseDispatchDate })},

		{"Qty Raw Terry", func(o *domain.Order, _ time.Time) any { return o.RawTerryQty }},
		{"Qty Dyeing", func(o *domain.Order, _ time.Time) any { return o.DyeingQty }},
		{"Qty Confection Gowns", func(o *domain.Order, _ time.Time) any { return o.ConfectionGownsQty }},
		{"Qty Confection Terry", func(o *domain.Order, _ time.Time) any { return o.ConfectionTerryQty }},
		{"Qty Packaging", func(o *domain.Order, _ time.Time) any { return o.PackagingQty }},
		{"Qty Shipping Stock", func(o *domain.Order, _ time.Time) any { return o.ShippingStockQty }},

		{"Weaving Date", dateValue(func(o *domain.Order) *time.Time { return o.WeavingDate })},
		{"Raw Terry Date", dateValue(func(o *domain.Order) *time.Time { return o.RawTerryDate })},
		{"Dyeing Date", dateValue(func(o *domain.Order) *time.Time { return o.DyeingDate })},
		{"Confection Date", dateValue(func(o *domain.Order) *time.Time { return o.ConfectionDate })},

		{"Special Date", dateValue(func(o *domain.Order) *time.Time { return o.SpecialDate })},
		{"Printer Date", dateValue(func(o *domain.Order) *time.Time { return o.PrinterDate })},
		{"Design Date", dateValue(func(o *domain.Order) *time.Time { return o.DesignDate })},
		{"Samples Date", dateValue(func(o *domain.Order) *time.Time { return o.SamplesDate })},
		{"Embroidery Date", dateValue(func(o *domain.Order) *time.Time { return o.EmbroideryDate })},
	}

	for _, s := range domain.Sectors {
		id := s.ID
		cols = append(cols, column{"Obs. " + s.Name, func(o *domain.Order, _ time.Time) any {
			return o.SectorObservations[id]
		}})
	}
	for _, s := range domain.Sectors {
		id := s.ID
		cols = append(cols, column{"Pred. " + s.Name, func(o *domain.Order, now time.Time) any {
			return formatDate(o.SectorPredictedDates[id], now.Location())
		}})
	}
	for _, s := range domain.Sectors {
		id := s.ID
		cols = append(cols, column{"Stop " + s.Name, func(o *domain.Order, _ time.Time) any {
			return o.SectorStopReasons[id]
		}})
	}
	return cols
}

// ExcelHeaders returns the export's column titles in order
func ExcelHeaders() []string {
	titles := make([]string, len(excelColumns))
	for i, c := range excelColumns {
		titles[i] = c.title
	}
	return titles
}

// WriteExcel writes one row per order to w. States are classified and dates
// rendered at now, in now's location.
func WriteExcel(w io.Writer, orders []*domain.Order, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(excelColumns))
	for i, c := range excelColumns {
		header[i] = c.title
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]any, len(excelColumns))
	for i, o := range orders {
		for j, c := range excelColumns {
			row[j] = c.value(o, now)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(excelColumns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 20); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "H", "H", 30); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExcelFilename is the default download name, e.g. TexFlow_Export_Full_06-03-2024.xlsx
func ExcelFilename(now time.Time) string {
	return "TexFlow_Export_Full_" + now.Format("02-01-2006") + ".xlsx"
}

// SQLiteFilename is the default backup name, e.g. TexFlow_DB_06-03-2024.sqlite
func SQLiteFilename(now time.Time) string {
	return "TexFlow_DB_" + now.Format("02-01-2006") + ".sqlite"
}
