package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

// ERP export column letters
const (
	colDocNr              = "B"
	colClientName         = "C"
	colIssueDate          = "D"
	colRequestedDate      = "E"
	colItemNr             = "F"
	colPO                 = "G"
	colArticleCode        = "H"
	colReference          = "I"
	colColorCode          = "J"
	colColorDesc          = "K"
	colSize               = "L"
	colFamily             = "M"
	colSizeDesc           = "N"
	colEAN                = "O"
	colQtyRequested       = "P"
	colWeavingDate        = "Q"
	colRawTerryQty        = "R"
	colRawTerryDate       = "S"
	colDyeingQty          = "T"
	colDyeingDate         = "U"
	colConfectionGownsQty = "V"
	colConfectionTerryQty = "W"
	colConfectionDate     = "X"
	colPackagingQty       = "Y"
	colWarehouseDate      = "Z"
	colShippingStockQty   = "AA"
	colQtyBilled          = "AB"
	colQtyOpen            = "AC"
)

// ParseWarning records a cell that was coerced to zero or nil
type ParseWarning struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("row %d column %s: %q", w.Line, w.Column, w.Value)
}

// NormalizeResult is the outcome of normalizing one table
type NormalizeResult struct {
	Orders   []*domain.Order
	Headers  map[string]string
	Warnings []ParseWarning
	Skipped  int
}

// Normalizer maps raw rows to orders
type Normalizer struct {
	location *time.Location
}

// NewNormalizer creates a normalizer interpreting dates in loc
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{location: loc}
}

// Normalize converts every data row into an order with empty user fields.
// Rows without a document number, or repeating the header, are skipped.
// Duplicate ids within the table keep the last row at the first row's position.
func (n *Normalizer) Normalize(table *Table) *NormalizeResult {
	result := &NormalizeResult{Headers: map[string]string{}}
	if table == nil {
		return result
	}
	for k, v := range table.Header {
		result.Headers[k] = v
	}

	positions := make(map[string]int, len(table.Rows))
	for _, row := range table.Rows {
		docNr := CellString(row.Get(colDocNr))
		if docNr == "" || strings.Contains(strings.ToLower(docNr), "doc") {
			result.Skipped++
			continue
		}

		p := rowParser{row: row, loc: n.location}
		order := p.order(docNr)
		result.Warnings = append(result.Warnings, p.warnings...)

		if i, ok := positions[order.ID]; ok {
			result.Orders[i] = order
			continue
		}
		positions[order.ID] = len(result.Orders)
		result.Orders = append(result.Orders, order)
	}

	return result
}

type rowParser struct {
	row      Row
	loc      *time.Location
	warnings []ParseWarning
}

func (p *rowParser) order(docNr string) *domain.Order {
	o := domain.NewOrder(docNr, p.number(colItemNr))

	o.ClientName = p.text(colClientName)
	o.IssueDate = p.date(colIssueDate)
	o.RequestedDate = p.date(colRequestedDate)
	o.PO = p.text(colPO)
	o.ArticleCode = p.text(colArticleCode)
	o.Reference = p.text(colReference)
	o.ColorCode = p.text(colColorCode)
	o.ColorDesc = p.text(colColorDesc)
	o.Size = p.text(colSize)
	o.Family = p.text(colFamily)
	o.SizeDesc = p.text(colSizeDesc)
	o.EAN = p.text(colEAN)
	o.QtyRequested = p.number(colQtyRequested)
	o.WeavingDate = p.date(colWeavingDate)
	o.RawTerryQty = p.number(colRawTerryQty)
	o.RawTerryDate = p.date(colRawTerryDate)
	o.DyeingQty = p.number(colDyeingQty)
	o.DyeingDate = p.date(colDyeingDate)
	o.ConfectionGownsQty = p.number(colConfectionGownsQty)
	o.ConfectionTerryQty = p.number(colConfectionTerryQty)
	o.ConfectionDate = p.date(colConfectionDate)
	o.PackagingQty = p.number(colPackagingQty)
	o.WarehouseDispatchDate = p.date(colWarehouseDate)
	o.ShippingStockQty = p.number(colShippingStockQty)
	o.QtyBilled = p.number(colQtyBilled)
	o.QtyOpen = p.number(colQtyOpen)
	// the export has no separate delivery column
	o.EntryDate = p.date(colRequestedDate)

	return o
}

func (p *rowParser) text(col string) string {
	return CellString(p.row.Get(col))
}

func (p *rowParser) number(col string) float64 {
	v := p.row.Get(col)
	n, ok := parseNumber(v)
	if !ok {
		p.warn(col, v)
	}
	return n
}

func (p *rowParser) date(col string) *time.Time {
	v := p.row.Get(col)
	t, ok := parseSpreadsheetDate(v, p.loc)
	if !ok {
		p.warn(col, v)
	}
	return t
}

func (p *rowParser) warn(col string, v any) {
	// the same cell is read twice for requested and delivery dates
	for _, w := range p.warnings {
		if w.Column == col {
			return
		}
	}
	p.warnings = append(p.warnings, ParseWarning{Line: p.row.Line, Column: col, Value: fmt.Sprint(v)})
}
