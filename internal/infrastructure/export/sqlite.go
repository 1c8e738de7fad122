package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

const ordersSchema = `
CREATE TABLE orders (
	id TEXT PRIMARY KEY, docNr TEXT, clientCode TEXT, clientName TEXT,
	issueDate INTEGER, requestedDate INTEGER, itemNr REAL, po TEXT,
	articleCode TEXT, reference TEXT, colorCode TEXT, colorDesc TEXT,
	size TEXT, family TEXT, sizeDesc TEXT, ean TEXT, qtyRequested REAL,
	dataTec INTEGER, felpoCruQty REAL, felpoCruDate INTEGER,
	tinturariaQty REAL, tinturariaDate INTEGER,
	confRoupoesQty REAL, confFelposQty REAL, confDate INTEGER,
	embAcabQty REAL, armExpDate INTEGER, stockCxQty REAL,
	dataEnt INTEGER, qtyBilled REAL, qtyOpen REAL,
	sectorObservations TEXT, sectorPredictedDates TEXT, priority INTEGER, isManual INTEGER, sectorStopReasons TEXT,
	dataEspecial INTEGER, dataPrinter INTEGER, dataDebuxo INTEGER, dataAmostras INTEGER, dataBordados INTEGER
)`

// sqliteColumn binds one orders column to an Order field in both directions
type sqliteColumn struct {
	name  string
	write func(o *domain.Order) (any, error)
	read  func(o *domain.Order, v any) error
}

func textColumn(name string, field func(o *domain.Order) *string) sqliteColumn {
	return sqliteColumn{
		name:  name,
		write: func(o *domain.Order) (any, error) { return *field(o), nil },
		read: func(o *domain.Order, v any) error {
			*field(o) = asString(v)
			return nil
		},
	}
}

func realColumn(name string, field func(o *domain.Order) *float64) sqliteColumn {
	return sqliteColumn{
		name:  name,
		write: func(o *domain.Order) (any, error) { return *field(o), nil },
		read: func(o *domain.Order, v any) error {
			*field(o) = asFloat(v)
			return nil
		},
	}
}

func dateColumn(name string, field func(o *domain.Order) **time.Time) sqliteColumn {
	return sqliteColumn{
		name:  name,
		write: func(o *domain.Order) (any, error) { return epochMillis(*field(o)), nil },
		read: func(o *domain.Order, v any) error {
			*field(o) = fromEpochMillis(v)
			return nil
		},
	}
}

var sqliteColumns = []sqliteColumn{
	textColumn("id", func(o *domain.Order) *string { return &o.ID }),
	textColumn("docNr", func(o *domain.Order) *string { return &o.DocNr }),
	textColumn("clientCode", func(o *domain.Order) *string { return &o.ClientCode }),
	textColumn("clientName", func(o *domain.Order) *string { return &o.ClientName }),
	dateColumn("issueDate", func(o *domain.Order) **time.Time { return &o.IssueDate }),
	dateColumn("requestedDate", func(o *domain.Order) **time.Time { return &o.RequestedDate }),
	realColumn("itemNr", func(o *domain.Order) *float64 { return &o.ItemNr }),
	textColumn("po", func(o *domain.Order) *string { return &o.PO }),
	textColumn("articleCode", func(o *domain.Order) *string { return &o.ArticleCode }),
	textColumn("reference", func(o *domain.Order) *string { return &o.Reference }),
	textColumn("colorCode", func(o *domain.Order) *string { return &o.ColorCode }),
	textColumn("colorDesc", func(o *domain.Order) *string { return &o.ColorDesc }),
	textColumn("size", func(o *domain.Order) *string { return &o.Size }),
	textColumn("family", func(o *domain.Order) *string { return &o.Family }),
	textColumn("sizeDesc", func(o *domain.Order) *string { return &o.SizeDesc }),
	textColumn("ean", func(o *domain.Order) *string { return &o.EAN }),
	realColumn("qtyRequested", func(o *domain.Order) *float64 { return &o.QtyRequested }),
	dateColumn("dataTec", func(o *domain.Order) **time.Time { return &o.WeavingDate }),
	realColumn("felpoCruQty", func(o *domain.Order) *float64 { return &o.RawTerryQty }),
	dateColumn("felpoCruDate", func(o *domain.Order) **time.Time { return &o.RawTerryDate }),
	realColumn("tinturariaQty", func(o *domain.Order) *float64 { return &o.DyeingQty }),
	dateColumn("tinturariaDate", func(o *domain.Order) **time.Time { return &o.DyeingDate }),
	realColumn("confRoupoesQty", func(o *domain.Order) *float64 { return &o.ConfectionGownsQty }),
	realColumn("confFelposQty", func(o *domain.Order) *float64 { return &o.ConfectionTerryQty }),
	dateColumn("confDate", func(o *domain.Order) **time.Time { return &o.ConfectionDate }),
	realColumn("embAcabQty", func(o *domain.Order) *float64 { return &o.PackagingQty }),
	dateColumn("armExpDate", func(o *domain.Order) **time.Time { return &o.WarehouseDispatchDate }),
	realColumn("stockCxQty", func(o *domain.Order) *float64 { return &o.ShippingStockQty }),
	dateColumn("dataEnt", func(o *domain.Order) **time.Time { return &o.EntryDate }),
	realColumn("qtyBilled", func(o *domain.Order) *float64 { return &o.QtyBilled }),
	realColumn("qtyOpen", func(o *domain.Order) *float64 { return &o.QtyOpen }),
	{
		name:  "sectorObservations",
		write: func(o *domain.Order) (any, error) { return encodeMap(o.SectorObservations) },
		read: func(o *domain.Order, v any) error {
			o.SectorObservations = decodeTextMap(asString(v))
			return nil
		},
	},
	{
		name:  "sectorPredictedDates",
		write: func(o *domain.Order) (any, error) { return encodeMap(o.SectorPredictedDates) },
		read: func(o *domain.Order, v any) error {
			o.SectorPredictedDates = decodeDateMap(asString(v))
			return nil
		},
	},
	{
		name:  "priority",
		write: func(o *domain.Order) (any, error) { return int64(o.Priority), nil },
		read: func(o *domain.Order, v any) error {
			p := domain.Priority(asFloat(v))
			if !p.IsValid() {
				p = domain.PriorityNone
			}
			o.Priority = p
			return nil
		},
	},
	{
		name: "isManual",
		write: func(o *domain.Order) (any, error) {
			if o.IsManual {
				return int64(1), nil
			}
			return int64(0), nil
		},
		read: func(o *domain.Order, v any) error {
			switch x := v.(type) {
			case bool:
				o.IsManual = x
			case string:
				o.IsManual = x == "1" || strings.EqualFold(x, "true")
			default:
				o.IsManual = asFloat(v) == 1
			}
			return nil
		},
	},
	{
		name:  "sectorStopReasons",
		write: func(o *domain.Order) (any, error) { return encodeMap(o.SectorStopReasons) },
		read: func(o *domain.Order, v any) error {
			o.SectorStopReasons = decodeTextMap(asString(v))
			return nil
		},
	},
	dateColumn("dataEspecial", func(o *domain.Order) **time.Time { return &o.SpecialDate }),
	dateColumn("dataPrinter", func(o *domain.Order) **time.Time { return &o.PrinterDate }),
	dateColumn("dataDebuxo", func(o *domain.Order) **time.Time { return &o.DesignDate }),
	dateColumn("dataAmostras", func(o *domain.Order) **time.Time { return &o.SamplesDate }),
	dateColumn("dataBordados", func(o *domain.Order) **time.Time { return &o.EmbroideryDate }),
}

var sqliteColumnsByName = func() map[string]sqliteColumn {
	m := make(map[string]sqliteColumn, len(sqliteColumns))
	for _, c := range sqliteColumns {
		m[c.name] = c
	}
	return m
}()

// legacySectorKeys maps the sector keys of older backups to current ids
var legacySectorKeys = map[string]domain.SectorID{
	"tecelagem":   domain.SectorWeaving,
	"felpo_cru":   domain.SectorRawTerry,
	"tinturaria":  domain.SectorDyeing,
	"confeccao":   domain.SectorConfection,
	"embalagem":   domain.SectorPackaging,
	"expedicao":   domain.SectorShipping,
	"planeamento": domain.SectorPlanning,
}

// WriteSQLite writes orders and the spreadsheet headers to a new database at path
func WriteSQLite(path string, orders []*domain.Order, headers map[string]string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("CREATE TABLE headers (key TEXT, value TEXT)"); err != nil {
		return fmt.Errorf("failed to create headers table: %w", err)
	}
	for k, v := range headers {
		if _, err := tx.Exec("INSERT INTO headers VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("failed to write header %s: %w", k, err)
		}
	}

	if _, err := tx.Exec(ordersSchema); err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}

	names := make([]string, len(sqliteColumns))
	for i, c := range sqliteColumns {
		names[i] = c.name
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sqliteColumns)), ", ")
	stmt, err := tx.Prepare("INSERT INTO orders (" + strings.Join(names, ", ") + ") VALUES (" + placeholders + ")")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(sqliteColumns))
	for _, o := range orders {
		for i, c := range sqliteColumns {
			if args[i], err = c.write(o); err != nil {
				return fmt.Errorf("failed to encode %s of %s: %w", c.name, o.ID, err)
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ReadSQLite loads orders and headers from a database written by WriteSQLite
// or by older releases. Missing columns leave fields empty; a missing headers
// table yields no headers.
func ReadSQLite(path string) ([]*domain.Order, map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	headers := map[string]string{}
	if rows, err := db.Query("SELECT key, value FROM headers"); err == nil {
		for rows.Next() {
			var k, v sql.NullString
			if err := rows.Scan(&k, &v); err != nil {
				rows.Close()
				return nil, nil, fmt.Errorf("failed to read headers: %w", err)
			}
			headers[k.String] = v.String
		}
		rows.Close()
	}

	rows, err := db.Query("SELECT * FROM orders")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read orders: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	orders := []*domain.Order{}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o := &domain.Order{}
		for i, name := range cols {
			c, ok := sqliteColumnsByName[name]
			if !ok {
				continue
			}
			if err := c.read(o, values[i]); err != nil {
				return nil, nil, fmt.Errorf("failed to decode %s: %w", name, err)
			}
		}
		if o.ID == "" {
			o.ID = domain.OrderID(o.DocNr, o.ItemNr)
		}
		o.EnsureMaps()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read orders: %w", err)
	}

	return orders, headers, nil
}

// BackupReader reads uploaded database backups through a temporary file
type BackupReader struct {
	TempDir string
}

// ReadBackup spools r to disk and reads it with ReadSQLite
func (b BackupReader) ReadBackup(r io.Reader) ([]*domain.Order, map[string]string, error) {
	f, err := os.CreateTemp(b.TempDir, "texflow-backup-*.sqlite")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to spool backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, nil, err
	}
	return ReadSQLite(path)
}

// WriteSQLiteTo writes a backup to w through a temporary file
func WriteSQLiteTo(w io.Writer, orders []*domain.Order, headers map[string]string) error {
	dir, err := os.MkdirTemp("", "texflow-export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export.sqlite")
	if err := WriteSQLite(path, orders, headers); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to stream backup: %w", err)
	}
	return nil
}

func epochMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromEpochMillis(v any) *time.Time {
	var ms int64
	switch x := v.(type) {
	case int64:
		ms = x
	case float64:
		ms = int64(x)
	case string:
		t, err := time.Parse(time.RFC3339, x)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	default:
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

func encodeMap[V any](m map[domain.SectorID]V) (any, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func sectorKey(raw string) (domain.SectorID, bool) {
	if id, ok := legacySectorKeys[raw]; ok {
		return id, true
	}
	id := domain.SectorID(raw)
	return id, id.IsAnnotationKey()
}

// decodeTextMap parses a JSON object of sector notes; bad JSON yields an empty map
func decodeTextMap(raw string) map[domain.SectorID]string {
	out := map[domain.SectorID]string{}
	var m map[string]string
	if raw == "" || json.Unmarshal([]byte(raw), &m) != nil {
		return out
	}
	for k, v := range m {
		if id, ok := sectorKey(k); ok && v != "" {
			out[id] = v
		}
	}
	return out
}

func decodeDateMap(raw string) map[domain.SectorID]*time.Time {
	out := map[domain.SectorID]*time.Time{}
	var m map[string]*string
	if raw == "" || json.Unmarshal([]byte(raw), &m) != nil {
		return out
	}
	for k, v := range m {
		id, ok := sectorKey(k)
		if !ok || v == nil {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, *v)
		if err != nil {
			continue
		}
		t = t.UTC()
		out[id] = &t
	}
	return out
}
