// Package datarecording stores structured simulation output in SQLite
// databases. Tables are declared from sample structs and rows are buffered
// and written in batches, so recording stays cheap during a run.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	// SQLite driver for database/sql.
	_ "github.com/mattn/go-sqlite3"
)

// DataRecorder is a backend that stores rows of simulation output.
type DataRecorder interface {
	// CreateTable declares a table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one row for a declared table.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all declared tables.
	ListTables() []string

	// Flush writes all buffered rows to the database.
	Flush()

	// Close flushes and releases the database.
	Close()
}

// New creates a DataRecorder writing to the given path. An empty path picks
// a generated run name. The ".sqlite3" extension is added when missing.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		path:      path,
		batchSize: 4096,
		tables:    make(map[string]*table),
	}

	w.open()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder on an already opened database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: 4096,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	rows       []any
}

type sqliteWriter struct {
	db *sql.DB

	path      string
	tables    map[string]*table
	batchSize int
	rowCount  int
}

func (w *sqliteWriter) open() {
	if w.path == "" {
		w.path = "socforge_run_" + xid.New().String()
	}

	filename := w.path
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Recording to %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.db = db
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	w.fieldsMustBeStorable(sampleEntry)

	columns := strings.Join(structs.Names(sampleEntry), ",\n\t")
	w.mustExecute("CREATE TABLE " + tableName + " (\n\t" + columns + "\n);")

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, declared := w.tables[tableName]
	if !declared {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.rows = append(t.rows, entry)

	w.rowCount++
	if w.rowCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}

	return names
}

func (w *sqliteWriter) Flush() {
	if w.rowCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for tableName, t := range w.tables {
		if len(t.rows) == 0 {
			continue
		}

		stmt := w.insertStatement(tableName, t.rows[0])

		for _, row := range t.rows {
			values := []any{}

			fields := reflect.ValueOf(row)
			for i := 0; i < fields.NumField(); i++ {
				values = append(values, fields.Field(i).Interface())
			}

			if _, err := stmt.Exec(values...); err != nil {
				panic(err)
			}
		}

		t.rows = nil
		stmt.Close()
	}

	w.rowCount = 0
}

func (w *sqliteWriter) Close() {
	w.Flush()

	if err := w.db.Close(); err != nil {
		panic(err)
	}
}

func (w *sqliteWriter) fieldsMustBeStorable(entry any) {
	structType := reflect.TypeOf(entry)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !storableKind(field.Type.Kind()) {
			panic(fmt.Sprintf("field %s of %s cannot be stored",
				field.Name, structType.Name()))
		}
	}
}

func storableKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.db.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (w *sqliteWriter) insertStatement(tableName string, sample any) *sql.Stmt {
	placeholders := structs.Names(sample)
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := w.db.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}
