package catalog

import (
	"bufio"
	"fmt"
	"strings"

	"blazedb-go/config"
	"blazedb-go/operators"
	"blazedb-go/operators/project"
	"blazedb-go/storage"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "catalog")

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var (
	ErrTableNotFound = func(name string) error {
		return errors.Mark(errors.Newf("table %s is not in the catalog", name), operators.ErrIO)
	}
	ErrMalformedCatalog = func(location string, line int, info string) error {
		return errors.Mark(errors.Newf("%s:%d: malformed catalog: %s", location, line, info), operators.ErrIO)
	}
)

// Table is one catalog entry. Columns are qualified, Student.A.
type Table struct {
	Name     string
	Columns  []string
	Format   string
	Location string
	Source   project.TableSource
	schema   *arrow.Schema
}

func (t *Table) Schema() *arrow.Schema {
	return t.schema
}

func (t *Table) Arity() int {
	return len(t.Columns)
}

// Catalog is built once by Load and only read afterwards.
type Catalog struct {
	tables map[string]*Table
	order  []string
}

// Load reads <dbDir>/<schema file>, one "Table col1 col2 ..." line per table.
// A table name may carry a :csv or :parquet suffix overriding the default format.
func Load(dbDir string, cfg *config.Config) (*Catalog, error) {
	opener := storage.NewOpener(cfg)
	schemaPath := storage.Join(dbDir, cfg.Catalog.SchemaFile)
	f, err := opener.Open(schemaPath)
	if err != nil {
		return nil, operators.WrapIO(err, "failed to read catalog")
	}
	defer f.Close()

	dataDir := cfg.Catalog.DataDir
	if dataDir == "" {
		dataDir = storage.Join(dbDir, "data")
	}
	c := &Catalog{tables: make(map[string]*Table)}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		name, format, err := splitFormat(parts[0], cfg.Catalog.DefaultFormat)
		if err != nil {
			return nil, ErrMalformedCatalog(schemaPath, line, err.Error())
		}
		if _, ok := c.tables[name]; ok {
			return nil, ErrMalformedCatalog(schemaPath, line, fmt.Sprintf("table %s declared twice", name))
		}
		if len(parts) == 1 {
			return nil, ErrMalformedCatalog(schemaPath, line, fmt.Sprintf("table %s has no columns", name))
		}
		columns, err := qualify(name, parts[1:])
		if err != nil {
			return nil, ErrMalformedCatalog(schemaPath, line, err.Error())
		}
		t := &Table{
			Name:     name,
			Columns:  columns,
			Format:   format,
			Location: storage.Join(dataDir, name+"."+format),
			schema:   operators.NewSchemaBuilder().WithFields(columns...).Build(),
		}
		if t.Source, err = newSource(opener, t, cfg); err != nil {
			return nil, err
		}
		c.tables[name] = t
		c.order = append(c.order, name)
		log.WithFields(logrus.Fields{"table": name, "columns": len(columns), "location": t.Location}).Debug("registered table")
	}
	if err := scanner.Err(); err != nil {
		return nil, operators.WrapIO(err, "failed to read catalog %s", schemaPath)
	}
	return c, nil
}

func qualify(table string, columns []string) ([]string, error) {
	out := make([]string, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, ok := seen[col]; ok {
			return nil, errors.Newf("table %s repeats column %s", table, col)
		}
		seen[col] = struct{}{}
		out = append(out, table+"."+col)
	}
	return out, nil
}

func splitFormat(token, defaultFormat string) (string, string, error) {
	name, format, ok := strings.Cut(token, ":")
	if !ok {
		format = defaultFormat
	}
	if name == "" {
		return "", "", errors.New("empty table name")
	}
	switch format {
	case FormatCSV, FormatParquet:
		return name, format, nil
	}
	return "", "", errors.Newf("unknown table format %q", format)
}

func newSource(opener *storage.Opener, t *Table, cfg *config.Config) (project.TableSource, error) {
	if t.Format == FormatParquet {
		return project.NewParquetSource(opener, t.Location, t.Arity(), cfg.Scan.ParquetBatchSize)
	}
	return project.NewCSVSource(opener, t.Location, t.Arity(), cfg.Scan.Delimiter)
}

// Register adds a table backed by an arbitrary source, for callers embedding
// the engine with their own data.
func (c *Catalog) Register(name string, columns []string, source project.TableSource) error {
	if _, ok := c.tables[name]; ok {
		return ErrMalformedCatalog("memory", 0, fmt.Sprintf("table %s declared twice", name))
	}
	if len(columns) == 0 {
		return ErrMalformedCatalog("memory", 0, fmt.Sprintf("table %s has no columns", name))
	}
	qualified, err := qualify(name, columns)
	if err != nil {
		return errors.Mark(err, operators.ErrIO)
	}
	c.tables[name] = &Table{
		Name:     name,
		Columns:  qualified,
		Location: source.Location(),
		Source:   source,
		schema:   operators.NewSchemaBuilder().WithFields(qualified...).Build(),
	}
	c.order = append(c.order, name)
	return nil
}

// New returns an empty catalog, filled with Register.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, ErrTableNotFound(name)
	}
	return t, nil
}

func (c *Catalog) Tables() []string {
	return append([]string(nil), c.order...)
}

// Scan opens a fresh scan over the table.
func (c *Catalog) Scan(name string) (*project.ScanExec, error) {
	t, err := c.Table(name)
	if err != nil {
		return nil, err
	}
	return project.NewScanExec(t.Name, t.schema, t.Source)
}
