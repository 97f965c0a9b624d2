package project

import (
	"context"
	"database/sql"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
)

var (
	_ = (operators.Operator)(&MySQLSource{})
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var (
	ErrInvalidTable = func(name string) error {
		return errors.Newf("invalid table name %q", name)
	}
)

// OpenMySQL accepts mariadb:// and mysql:// URLs as well as native driver DSNs.
func OpenMySQL(dsn string) (*sql.DB, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", errors.Wrap(err, "parse dsn")
		}
		cfg := mysql.NewConfig()
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
			return "", errors.New("incomplete dsn, user, host and database are required")
		}
		cfg.Loc = time.UTC
		cfg.InterpolateParams = true
		return cfg.FormatDSN(), nil
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", errors.Wrap(err, "parse dsn")
	}
	return dsn, nil
}

// rowSource is what MySQLSource reads from; *sql.Rows satisfies it.
type rowSource interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// MySQLSource reads every column of a table as text.
type MySQLSource struct {
	rows   rowSource
	schema *arrow.Schema
	done   bool
}

// NewMySQLSource runs SELECT * against table. The table name is checked
// against a strict pattern because it cannot be bound as a parameter.
func NewMySQLSource(ctx context.Context, db *sql.DB, table string) (*MySQLSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, ErrInvalidTable(table)
	}
	rows, err := db.QueryContext(ctx, "SELECT * FROM `"+table+"`")
	if err != nil {
		return nil, errors.Wrapf(err, "query table %s", table)
	}
	src, err := newMySQLSourceFromRows(rows)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return src, nil
}

func newMySQLSourceFromRows(rows rowSource) (*MySQLSource, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read result columns")
	}
	sb := &operators.SchemaBuilder{}
	for _, n := range names {
		sb.WithField(n, arrow.BinaryTypes.String, true)
	}
	return &MySQLSource{rows: rows, schema: sb.Build()}, nil
}

func (ms *MySQLSource) Next(n uint16) (*operators.RecordBatch, error) {
	if ms.done {
		return nil, io.EOF
	}
	width := len(ms.schema.Fields())
	builders := make([]*array.StringBuilder, width)
	for i := range builders {
		builders[i] = array.NewStringBuilder(memory.DefaultAllocator)
		defer builders[i].Release()
	}
	cells := make([]sql.NullString, width)
	dest := make([]any, width)
	for i := range cells {
		dest[i] = &cells[i]
	}

	rowsRead := uint16(0)
	for rowsRead < n {
		if !ms.rows.Next() {
			ms.done = true
			if err := ms.rows.Err(); err != nil {
				return nil, errors.Wrap(err, "iterate rows")
			}
			break
		}
		if err := ms.rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		for i, c := range cells {
			if !c.Valid {
				builders[i].AppendNull()
				continue
			}
			appendCell(builders[i], c.String)
		}
		rowsRead++
	}
	if rowsRead == 0 {
		return nil, io.EOF
	}
	columns := make([]arrow.Array, width)
	for i, b := range builders {
		columns[i] = b.NewArray()
	}
	return &operators.RecordBatch{
		Schema:   ms.schema,
		Columns:  columns,
		RowCount: uint64(rowsRead),
	}, nil
}

func (ms *MySQLSource) Close() error {
	ms.done = true
	return ms.rows.Close()
}

func (ms *MySQLSource) Schema() *arrow.Schema {
	return ms.schema
}
