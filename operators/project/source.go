package project

import (
	"context"
	"os"
	"strings"

	"sales-report-go/config"
	"sales-report-go/operators"
	"sales-report-go/operators/filter"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownSourceKind = func(kind string) error {
		return errors.Newf("unknown source kind %q, expected csv, parquet, s3 or mysql", kind)
	}
)

// Open builds the operator tree for the configured source: the reader, then a
// projection down to the columns the reports use, then the optional row cap.
func Open(ctx context.Context, cfg *config.Config) (operators.Operator, error) {
	leaf, err := openLeaf(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var op operators.Operator = leaf
	if wanted := ReportColumns(cfg); len(wanted) > 0 {
		proj, err := NewLenientProjectExec(op, wanted...)
		if err != nil {
			_ = leaf.Close()
			return nil, err
		}
		op = proj
	}
	if cfg.Source.MaxRows > 0 {
		op = filter.NewLimitExec(op, uint64(cfg.Source.MaxRows))
	}
	return op, nil
}

// Load opens the configured source and reads it into a Dataset.
func Load(ctx context.Context, cfg *config.Config, onBatch func(rows int)) (*operators.Dataset, error) {
	op, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ds, err := LoadDataset(op, batchSize(cfg), onBatch)
	if err != nil {
		return nil, err
	}
	for _, name := range ReportColumns(cfg) {
		if !ds.HasColumn(name) {
			logrus.WithField("column", name).Warn("source has no such column, reports reading it will fail")
		}
	}
	logrus.WithFields(logrus.Fields{
		"kind":    cfg.Source.Kind,
		"rows":    ds.NumRows(),
		"columns": len(ds.Schema().Fields()),
	}).Debug("dataset loaded")
	return ds, nil
}

// ReportColumns lists every source column some report reads.
func ReportColumns(cfg *config.Config) []string {
	c := cfg.Reports.Columns
	return []string{c.Date, c.Amount, c.Qty, c.Category, c.SKU, c.Status, c.Region, c.Promo}
}

func batchSize(cfg *config.Config) uint16 {
	n := cfg.Source.BatchSize
	if n <= 0 || n > 1<<16-1 {
		return 1<<16 - 1
	}
	return uint16(n)
}

func openLeaf(ctx context.Context, cfg *config.Config) (operators.Operator, error) {
	src := cfg.Source
	switch strings.ToLower(src.Kind) {
	case "csv", "":
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open csv source")
		}
		csvSrc, err := NewProjectCSVLeaf(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &fileBacked{Operator: csvSrc, f: f}, nil
	case "parquet":
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open parquet source")
		}
		pq, err := NewParquetSource(ctx, f, src.BatchSize)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &fileBacked{Operator: pq, f: f}, nil
	case "s3":
		secrets := cfg.Secrets
		client := NewS3Client(S3Options{
			Region:       src.Region,
			EndpointURL:  src.EndpointURL,
			UsePathStyle: src.UsePathStyle,
			AccessKey:    secrets.AccessKey,
			SecretKey:    secrets.SecretKey,
			SessionToken: secrets.SessionToken,
		})
		obj, err := FetchObject(ctx, client, src.Bucket, src.Key, cfg.MaxDownloadBytes())
		if err != nil {
			return nil, err
		}
		return obj.Source(ctx, src.BatchSize)
	case "mysql":
		if cfg.Secrets.MySQLDSN == "" {
			return nil, errors.New("mysql source needs SALES_REPORT_MYSQL_DSN")
		}
		db, err := OpenMySQL(cfg.Secrets.MySQLDSN)
		if err != nil {
			return nil, err
		}
		my, err := NewMySQLSource(ctx, db, src.Table)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &dbBacked{MySQLSource: my, close: db.Close}, nil
	default:
		return nil, ErrUnknownSourceKind(src.Kind)
	}
}

// fileBacked closes the file under a source when the source is closed.
type fileBacked struct {
	operators.Operator
	f *os.File
}

func (fb *fileBacked) Close() error {
	err := fb.Operator.Close()
	if cerr := fb.f.Close(); err == nil {
		err = cerr
	}
	return err
}

type dbBacked struct {
	*MySQLSource
	close func() error
}

func (d *dbBacked) Close() error {
	err := d.MySQLSource.Close()
	if cerr := d.close(); err == nil {
		err = cerr
	}
	return err
}
