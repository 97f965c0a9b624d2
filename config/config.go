package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	kiloByte = 1024
	megaByte = 1024 * kiloByte
)

type Config struct {
	Source    sourceConfig    `yaml:"source"`
	Reports   reportsConfig   `yaml:"reports"`
	Output    outputConfig    `yaml:"output"`
	Server    serverConfig    `yaml:"server"`
	Execution executionConfig `yaml:"execution"`
	// never read from yaml, see LoadSecrets
	Secrets secretsConfig `yaml:"-"`
}
type sourceConfig struct {
	Kind              string `yaml:"kind"` // csv | parquet | s3 | mysql
	Path              string `yaml:"path"` // local file for csv/parquet
	BatchSize         int    `yaml:"batch_size"`
	Bucket            string `yaml:"bucket"`
	Key               string `yaml:"key"`
	Region            string `yaml:"region"`
	EndpointURL       string `yaml:"endpoint_url"`
	UsePathStyle      bool   `yaml:"use_path_style"`
	MaxDownloadSizeMB int    `yaml:"max_download_size_mb"` // objects larger than this are rejected
	Table             string `yaml:"table"`                // mysql table holding the raw export
	MaxRows           int    `yaml:"max_rows"`             // 0 loads every row
}
type reportsConfig struct {
	TargetYear           int      `yaml:"target_year"`
	UnprofitableStatuses []string `yaml:"unprofitable_statuses"`
	RankCutoff           int      `yaml:"rank_cutoff"`
	RowLimit             int      `yaml:"row_limit"`
	Columns              columns  `yaml:"columns"`
}

// source column names, the defaults match the raw sales export
type columns struct {
	Date     string `yaml:"date"`
	Amount   string `yaml:"amount"`
	Qty      string `yaml:"qty"`
	Category string `yaml:"category"`
	SKU      string `yaml:"sku"`
	Status   string `yaml:"status"`
	Region   string `yaml:"region"`
	Promo    string `yaml:"promo"`
}
type outputConfig struct {
	Format         string `yaml:"format"` // table | csv | json | arrow
	FloatPrecision int    `yaml:"float_precision"`
	LogLevel       string `yaml:"log_level"`
}
type serverConfig struct {
	Port             int    `yaml:"port"`
	Host             string `yaml:"host"`
	MaxRequestSizeMB int    `yaml:"max_request_size_mb"`
}
type executionConfig struct {
	Parallel             bool `yaml:"parallel"`
	MaxConcurrentReports int  `yaml:"max_concurrent_reports"` // blocks after this many reports are in flight
}
type secretsConfig struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	MySQLDSN     string
}

func defaultConfig() *Config {
	return &Config{
		Source: sourceConfig{
			Kind:              "csv",
			BatchSize:         1024 * 8, // rows per batch
			Region:            "us-east-1",
			MaxDownloadSizeMB: 256,
		},
		Reports: reportsConfig{
			TargetYear:           2022,
			UnprofitableStatuses: []string{"cancelled", "returned", "refund"},
			RankCutoff:           3,
			RowLimit:             10,
			Columns: columns{
				Date:     "Date",
				Amount:   "Amount",
				Qty:      "Qty",
				Category: "Category",
				SKU:      "SKU",
				Status:   "Status",
				Region:   "ship-state",
				Promo:    "promotion-ids",
			},
		},
		Output: outputConfig{
			Format:         "table",
			FloatPrecision: 4,
			LogLevel:       "info",
		},
		Server: serverConfig{
			Port:             8000,
			Host:             "localhost",
			MaxRequestSizeMB: 4,
		},
		Execution: executionConfig{
			Parallel:             false,
			MaxConcurrentReports: 2,
		},
	}
}

var configInstance *Config = defaultConfig()

func GetConfig() *Config {
	return configInstance
}

// Default returns a fresh copy of the built-in defaults without touching the
// loaded configuration.
func Default() *Config {
	return defaultConfig()
}

// Reset restores every default, secrets included.
func Reset() {
	configInstance = defaultConfig()
}

// MaxDownloadBytes is the S3 object size cap in bytes.
func (c *Config) MaxDownloadBytes() int64 {
	return int64(c.Source.MaxDownloadSizeMB) * int64(megaByte)
}

// MaxRequestBytes is the gRPC message size cap in bytes.
func (c *Config) MaxRequestBytes() int {
	return c.Server.MaxRequestSizeMB * megaByte
}

// overwrite global instance with loaded config
func Decode(filePath string) error {
	parts := strings.Split(filePath, ".")
	suffix := parts[len(parts)-1]
	if suffix != "yaml" && suffix != "yml" {
		return errors.New("file must be a .yaml or .yml file")
	}
	r, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer r.Close()
	config := make(map[string]interface{})
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(config); err != nil {
		return errors.Wrap(err, "failed to decode config")
	}
	mergeConfig(configInstance, config)
	return nil
}

// LoadSecrets reads credentials from envFile (if it exists) and the process environment.
// Values already set in the environment win over the file.
func LoadSecrets(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "load env file %s", envFile)
			}
		}
	}
	configInstance.Secrets = secretsConfig{
		AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken: os.Getenv("AWS_SESSION_TOKEN"),
		MySQLDSN:     os.Getenv("SALES_REPORT_MYSQL_DSN"),
	}
	return nil
}

func mergeConfig(dst *Config, src map[string]interface{}) {
	// =============================
	// SOURCE
	// =============================
	if source, ok := src["source"].(map[string]interface{}); ok {
		if v, ok := source["kind"].(string); ok {
			dst.Source.Kind = v
		}
		if v, ok := source["path"].(string); ok {
			dst.Source.Path = v
		}
		if v, ok := source["batch_size"].(int); ok {
			dst.Source.BatchSize = v
		}
		if v, ok := source["bucket"].(string); ok {
			dst.Source.Bucket = v
		}
		if v, ok := source["key"].(string); ok {
			dst.Source.Key = v
		}
		if v, ok := source["region"].(string); ok {
			dst.Source.Region = v
		}
		if v, ok := source["endpoint_url"].(string); ok {
			dst.Source.EndpointURL = v
		}
		if v, ok := source["use_path_style"].(bool); ok {
			dst.Source.UsePathStyle = v
		}
		if v, ok := source["max_download_size_mb"].(int); ok {
			dst.Source.MaxDownloadSizeMB = v
		}
		if v, ok := source["table"].(string); ok {
			dst.Source.Table = v
		}
		if v, ok := source["max_rows"].(int); ok {
			dst.Source.MaxRows = v
		}
	}

	// =============================
	// REPORTS
	// =============================
	if reports, ok := src["reports"].(map[string]interface{}); ok {
		if v, ok := reports["target_year"].(int); ok {
			dst.Reports.TargetYear = v
		}
		if v, ok := reports["unprofitable_statuses"].([]interface{}); ok {
			statuses := make([]string, 0, len(v))
			for _, s := range v {
				if str, ok := s.(string); ok {
					statuses = append(statuses, str)
				}
			}
			dst.Reports.UnprofitableStatuses = statuses
		}
		if v, ok := reports["rank_cutoff"].(int); ok {
			dst.Reports.RankCutoff = v
		}
		if v, ok := reports["row_limit"].(int); ok {
			dst.Reports.RowLimit = v
		}
		if cols, ok := reports["columns"].(map[string]interface{}); ok {
			mergeColumns(&dst.Reports.Columns, cols)
		}
	}

	// =============================
	// OUTPUT
	// =============================
	if output, ok := src["output"].(map[string]interface{}); ok {
		if v, ok := output["format"].(string); ok {
			dst.Output.Format = v
		}
		if v, ok := output["float_precision"].(int); ok {
			dst.Output.FloatPrecision = v
		}
		if v, ok := output["log_level"].(string); ok {
			dst.Output.LogLevel = v
		}
	}

	// =============================
	// SERVER
	// =============================
	if server, ok := src["server"].(map[string]interface{}); ok {
		if v, ok := server["port"].(int); ok {
			dst.Server.Port = v
		}
		if v, ok := server["host"].(string); ok {
			dst.Server.Host = v
		}
		if v, ok := server["max_request_size_mb"].(int); ok {
			dst.Server.MaxRequestSizeMB = v
		}
	}

	// =============================
	// EXECUTION
	// =============================
	if execution, ok := src["execution"].(map[string]interface{}); ok {
		if v, ok := execution["parallel"].(bool); ok {
			dst.Execution.Parallel = v
		}
		if v, ok := execution["max_concurrent_reports"].(int); ok {
			dst.Execution.MaxConcurrentReports = v
		}
	}
}

func mergeColumns(dst *columns, src map[string]interface{}) {
	targets := map[string]*string{
		"date":     &dst.Date,
		"amount":   &dst.Amount,
		"qty":      &dst.Qty,
		"category": &dst.Category,
		"sku":      &dst.SKU,
		"status":   &dst.Status,
		"region":   &dst.Region,
		"promo":    &dst.Promo,
	}
	for key, target := range targets {
		if v, ok := src[key].(string); ok && v != "" {
			*target = v
		}
	}
}
