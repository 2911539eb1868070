package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names an optional yaml file merged over the defaults.
const ConfigEnv = "BLAZEDB_CONFIG"

// secrets never live in the yaml file, only in the environment / .env
const (
	envAccessKey = "BLAZEDB_S3_ACCESS_KEY"
	envSecretKey = "BLAZEDB_S3_SECRET_KEY"
	envEndpoint  = "BLAZEDB_S3_ENDPOINT"
)

type Config struct {
	Catalog catalogConfig `yaml:"catalog"`
	Scan    scanConfig    `yaml:"scan"`
	Output  outputConfig  `yaml:"output"`
	Logging loggingConfig `yaml:"logging"`
	Storage storageConfig `yaml:"storage"`
	Planner plannerConfig `yaml:"planner"`
	Secrets secretsConfig `yaml:"-"`
}
type catalogConfig struct {
	SchemaFile string `yaml:"schema_file"`
	// empty means <db>/data, an s3://bucket/prefix value reads tables from object storage
	DataDir       string `yaml:"data_dir"`
	DefaultFormat string `yaml:"default_format"` // csv | parquet
}
type scanConfig struct {
	Delimiter        string `yaml:"delimiter"`
	ParquetBatchSize int    `yaml:"parquet_batch_size"` // rows per arrow record when reading parquet
}
type outputConfig struct {
	Separator string `yaml:"separator"`
}
type loggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}
type storageConfig struct {
	Endpoint string `yaml:"endpoint"`
	UseSSL   bool   `yaml:"use_ssl"`
}
type plannerConfig struct {
	// equi joins run as hash joins instead of nested loops, output order is the same
	HashJoin bool `yaml:"hash_join"`
}
type secretsConfig struct {
	AccessKey   string
	SecretKey   string
	EndpointURL string
}

var configInstance *Config = defaultConfig()

func defaultConfig() *Config {
	return &Config{
		Catalog: catalogConfig{
			SchemaFile:    "schema.txt",
			DataDir:       "",
			DefaultFormat: "csv",
		},
		Scan: scanConfig{
			Delimiter:        ",",
			ParquetBatchSize: 1024,
		},
		Output: outputConfig{
			Separator: ", ",
		},
		Logging: loggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Storage: storageConfig{
			Endpoint: "s3.amazonaws.com",
			UseSSL:   true,
		},
		Planner: plannerConfig{
			HashJoin: false,
		},
	}
}

func GetConfig() *Config {
	return configInstance
}

// Load reads .env (if any) into the environment, decodes the file named by
// BLAZEDB_CONFIG (if set) and fills in the secrets.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}
	if path := os.Getenv(ConfigEnv); path != "" {
		if err := Decode(path); err != nil {
			return nil, err
		}
	}
	LoadSecrets(configInstance)
	return configInstance, nil
}

func LoadSecrets(c *Config) {
	c.Secrets.AccessKey = os.Getenv(envAccessKey)
	c.Secrets.SecretKey = os.Getenv(envSecretKey)
	c.Secrets.EndpointURL = os.Getenv(envEndpoint)
}

// overwrite global instance with loaded config
func Decode(filePath string) error {
	suffix := strings.TrimPrefix(filepath.Ext(filePath), ".")
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
	if err := mergeConfig(configInstance, config); err != nil {
		return err
	}
	return nil
}

func mergeConfig(dst *Config, src map[string]interface{}) error {
	// =============================
	// CATALOG
	// =============================
	if catalog, ok := src["catalog"].(map[string]interface{}); ok {
		if v, ok := catalog["schema_file"].(string); ok {
			dst.Catalog.SchemaFile = v
		}
		if v, ok := catalog["data_dir"].(string); ok {
			dst.Catalog.DataDir = v
		}
		if v, ok := catalog["default_format"].(string); ok {
			v = strings.ToLower(v)
			if v != "csv" && v != "parquet" {
				return errors.Newf("catalog.default_format must be csv or parquet, got %q", v)
			}
			dst.Catalog.DefaultFormat = v
		}
	}

	// =============================
	// SCAN
	// =============================
	if scan, ok := src["scan"].(map[string]interface{}); ok {
		if v, ok := scan["delimiter"].(string); ok {
			if len([]rune(v)) != 1 {
				return errors.Newf("scan.delimiter must be a single character, got %q", v)
			}
			dst.Scan.Delimiter = v
		}
		if v, ok := scan["parquet_batch_size"].(int); ok {
			if v <= 0 {
				return errors.Newf("scan.parquet_batch_size must be positive, got %d", v)
			}
			dst.Scan.ParquetBatchSize = v
		}
	}

	// =============================
	// OUTPUT
	// =============================
	if output, ok := src["output"].(map[string]interface{}); ok {
		if v, ok := output["separator"].(string); ok {
			dst.Output.Separator = v
		}
	}

	// =============================
	// LOGGING
	// =============================
	if logging, ok := src["logging"].(map[string]interface{}); ok {
		if v, ok := logging["level"].(string); ok {
			dst.Logging.Level = v
		}
		if v, ok := logging["format"].(string); ok {
			dst.Logging.Format = v
		}
	}

	// =============================
	// STORAGE
	// =============================
	if storage, ok := src["storage"].(map[string]interface{}); ok {
		if v, ok := storage["endpoint"].(string); ok {
			dst.Storage.Endpoint = v
		}
		if v, ok := storage["use_ssl"].(bool); ok {
			dst.Storage.UseSSL = v
		}
	}

	// =============================
	// PLANNER
	// =============================
	if planner, ok := src["planner"].(map[string]interface{}); ok {
		if v, ok := planner["hash_join"].(bool); ok {
			dst.Planner.HashJoin = v
		}
	}
	return nil
}
