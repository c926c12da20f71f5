package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
)

const (
	DialectNeo4j    = "neo4j"
	DialectMemgraph = "memgraph"

	FormatCSV      = "csv"
	FormatJSONL    = "jsonl"
	FormatPostgres = "postgres"
)

type Config struct {
	AppName            string `env:"APP_NAME" env-default:"bramble"`
	Port               int    `env:"PORT" env-default:"3004"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" env-default:"false"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	HttpServerWriteTimeoutSeconds int `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`

	// Extraction
	RulesPath     string `env:"RULES_PATH" env-default:"relation_rules.yml"`
	InputFormat   string `env:"INPUT_FORMAT" env-default:"csv"`
	InputPath     string `env:"INPUT_PATH" env-default:"descriptions.csv"`
	InputColumn   string `env:"INPUT_COLUMN" env-default:"description"`
	InputJMESPath string `env:"INPUT_JMESPATH" env-default:"description"`
	SourceName    string `env:"SOURCE_NAME" env-default:""`
	SampleLimit   int    `env:"SAMPLE_LIMIT" env-default:"20"`

	// Graph Database (Neo4j / Memgraph)
	GraphDBURI      string `env:"GRAPH_DB_URI" env-default:"neo4j://localhost:7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:"neo4j"`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`
	GraphDBName     string `env:"GRAPH_DB_NAME" env-default:""`
	GraphDBDialect  string `env:"GRAPH_DB_DIALECT" env-default:"neo4j"`

	// PostgreSQL (description source)
	DatabaseHost            string        `env:"DB_HOST" env-default:""`
	DatabasePort            string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName        string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword        string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName            string        `env:"DB_NAME" env-default:"descriptions"`
	DatabaseSSLMode         string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseTable           string        `env:"DB_TABLE" env-default:"descriptions"`
	DatabaseIDColumn        string        `env:"DB_ID_COLUMN" env-default:"id"`
	DatabaseMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"5"`
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`

	// Kafka Producer (change events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"graph-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:""`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"http"`
	TracingInsecure bool   `env:"TRACING_INSECURE" env-default:"true"`

	MetricsEnabled bool `env:"METRICS_ENABLED" env-default:"true"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, bramerrors.NewConfigErrorf(".env", "failed to load: %w", err)
	}

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, bramerrors.NewConfigErrorf("environment", "failed to parse: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that env parsing cannot.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RulesPath) == "" {
		return bramerrors.NewConfigError("environment", "rules path is required").AddField("RULES_PATH")
	}
	if !slices.Contains([]string{DialectNeo4j, DialectMemgraph}, c.GraphDBDialect) {
		return bramerrors.NewConfigError("environment", fmt.Sprintf("unsupported dialect %q", c.GraphDBDialect)).AddField("GRAPH_DB_DIALECT")
	}
	if strings.TrimSpace(c.GraphDBURI) == "" {
		return bramerrors.NewConfigError("environment", "graph uri is required").AddField("GRAPH_DB_URI")
	}
	if !slices.Contains([]string{FormatCSV, FormatJSONL, FormatPostgres}, c.InputFormat) {
		return bramerrors.NewConfigError("environment", fmt.Sprintf("unsupported input format %q", c.InputFormat)).AddField("INPUT_FORMAT")
	}
	if c.InputFormat != FormatPostgres && strings.TrimSpace(c.InputPath) == "" {
		return bramerrors.NewConfigError("environment", "input path is required").AddField("INPUT_PATH")
	}
	if c.InputFormat == FormatPostgres && c.DatabaseHost == "" {
		return bramerrors.NewConfigError("environment", "database host is required for postgres input").AddField("DB_HOST")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return bramerrors.NewConfigError("environment", "at least one broker is required").AddField("KAFKA_BROKERS")
	}
	if c.TracingEnabled && !slices.Contains([]string{"grpc", "http"}, c.TracingProtocol) {
		return bramerrors.NewConfigError("environment", fmt.Sprintf("unsupported tracing protocol %q", c.TracingProtocol)).AddField("TRACING_PROTOCOL")
	}
	if c.StartupMaxAttempts < 1 {
		return bramerrors.NewConfigError("environment", "must be at least 1").AddField("STARTUP_MAX_ATTEMPTS")
	}
	return nil
}

// SourceLabel is the provenance written to Record.source_file.
func (c *Config) SourceLabel() string {
	if c.SourceName != "" {
		return c.SourceName
	}
	if c.InputFormat == FormatPostgres {
		return c.DatabaseName + "." + c.DatabaseTable
	}
	return c.InputPath
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
