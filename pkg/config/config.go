package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TICKERPULSE_KAFKA_BROKERS.
const EnvPrefix = "TICKERPULSE"

// ErrInvalid wraps every load or validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
		Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100" validate:"gt=0"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"20" validate:"gte=0"`
			Burst int     `yaml:"burst" default:"40" validate:"gte=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Classifier struct {
		SymbolsFile string `yaml:"symbols_file" default:"data/symbols.txt" validate:"required"`
		IgnoreFile  string `yaml:"ignore_file" default:"data/ignore.json"`
		Policy      string `yaml:"policy" default:"trim" validate:"oneof=trim word"`
	} `yaml:"classifier"`
	Report struct {
		Source              string   `yaml:"source"` // document dump; empty consumes Kafka only
		SubmissionThreshold int      `yaml:"submission_threshold" default:"5"`
		CommentThreshold    int      `yaml:"comment_threshold" default:"5"`
		Bots                []string `yaml:"bots" default:"[\"AutoModerator\"]"`
		Top                 int      `yaml:"top" default:"10" validate:"gte=0"`
		Workers             int      `yaml:"workers" default:"4" validate:"gte=1"`
		Schedule            string   `yaml:"schedule"` // cron spec; empty runs once at startup
		ShowAll             bool     `yaml:"show_all"`
		Expander            struct {
			URL      string        `yaml:"url"` // comment page service; empty disables expansion
			Timeout  time.Duration `yaml:"timeout" default:"10s"`
			MaxPages int           `yaml:"max_pages" default:"5" validate:"gte=1"`
		} `yaml:"expander"`
	} `yaml:"report"`
	Stream struct {
		Enabled   bool     `yaml:"enabled"`
		Words     []string `yaml:"words"`
		Sentiment bool     `yaml:"sentiment"`
		Permalink bool     `yaml:"permalink"`
	} `yaml:"stream"`
	Window struct {
		Symbols        []string           `yaml:"symbols"`
		RetentionHours float64            `yaml:"retention_hours" default:"0.5" validate:"gte=0"`
		Unbounded      bool               `yaml:"unbounded"`
		Delay          time.Duration      `yaml:"delay" default:"60s"`
		FetchTimeout   time.Duration      `yaml:"fetch_timeout" default:"10s"`
		Targets        map[string]float64 `yaml:"targets"`
	} `yaml:"window"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url" default:"ws://localhost:9400/quotes"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"feed"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Topics       struct {
			Documents string `yaml:"documents" default:"tickerpulse.documents"`
			Snapshots string `yaml:"snapshots" default:"tickerpulse.snapshots"`
			Reports   string `yaml:"reports" default:"tickerpulse.reports"`
			Frames    string `yaml:"frames" default:"tickerpulse.frames"`
			Logs      string `yaml:"logs" default:"tickerpulse.logs"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"tickerpulse"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"1000"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tickerpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl" default:"24h"`
	} `yaml:"redis"`
}

// envOverrides holds the settings that may be replaced from the environment.
// Unset variables leave the file value alone.
type envOverrides struct {
	Environment        string   `envconfig:"ENVIRONMENT"`
	LogLevel           string   `envconfig:"LOG_LEVEL"`
	Port               int      `envconfig:"PORT"`
	SymbolsFile        string   `envconfig:"SYMBOLS_FILE"`
	ReportSource       string   `envconfig:"REPORT_SOURCE"`
	WindowSymbols      []string `envconfig:"WINDOW_SYMBOLS"`
	FeedAPIKey         string   `envconfig:"FEED_API_KEY"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	RedisAddr          string   `envconfig:"REDIS_ADDR"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	ClickHouseHost     string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePassword string   `envconfig:"CLICKHOUSE_PASSWORD"`
}

var validate = validator.New()

// Default returns a Config populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Parse applies defaults, then the YAML document, then validates.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %v", ErrInvalid, err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides it with TICKERPULSE_*
// environment variables. A .env file in the working directory is loaded first
// when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrInvalid, err)
	}
	if o.Environment != "" {
		c.Environment = o.Environment
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if o.SymbolsFile != "" {
		c.Classifier.SymbolsFile = o.SymbolsFile
	}
	if o.ReportSource != "" {
		c.Report.Source = o.ReportSource
	}
	if len(o.WindowSymbols) > 0 {
		c.Window.Symbols = o.WindowSymbols
	}
	if o.FeedAPIKey != "" {
		c.Feed.APIKey = o.FeedAPIKey
	}
	if len(o.KafkaBrokers) > 0 {
		c.Kafka.Brokers = o.KafkaBrokers
	}
	if o.RedisAddr != "" {
		c.Redis.Addr = o.RedisAddr
	}
	if o.RedisPassword != "" {
		c.Redis.Password = o.RedisPassword
	}
	if o.ClickHouseHost != "" {
		c.ClickHouse.Host = o.ClickHouseHost
	}
	if o.ClickHousePassword != "" {
		c.ClickHouse.Password = o.ClickHousePassword
	}
	return nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers cannot be empty when kafka is enabled", ErrInvalid)
	}
	if c.Feed.Enabled && c.Feed.APIKey == "" {
		return fmt.Errorf("%w: feed.api_key is required when the feed is enabled", ErrInvalid)
	}
	if c.Feed.Enabled && len(c.Window.Symbols) == 0 {
		return fmt.Errorf("%w: window.symbols cannot be empty when the feed is enabled", ErrInvalid)
	}
	if len(c.Window.Symbols) > 0 && c.Window.Delay <= 0 {
		return fmt.Errorf("%w: window.delay must be positive", ErrInvalid)
	}
	if c.Stream.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("%w: stream mode consumes the documents topic and needs kafka", ErrInvalid)
	}
	return nil
}
