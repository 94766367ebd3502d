package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docproc/constants"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Log       LogConfig      `yaml:"log"`
	Source    SourceConfig   `yaml:"source"`
	Cracker   CrackerConfig  `yaml:"cracker"`
	Templates TemplateConfig `yaml:"templates"`
	LLM       LLMConfig      `yaml:"extractor"`
	Sinks     SinkConfig     `yaml:"sinks"`
	Redis     RedisConfig    `yaml:"redis"`
}

// ServerConfig holds the inbound surface and worker pool settings
type ServerConfig struct {
	HTTPAddr   string        `yaml:"http_addr"`
	GRPCAddr   string        `yaml:"grpc_addr"`
	PubSubName string        `yaml:"pubsub_name"`
	Topic      string        `yaml:"topic"`
	Route      string        `yaml:"route"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	InboxDir   string        `yaml:"inbox_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SourceConfig selects where document bytes are read from
type SourceConfig struct {
	Type    string        `yaml:"type"`
	Dir     string        `yaml:"dir"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// CrackerConfig holds text-extraction configuration
type CrackerConfig struct {
	Type   string         `yaml:"type"`
	Layout LayoutConfig   `yaml:"layout"`
	Tika   TikaConfig     `yaml:"tika"`
	Local  LocalOCRConfig `yaml:"local"`
}

type LayoutConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Key          string        `yaml:"key"`
	APIVersion   string        `yaml:"api_version"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TikaConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LocalOCRConfig struct {
	Pdftotext     string `yaml:"pdftotext"`
	Pdftoppm      string `yaml:"pdftoppm"`
	Tesseract     string `yaml:"tesseract"`
	TesseractLang string `yaml:"lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	DPI           int    `yaml:"dpi"`
	MaxPages      int    `yaml:"max_pages"`
}

// TemplateConfig holds dynamic template lookup configuration
type TemplateConfig struct {
	Store               string        `yaml:"store"`
	Timeout             time.Duration `yaml:"timeout"`
	Dapr                DaprConfig    `yaml:"dapr"`
	RedisPrefix         string        `yaml:"redis_prefix"`
	FirestoreProject    string        `yaml:"firestore_project"`
	FirestoreCollection string        `yaml:"firestore_collection"`
}

type DaprConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Port       string `yaml:"port"`
	APIToken   string `yaml:"api_token"`
	AppID      string `yaml:"app_id"`
	StateStore string `yaml:"state_store"`
}

// LLMConfig holds field-extraction configuration
type LLMConfig struct {
	Type        string        `yaml:"type"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	OpenAI      OpenAIConfig  `yaml:"openai"`
	Groq        GroqConfig    `yaml:"groq"`
	Ollama      OllamaConfig  `yaml:"ollama"`
	Vertex      VertexConfig  `yaml:"vertex"`
}

type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Endpoint   string `yaml:"azure_endpoint"`
	APIVersion string `yaml:"azure_api_version"`
}

type GroqConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

type VertexConfig struct {
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
}

// SinkConfig holds output handler configuration
type SinkConfig struct {
	Types        []string        `yaml:"types"`
	Timeout      time.Duration   `yaml:"timeout"`
	CSVPath      string          `yaml:"csv_path"`
	JSONLPath    string          `yaml:"jsonl_path"`
	XLSXPath     string          `yaml:"xlsx_path"`
	RedisChannel string          `yaml:"redis_channel"`
	EventGrid    EventGridConfig `yaml:"eventgrid"`
	Pusher       PusherConfig    `yaml:"pusher"`
	SQL          SQLConfig       `yaml:"sql"`
}

type EventGridConfig struct {
	Endpoint string `yaml:"endpoint"`
	Key      string `yaml:"key"`
}

type PusherConfig struct {
	AppID   string `yaml:"app_id"`
	Key     string `yaml:"key"`
	Secret  string `yaml:"secret"`
	Cluster string `yaml:"cluster"`
	Channel string `yaml:"channel"`
	Host    string `yaml:"host"`
}

type SQLConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:   ":8001",
			GRPCAddr:   ":8081",
			PubSubName: "pubsub",
			Topic:      "invoices",
			Route:      "/process",
			Workers:    4,
			QueueSize:  64,
			RunTimeout: 3 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Source: SourceConfig{
			Type:    constants.SourceFile,
			Dir:     ".",
			Timeout: 30 * time.Second,
		},
		Cracker: CrackerConfig{
			Type: constants.CrackerLayout,
			Layout: LayoutConfig{
				APIVersion:   "2024-11-30",
				Model:        "prebuilt-layout",
				Timeout:      10 * time.Second,
				PollInterval: time.Second,
			},
			Tika: TikaConfig{URL: "http://localhost:9998", Timeout: 30 * time.Second},
			Local: LocalOCRConfig{
				Pdftotext:     "pdftotext",
				Pdftoppm:      "pdftoppm",
				Tesseract:     "tesseract",
				TesseractLang: "eng",
				DPI:           300,
			},
		},
		Templates: TemplateConfig{
			Store:   constants.StoreInvoke,
			Timeout: 60 * time.Second,
			Dapr: DaprConfig{
				Endpoint:   "http://localhost",
				Port:       "3500",
				AppID:      "upload",
				StateStore: "kvstore",
			},
			RedisPrefix:         "template:",
			FirestoreCollection: "templates",
		},
		LLM: LLMConfig{
			Type:        constants.ExtractorOpenAI,
			Temperature: 0,
			MaxTokens:   2000,
			Timeout:     45 * time.Second,
			OpenAI:      OpenAIConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o"},
			Groq:        GroqConfig{BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.1-70b-versatile"},
			Ollama:      OllamaConfig{URL: "http://localhost:11434", Model: "llama3.1"},
			Vertex:      VertexConfig{Region: "us-central1", Model: "gemini-1.5-pro"},
		},
		Sinks: SinkConfig{
			Types:        []string{constants.SinkPusher},
			Timeout:      15 * time.Second,
			CSVPath:      "invoice_details.csv",
			JSONLPath:    "invoice_details.jsonl",
			XLSXPath:     "invoice_details.xlsx",
			RedisChannel: "docproc",
			Pusher:       PusherConfig{Cluster: "eu", Channel: "docproc"},
			SQL:          SQLConfig{Dialect: "postgres"},
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file named by
// DOCPROC_CONFIG and environment variables, in that order of precedence.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, WrapError(err, "load .env")
	}

	cfg := DefaultConfig()
	if path := os.Getenv("DOCPROC_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalizeVariants()
	return cfg, nil
}

func (c *Config) normalizeVariants() {
	c.Source.Type = constants.CanonicalVariant(c.Source.Type)
	c.Cracker.Type = constants.CanonicalVariant(c.Cracker.Type)
	c.Templates.Store = constants.CanonicalVariant(c.Templates.Store)
	c.LLM.Type = constants.CanonicalVariant(c.LLM.Type)
	for i, s := range c.Sinks.Types {
		c.Sinks.Types[i] = constants.CanonicalVariant(s)
	}
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file "+path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config file "+path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.PubSubName = getEnv("PUBSUB_NAME", c.Server.PubSubName)
	c.Server.Topic = getEnv("TOPIC_NAME", c.Server.Topic)
	c.Server.Workers = getEnvAsInt("WORKERS", c.Server.Workers)
	c.Server.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Server.QueueSize)
	c.Server.RunTimeout = getEnvAsDuration("RUN_TIMEOUT", c.Server.RunTimeout)
	c.Server.InboxDir = getEnv("INBOX_DIR", c.Server.InboxDir)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Source.Type = getEnv("SOURCE_TYPE", c.Source.Type)
	c.Source.Dir = getEnv("SOURCE_DIR", c.Source.Dir)
	c.Source.Bucket = getEnv("GCS_BUCKET", c.Source.Bucket)
	c.Source.Timeout = getEnvAsDuration("SOURCE_TIMEOUT", c.Source.Timeout)

	c.Cracker.Type = getEnv("CRACKER_TYPE", c.Cracker.Type)
	c.Cracker.Layout.Endpoint = getEnv("DOCINT_URL", c.Cracker.Layout.Endpoint)
	c.Cracker.Layout.Key = getEnv("DOCINT_KEY", c.Cracker.Layout.Key)
	c.Cracker.Layout.APIVersion = getEnv("DOCINT_API_VERSION", c.Cracker.Layout.APIVersion)
	c.Cracker.Layout.Model = getEnv("DOCINT_MODEL", c.Cracker.Layout.Model)
	c.Cracker.Layout.Timeout = getEnvAsDuration("DOCINT_TIMEOUT", c.Cracker.Layout.Timeout)
	c.Cracker.Layout.PollInterval = getEnvAsDuration("DOCINT_POLL_INTERVAL", c.Cracker.Layout.PollInterval)
	c.Cracker.Tika.URL = getEnv("TIKA_URL", c.Cracker.Tika.URL)
	c.Cracker.Tika.Timeout = getEnvAsDuration("TIKA_TIMEOUT", c.Cracker.Tika.Timeout)
	c.Cracker.Local.Pdftotext = getEnv("PDFTOTEXT_BIN", c.Cracker.Local.Pdftotext)
	c.Cracker.Local.Pdftoppm = getEnv("PDFTOPPM_BIN", c.Cracker.Local.Pdftoppm)
	c.Cracker.Local.Tesseract = getEnv("TESSERACT_BIN", c.Cracker.Local.Tesseract)
	c.Cracker.Local.TesseractLang = getEnv("TESSERACT_LANG", c.Cracker.Local.TesseractLang)
	c.Cracker.Local.TessdataDir = getEnv("TESSDATA_PREFIX", c.Cracker.Local.TessdataDir)

	c.Templates.Store = getEnv("TEMPLATE_STORE_TYPE", c.Templates.Store)
	c.Templates.Timeout = getEnvAsDuration("TEMPLATE_TIMEOUT", c.Templates.Timeout)
	c.Templates.Dapr.Endpoint = getEnv("DAPR_HTTP_ENDPOINT", c.Templates.Dapr.Endpoint)
	c.Templates.Dapr.Port = getEnv("DAPR_HTTP_PORT", c.Templates.Dapr.Port)
	c.Templates.Dapr.APIToken = getEnv("DAPR_API_TOKEN", c.Templates.Dapr.APIToken)
	c.Templates.Dapr.AppID = getEnv("INVOKE_APPID", c.Templates.Dapr.AppID)
	c.Templates.Dapr.StateStore = getEnv("KVSTORE_NAME", c.Templates.Dapr.StateStore)
	c.Templates.RedisPrefix = getEnv("TEMPLATE_REDIS_PREFIX", c.Templates.RedisPrefix)
	c.Templates.FirestoreProject = getEnv("FIRESTORE_PROJECT_ID", c.Templates.FirestoreProject)
	c.Templates.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", c.Templates.FirestoreCollection)

	c.LLM.Type = getEnv("INVOICE_EXTRACTOR_TYPE", c.LLM.Type)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.OpenAI.BaseURL)
	c.LLM.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.LLM.OpenAI.APIKey)
	c.LLM.OpenAI.Model = getEnv("OPENAI_MODEL", c.LLM.OpenAI.Model)
	c.LLM.OpenAI.APIKey = getEnv("AZURE_OPENAI_KEY", c.LLM.OpenAI.APIKey)
	c.LLM.OpenAI.Model = getEnv("AZURE_OPENAI_MODEL", c.LLM.OpenAI.Model)
	c.LLM.OpenAI.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", c.LLM.OpenAI.Endpoint)
	c.LLM.OpenAI.APIVersion = getEnv("AZURE_OPENAI_API_VERSION", c.LLM.OpenAI.APIVersion)
	c.LLM.Groq.BaseURL = getEnv("GROQ_BASE_URL", c.LLM.Groq.BaseURL)
	c.LLM.Groq.APIKey = getEnv("GROQ_API_KEY", c.LLM.Groq.APIKey)
	c.LLM.Groq.Model = getEnv("GROQ_MODEL", c.LLM.Groq.Model)
	c.LLM.Ollama.URL = getEnv("OLLAMA_URL", c.LLM.Ollama.URL)
	c.LLM.Ollama.Model = getEnv("OLLAMA_MODEL", c.LLM.Ollama.Model)
	c.LLM.Vertex.ProjectID = getEnv("VERTEX_PROJECT_ID", c.LLM.Vertex.ProjectID)
	c.LLM.Vertex.Region = getEnv("VERTEX_REGION", c.LLM.Vertex.Region)
	c.LLM.Vertex.Model = getEnv("VERTEX_MODEL", c.LLM.Vertex.Model)

	c.Sinks.Types = getEnvAsList("INVOICE_OUTPUT_HANDLER", c.Sinks.Types)
	c.Sinks.Timeout = getEnvAsDuration("SINK_TIMEOUT", c.Sinks.Timeout)
	c.Sinks.CSVPath = getEnv("CSV_PATH", c.Sinks.CSVPath)
	c.Sinks.JSONLPath = getEnv("JSONL_PATH", c.Sinks.JSONLPath)
	c.Sinks.XLSXPath = getEnv("XLSX_PATH", c.Sinks.XLSXPath)
	c.Sinks.RedisChannel = getEnv("REDIS_CHANNEL", c.Sinks.RedisChannel)
	c.Sinks.EventGrid.Endpoint = getEnv("EVENT_GRID_TOPIC_ENDPOINT", c.Sinks.EventGrid.Endpoint)
	c.Sinks.EventGrid.Key = getEnv("EVENT_GRID_TOPIC_KEY", c.Sinks.EventGrid.Key)
	c.Sinks.Pusher.AppID = getEnv("PUSHER_APP_ID", c.Sinks.Pusher.AppID)
	c.Sinks.Pusher.Key = getEnv("PUSHER_KEY", c.Sinks.Pusher.Key)
	c.Sinks.Pusher.Secret = getEnv("PUSHER_SECRET", c.Sinks.Pusher.Secret)
	c.Sinks.Pusher.Cluster = getEnv("PUSHER_CLUSTER", c.Sinks.Pusher.Cluster)
	c.Sinks.Pusher.Channel = getEnv("PUSHER_CHANNEL", c.Sinks.Pusher.Channel)
	c.Sinks.Pusher.Host = getEnv("PUSHER_HOST", c.Sinks.Pusher.Host)
	c.Sinks.SQL.Dialect = getEnv("SQL_DIALECT", c.Sinks.SQL.Dialect)
	c.Sinks.SQL.DSN = getEnv("SQL_DSN", c.Sinks.SQL.DSN)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the settings each selected variant needs. Unknown variant
// names are left to the factories, which report ErrUnsupportedVariant.
func (c *Config) Validate() error {
	c.normalizeVariants()
	v := NewValidator().
		Field("server.http_addr", c.Server.HTTPAddr, Required).
		Field("server.workers", c.Server.Workers, Positive).
		Field("server.queue_size", c.Server.QueueSize, Positive).
		Field("server.run_timeout", c.Server.RunTimeout, Positive).
		Field("sinks.types", c.Sinks.Types, Required)

	switch c.Source.Type {
	case constants.SourceFile:
		v.Field("SOURCE_DIR", c.Source.Dir, Required)
	case constants.SourceGCS:
		v.Field("GCS_BUCKET", c.Source.Bucket, Required)
	}

	switch c.Cracker.Type {
	case constants.CrackerLayout:
		v.Field("DOCINT_URL", c.Cracker.Layout.Endpoint, Required, AbsoluteURL).
			Field("DOCINT_KEY", c.Cracker.Layout.Key, Required).
			Field("DOCINT_TIMEOUT", c.Cracker.Layout.Timeout, Positive)
	case constants.CrackerTika:
		v.Field("TIKA_URL", c.Cracker.Tika.URL, Required, AbsoluteURL)
	}

	switch c.Templates.Store {
	case constants.StoreInvoke:
		v.Field("DAPR_HTTP_ENDPOINT", c.Templates.Dapr.Endpoint, Required, AbsoluteURL).
			Field("INVOKE_APPID", c.Templates.Dapr.AppID, Required)
	case constants.StoreState:
		v.Field("DAPR_HTTP_ENDPOINT", c.Templates.Dapr.Endpoint, Required, AbsoluteURL).
			Field("KVSTORE_NAME", c.Templates.Dapr.StateStore, Required)
	case constants.StoreRedis:
		v.Field("REDIS_ADDR", c.Redis.Addr, Required)
	case constants.StoreFirestore:
		v.Field("FIRESTORE_PROJECT_ID", c.Templates.FirestoreProject, Required)
	}

	switch c.LLM.Type {
	case constants.ExtractorOpenAI:
		v.Field("AZURE_OPENAI_KEY", c.LLM.OpenAI.APIKey, Required).
			Field("AZURE_OPENAI_ENDPOINT", c.LLM.OpenAI.Endpoint, AbsoluteURL)
	case constants.ExtractorGroq:
		v.Field("GROQ_API_KEY", c.LLM.Groq.APIKey, Required)
	case constants.ExtractorOllama:
		v.Field("OLLAMA_URL", c.LLM.Ollama.URL, Required, AbsoluteURL)
	case constants.ExtractorVertex:
		v.Field("VERTEX_PROJECT_ID", c.LLM.Vertex.ProjectID, Required).
			Field("VERTEX_REGION", c.LLM.Vertex.Region, Required)
	}

	for _, s := range c.Sinks.Types {
		switch s {
		case constants.SinkEventGrid:
			v.Field("EVENT_GRID_TOPIC_ENDPOINT", c.Sinks.EventGrid.Endpoint, Required, AbsoluteURL).
				Field("EVENT_GRID_TOPIC_KEY", c.Sinks.EventGrid.Key, Required)
		case constants.SinkPusher:
			v.Field("PUSHER_APP_ID", c.Sinks.Pusher.AppID, Required).
				Field("PUSHER_KEY", c.Sinks.Pusher.Key, Required).
				Field("PUSHER_SECRET", c.Sinks.Pusher.Secret, Required).
				Field("PUSHER_CLUSTER", c.Sinks.Pusher.Cluster, Required)
		case constants.SinkRedis:
			v.Field("REDIS_ADDR", c.Redis.Addr, Required)
		case constants.SinkSQL:
			v.Field("SQL_DSN", c.Sinks.SQL.DSN, Required).
				Field("SQL_DIALECT", c.Sinks.SQL.Dialect, OneOf("postgres", "sqlite"))
		}
	}
	return ValidateAndReturnError(v)
}

// String renders the selected variants for startup logs without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("source=%s cracker=%s templates=%s extractor=%s sinks=%s",
		c.Source.Type, c.Cracker.Type, c.Templates.Store, c.LLM.Type, strings.Join(c.Sinks.Types, ","))
}
