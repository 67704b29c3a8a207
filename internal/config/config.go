package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Upload     UploadConfig     `yaml:"upload"`

	Aliyun AliyunConfig `yaml:"aliyun"`
	Qdrant QdrantConfig `yaml:"qdrant"`

	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	MinIO    MinIOConfig    `yaml:"minio"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Redis    RedisConfig    `yaml:"redis"`
	Outbox   OutboxConfig   `yaml:"outbox"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Address             string `yaml:"address"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	ExitWaitSeconds     int    `yaml:"exit_wait_seconds"`
}

// AuthConfig API Key 鉴权，api_keys 为空时关闭鉴权
type AuthConfig struct {
	Header  string   `yaml:"header"`
	APIKeys []string `yaml:"api_keys"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"` // json | pretty
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
}

// TracingConfig OTLP 链路追踪配置
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// ExtractionConfig 实体抽取参数
type ExtractionConfig struct {
	MaxSectionChars  int    `yaml:"max_section_chars"`
	MaxDocumentChars int    `yaml:"max_document_chars"`
	NameWindowLines  int    `yaml:"name_window_lines"`
	LexiconPath      string `yaml:"lexicon_path"` // 为空时使用内置词典
	CacheTTLMinutes  int    `yaml:"cache_ttl_minutes"`
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxSizeMB         int      `yaml:"max_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	ProcessTimeoutSec int      `yaml:"process_timeout_seconds"`
}

// AliyunConfig 通义千问 / DashScope 配置
type AliyunConfig struct {
	APIKey    string          `yaml:"api_key"`
	APIURL    string          `yaml:"api_url"`
	Model     string          `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring"`
}

// EmbeddingConfig Aliyun Embedding 配置
type EmbeddingConfig struct {
	Model         string `yaml:"model"`
	Dimensions    int    `yaml:"dimensions"`
	BaseURL       string `yaml:"base_url"`
	MaxInputChars int    `yaml:"max_input_chars"`
	QPM           int    `yaml:"qpm"`
}

// ScoringConfig LLM 评分配置
type ScoringConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	QPM            int     `yaml:"qpm"`
	MaxRetries     int     `yaml:"max_retries"`
}

// QdrantConfig Qdrant 配置
type QdrantConfig struct {
	Endpoint           string  `yaml:"endpoint"`
	Collection         string  `yaml:"collection"`
	Dimension          int     `yaml:"dimension"`
	APIKey             string  `yaml:"api_key,omitempty"`
	DefaultSearchLimit int     `yaml:"default_search_limit"`
	ScoreThreshold     float64 `yaml:"score_threshold"`
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL                  string `yaml:"url"`
	ResumeEventsExchange string `yaml:"resume_events_exchange"`
	ExtractedRoutingKey  string `yaml:"extracted_routing_key"`
	ChannelPoolSize      int    `yaml:"channel_pool_size"`
}

// MinIOConfig MinIO 配置
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"`
	OriginalsExpiry int    `yaml:"originals_expiry_days"` // 0 表示不过期
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	Database               string `yaml:"database"`
	Charset                string `yaml:"charset"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               int    `yaml:"log_level"` // gorm logger: 1 silent .. 4 info
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address             string `yaml:"address"`
	Password            string `yaml:"password"`
	DB                  int    `yaml:"db"`
	PoolSize            int    `yaml:"pool_size"`
	MinIdleConns        int    `yaml:"min_idle_conns"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxRetries          int    `yaml:"max_retries"`
	MD5RecordExpireDays int    `yaml:"md5_record_expire_days"`
}

// OutboxConfig outbox 中继配置
type OutboxConfig struct {
	Enabled         bool   `yaml:"enabled"`
	PollInterval    string `yaml:"poll_interval"`
	BatchSize       int    `yaml:"batch_size"`
	MaxRetries      int    `yaml:"max_retries"`
	PublishTimeoutS int    `yaml:"publish_timeout_seconds"`
}

// LoadConfig 从 YAML 文件加载配置，再用环境变量覆盖敏感字段。
// configPath 为空时依次尝试 RESUME_CONFIG 与 ./config.yaml，都不存在则返回默认配置。
func LoadConfig(configPath string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("RESUME_CONFIG")
	}
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		}
	}

	cfg := DefaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig 返回一份可直接运行的默认配置（仅抽取接口可用，外部存储未配置）
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"RESUME_ALIYUN_API_KEY":  &cfg.Aliyun.APIKey,
		"RESUME_ALIYUN_API_URL":  &cfg.Aliyun.APIURL,
		"RESUME_ALIYUN_MODEL":    &cfg.Aliyun.Model,
		"RESUME_MYSQL_PASSWORD":  &cfg.MySQL.Password,
		"RESUME_REDIS_PASSWORD":  &cfg.Redis.Password,
		"RESUME_MINIO_SECRET":    &cfg.MinIO.SecretAccessKey,
		"RESUME_RABBITMQ_URL":    &cfg.RabbitMQ.URL,
		"RESUME_QDRANT_API_KEY":  &cfg.Qdrant.APIKey,
		"RESUME_SERVER_ADDRESS":  &cfg.Server.Address,
		"RESUME_LOG_LEVEL":       &cfg.Logger.Level,
		"RESUME_OTLP_ENDPOINT":   &cfg.Tracing.OTLPEndpoint,
		"RESUME_QDRANT_ENDPOINT": &cfg.Qdrant.Endpoint,
	}
	for env, field := range overrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
	if keys := os.Getenv("RESUME_API_KEYS"); keys != "" {
		cfg.Auth.APIKeys = splitList(keys)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ExitWaitSeconds == 0 {
		c.Server.ExitWaitSeconds = 5
	}
	if c.Auth.Header == "" {
		c.Auth.Header = "X-API-Key"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "resume-ner-go"
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}

	if c.Extraction.MaxSectionChars <= 0 {
		c.Extraction.MaxSectionChars = 16384
	}
	if c.Extraction.MaxDocumentChars <= 0 {
		c.Extraction.MaxDocumentChars = 65536
	}
	if c.Extraction.NameWindowLines <= 0 {
		c.Extraction.NameWindowLines = 5
	}
	if c.Extraction.CacheTTLMinutes <= 0 {
		c.Extraction.CacheTTLMinutes = 60
	}

	if c.Upload.MaxSizeMB <= 0 {
		c.Upload.MaxSizeMB = 10
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{".pdf", ".docx", ".txt"}
	}
	if c.Upload.ProcessTimeoutSec <= 0 {
		c.Upload.ProcessTimeoutSec = 120
	}

	if c.Aliyun.APIURL == "" {
		c.Aliyun.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	}
	if c.Aliyun.Model == "" {
		c.Aliyun.Model = "qwen-turbo"
	}
	if c.Aliyun.Embedding.Model == "" {
		c.Aliyun.Embedding.Model = "text-embedding-v3"
	}
	if c.Aliyun.Embedding.Dimensions <= 0 {
		c.Aliyun.Embedding.Dimensions = 1024
	}
	if c.Aliyun.Embedding.BaseURL == "" {
		c.Aliyun.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}
	if c.Aliyun.Embedding.MaxInputChars <= 0 {
		c.Aliyun.Embedding.MaxInputChars = 512
	}
	if c.Aliyun.Scoring.TimeoutSeconds <= 0 {
		c.Aliyun.Scoring.TimeoutSeconds = 60
	}
	if c.Aliyun.Scoring.QPM <= 0 {
		c.Aliyun.Scoring.QPM = 30
	}
	if c.Aliyun.Scoring.MaxRetries <= 0 {
		c.Aliyun.Scoring.MaxRetries = 2
	}
	if c.Aliyun.Embedding.QPM <= 0 {
		c.Aliyun.Embedding.QPM = 300
	}

	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "resumes"
	}
	if c.Qdrant.Dimension <= 0 {
		c.Qdrant.Dimension = c.Aliyun.Embedding.Dimensions
	}
	if c.Qdrant.DefaultSearchLimit <= 0 {
		c.Qdrant.DefaultSearchLimit = 5
	}
	if c.Qdrant.ScoreThreshold <= 0 {
		c.Qdrant.ScoreThreshold = 0.1
	}

	if c.RabbitMQ.ResumeEventsExchange == "" {
		c.RabbitMQ.ResumeEventsExchange = "resume.events.exchange"
	}
	if c.RabbitMQ.ExtractedRoutingKey == "" {
		c.RabbitMQ.ExtractedRoutingKey = "resume.extracted"
	}
	if c.RabbitMQ.ChannelPoolSize <= 0 {
		c.RabbitMQ.ChannelPoolSize = 8
	}

	if c.MinIO.BucketName == "" {
		c.MinIO.BucketName = "resume-originals"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.Charset == "" {
		c.MySQL.Charset = "utf8mb4"
	}
	if c.MySQL.MaxIdleConns <= 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.MaxOpenConns <= 0 {
		c.MySQL.MaxOpenConns = 50
	}
	if c.MySQL.ConnMaxLifetimeMinutes <= 0 {
		c.MySQL.ConnMaxLifetimeMinutes = 60
	}
	if c.MySQL.LogLevel <= 0 {
		c.MySQL.LogLevel = 2
	}
	if c.Redis.PoolSize <= 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeoutSeconds <= 0 {
		c.Redis.DialTimeoutSeconds = 5
	}
	if c.Redis.ReadTimeoutSeconds <= 0 {
		c.Redis.ReadTimeoutSeconds = 3
	}
	if c.Redis.WriteTimeoutSeconds <= 0 {
		c.Redis.WriteTimeoutSeconds = 3
	}
	if c.Redis.MD5RecordExpireDays <= 0 {
		c.Redis.MD5RecordExpireDays = 30
	}
	if c.Outbox.PollInterval == "" {
		c.Outbox.PollInterval = "2s"
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 50
	}
	if c.Outbox.MaxRetries <= 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Outbox.PublishTimeoutS <= 0 {
		c.Outbox.PublishTimeoutS = 5
	}
}

// Validate 检查互相依赖的配置项
func (c *Config) Validate() error {
	if c.Qdrant.Endpoint != "" && c.Qdrant.Dimension != c.Aliyun.Embedding.Dimensions {
		return fmt.Errorf("qdrant.dimension(%d) 与 aliyun.embedding.dimensions(%d) 不一致",
			c.Qdrant.Dimension, c.Aliyun.Embedding.Dimensions)
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("upload.allowed_extensions 中的 %q 必须以 '.' 开头", ext)
		}
	}
	if _, err := time.ParseDuration(c.Outbox.PollInterval); err != nil {
		return fmt.Errorf("outbox.poll_interval 无效: %w", err)
	}
	return nil
}

// DSN 返回 MySQL 连接串
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, m.Port, m.Database, m.Charset)
}

// GetDuration 解析时长字符串，失败时返回默认值
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
