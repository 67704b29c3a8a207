package processor

import (
	"strings"
	"time"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/constants"
	"resume-ner-go/internal/parser"
	"resume-ner-go/internal/storage"
)

// Components 服务依赖的组件，除 TextExtractor 和 Extractor 外都可以为空，
// 为空时对应步骤跳过
type Components struct {
	TextExtractor TextExtractor
	Extractor     RecordExtractor
	Scorer        ResumeScorer
	Embedder      Embedder
	Deduper       FileDeduper
	Cache         RecordCache
	Objects       ObjectStorage
	Vectors       storage.VectorDatabase
	Submissions   storage.SubmissionStore
}

// Settings 处理参数
type Settings struct {
	MaxUploadBytes    int64
	AllowedExtensions map[string]struct{}
	RecordCacheTTL    time.Duration
	ProcessTimeout    time.Duration
	EmbeddingMaxRunes int
	VectorDimensions  int
	SearchLimit       int
	ScoreThreshold    float64
	EventsExchange    string
	EventsRoutingKey  string
}

// ComponentOpt 只改变 Components
type ComponentOpt func(*Components)

// SettingOpt 只改变 Settings
type SettingOpt func(*Settings)

func defaultSettings() Settings {
	return Settings{
		MaxUploadBytes:    10 << 20,
		AllowedExtensions: extensionSet([]string{".pdf", ".docx", ".txt"}),
		RecordCacheTTL:    time.Hour,
		ProcessTimeout:    2 * time.Minute,
		EmbeddingMaxRunes: constants.EmbeddingMaxInputRunes,
		VectorDimensions:  parser.DefaultEmbeddingDimensions,
		SearchLimit:       5,
		ScoreThreshold:    0.1,
		EventsExchange:    "resume.events.exchange",
		EventsRoutingKey:  "resume.extracted",
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// ----- 组件选项 -----

func WithTextExtractor(e TextExtractor) ComponentOpt {
	return func(c *Components) { c.TextExtractor = e }
}

func WithRecordExtractor(e RecordExtractor) ComponentOpt {
	return func(c *Components) { c.Extractor = e }
}

func WithScorer(s ResumeScorer) ComponentOpt {
	return func(c *Components) { c.Scorer = s }
}

func WithEmbedder(e Embedder) ComponentOpt {
	return func(c *Components) { c.Embedder = e }
}

func WithDeduper(d FileDeduper) ComponentOpt {
	return func(c *Components) { c.Deduper = d }
}

func WithRecordCache(rc RecordCache) ComponentOpt {
	return func(c *Components) { c.Cache = rc }
}

func WithObjectStorage(o ObjectStorage) ComponentOpt {
	return func(c *Components) { c.Objects = o }
}

func WithVectorDatabase(v storage.VectorDatabase) ComponentOpt {
	return func(c *Components) { c.Vectors = v }
}

func WithSubmissionStore(s storage.SubmissionStore) ComponentOpt {
	return func(c *Components) { c.Submissions = s }
}

// WithStorage 从已连接的存储中取出非空的后端
func WithStorage(s *storage.Storage) ComponentOpt {
	return func(c *Components) {
		if s == nil {
			return
		}
		if s.Redis != nil {
			c.Deduper = s.Redis
			c.Cache = s.Redis
		}
		if s.MinIO != nil {
			c.Objects = s.MinIO
		}
		if s.Qdrant != nil {
			c.Vectors = s.Qdrant
		}
		if s.MySQL != nil {
			c.Submissions = s.MySQL
		}
	}
}

// ----- 设置选项 -----

// WithConfig 从配置文件映射全部设置
func WithConfig(cfg *config.Config) SettingOpt {
	return func(s *Settings) {
		if cfg == nil {
			return
		}
		if cfg.Upload.MaxSizeMB > 0 {
			s.MaxUploadBytes = int64(cfg.Upload.MaxSizeMB) << 20
		}
		if len(cfg.Upload.AllowedExtensions) > 0 {
			s.AllowedExtensions = extensionSet(cfg.Upload.AllowedExtensions)
		}
		if cfg.Upload.ProcessTimeoutSec > 0 {
			s.ProcessTimeout = time.Duration(cfg.Upload.ProcessTimeoutSec) * time.Second
		}
		if cfg.Extraction.CacheTTLMinutes > 0 {
			s.RecordCacheTTL = time.Duration(cfg.Extraction.CacheTTLMinutes) * time.Minute
		}
		if cfg.Aliyun.Embedding.MaxInputChars > 0 {
			s.EmbeddingMaxRunes = cfg.Aliyun.Embedding.MaxInputChars
		}
		if cfg.Qdrant.Dimension > 0 {
			s.VectorDimensions = cfg.Qdrant.Dimension
		}
		if cfg.Qdrant.DefaultSearchLimit > 0 {
			s.SearchLimit = cfg.Qdrant.DefaultSearchLimit
		}
		if cfg.Qdrant.ScoreThreshold > 0 {
			s.ScoreThreshold = cfg.Qdrant.ScoreThreshold
		}
		if cfg.RabbitMQ.ResumeEventsExchange != "" {
			s.EventsExchange = cfg.RabbitMQ.ResumeEventsExchange
		}
		if cfg.RabbitMQ.ExtractedRoutingKey != "" {
			s.EventsRoutingKey = cfg.RabbitMQ.ExtractedRoutingKey
		}
	}
}

func WithMaxUploadBytes(n int64) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.MaxUploadBytes = n
		}
	}
}

func WithAllowedExtensions(exts ...string) SettingOpt {
	return func(s *Settings) {
		if len(exts) > 0 {
			s.AllowedExtensions = extensionSet(exts)
		}
	}
}

func WithVectorDimensions(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.VectorDimensions = n
		}
	}
}

func WithSearchDefaults(limit int, threshold float64) SettingOpt {
	return func(s *Settings) {
		if limit > 0 {
			s.SearchLimit = limit
		}
		if threshold > 0 {
			s.ScoreThreshold = threshold
		}
	}
}
