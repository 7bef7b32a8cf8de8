package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"travel_recommend/internal/scheduler"
	"travel_recommend/internal/scoring"
	"travel_recommend/internal/textvec"
)

const (
	envPrefix         = "TRAVEL_REC_"
	configPathEnvVar  = envPrefix + "CONFIG"
	defaultConfigPath = "configs/config.yaml"
)

// Config 对应 configs/config.yaml，优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Paths     PathsConfig     `koanf:"paths"`
	Recommend RecommendConfig `koanf:"recommend"`
	Jobs      scheduler.Jobs  `koanf:"jobs"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required,numeric"`
	Debug          bool          `koanf:"debug"`
	LogFormat      string        `koanf:"log_format" validate:"oneof=console json"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gte=0"`
	// AdminToken 为空时禁用 /api/v1/admin
	AdminToken string `koanf:"admin_token"`
}

type PathsConfig struct {
	Catalog   string `koanf:"catalog" validate:"required"`
	Users     string `koanf:"users" validate:"required"`
	Pipelines string `koanf:"pipelines"`
	History   string `koanf:"history"`
	// Snapshot 为空时写回 Users
	Snapshot  string `koanf:"snapshot"`
	ExportDir string `koanf:"export_dir"`
}

type RecommendConfig struct {
	TopN           int             `koanf:"top_n" validate:"gte=1,lte=100"`
	Weights        scoring.Weights `koanf:"weights"`
	Neighbors      int             `koanf:"neighbors" validate:"gte=1"`
	MaxFeatures    int             `koanf:"max_features" validate:"gte=1"`
	MinDF          int             `koanf:"min_df" validate:"gte=1"`
	MaxDF          float64         `koanf:"max_df" validate:"gt=0,lte=1"`
	RowCacheSize   int             `koanf:"row_cache_size" validate:"gte=0"`
	FuzzyDiscount  float64         `koanf:"fuzzy_discount" validate:"gt=0,lte=1"`
	PersistOnClick bool            `koanf:"persist_on_click"`
	// TagSynonyms 形如 "溫泉:泡湯"
	TagSynonyms []string `koanf:"tag_synonyms" validate:"dive,contains=:"`
}

func defaultConfig() Config {
	vec := textvec.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			LogFormat:      "console",
			RequestTimeout: 30 * time.Second,
		},
		Paths: PathsConfig{
			Catalog:   "data/products.csv",
			Users:     "data/users.json",
			Pipelines: "configs/pipelines.json",
			History:   "data/history.jsonl",
			ExportDir: "data/backups",
		},
		Recommend: RecommendConfig{
			TopN:          6,
			Weights:       scoring.DefaultWeights(),
			Neighbors:     scoring.DefaultNeighbours,
			MaxFeatures:   vec.MaxFeatures,
			MinDF:         vec.MinDF,
			MaxDF:         vec.MaxDF,
			RowCacheSize:  256,
			FuzzyDiscount: scoring.DefaultFuzzyDiscount,
		},
		Jobs: scheduler.Jobs{
			SnapshotCron:         "@every 10m",
			HistoryCleanupCron:   "@daily",
			HistoryRetentionDays: 30,
		},
	}
}

// 环境变量里用逗号分隔的列表字段
var sliceConfigPaths = []string{
	"server.cors_origins",
	"recommend.tag_synonyms",
}

// LoadConfig 按默认值、配置文件、环境变量、flags 的顺序叠加配置。
// configPath 为空时依次尝试 TRAVEL_REC_CONFIG 和 configs/config.yaml，都不存在就跳过文件层。
func LoadConfig(configPath string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := configPath != ""
	if !explicit {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// TRAVEL_REC_SERVER__PORT -> server.port
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	for path, v := range overrides {
		if err := k.Set(path, v); err != nil {
			return nil, fmt.Errorf("failed to apply flag %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(configPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	if key == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return err
		}
	}
	return nil
}

// Validate 检查取值范围和权重
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	w := c.Recommend.Weights
	if w.Content+w.Collaborative+w.TagMatching <= 0 {
		return fmt.Errorf("recommend.weights: at least one weight must be positive")
	}
	if _, err := c.Recommend.synonymPairs(); err != nil {
		return err
	}
	return nil
}

func (r RecommendConfig) synonymPairs() ([]scoring.SynonymPair, error) {
	pairs := make([]scoring.SynonymPair, 0, len(r.TagSynonyms))
	for _, s := range r.TagSynonyms {
		a, b, _ := strings.Cut(s, ":")
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if a == "" || b == "" {
			return nil, fmt.Errorf("recommend.tag_synonyms: invalid pair %q", s)
		}
		pairs = append(pairs, scoring.SynonymPair{a, b})
	}
	return pairs, nil
}

func (r RecommendConfig) vectorizer() textvec.Options {
	opts := textvec.DefaultOptions()
	opts.MaxFeatures = r.MaxFeatures
	opts.MinDF = r.MinDF
	opts.MaxDF = r.MaxDF
	return opts
}

// SnapshotPath 画像快照写入位置
func (p PathsConfig) SnapshotPath() string {
	if p.Snapshot != "" {
		return p.Snapshot
	}
	return p.Users
}
