// Package config 提供配置加载和管理功能
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config 全局配置结构
type Config struct {
	// Engine 上下文引擎配置
	Engine EngineConfig `koanf:"engine"`
	// Observability 可观测性配置
	Observability ObservabilityConfig `koanf:"observability"`
}

// EngineConfig 上下文引擎配置
type EngineConfig struct {
	// DeclarationDir 上下文计划 YAML 文件目录
	DeclarationDir string `koanf:"declaration_dir"`
	// EstimatorModel Token 估算使用的模型名称
	EstimatorModel string `koanf:"estimator_model"`
	// DefaultPackLimit 证据包检索的默认条数
	DefaultPackLimit int `koanf:"default_pack_limit"`
	// MaxRegenerations 超预算时的最大重生成次数
	MaxRegenerations int `koanf:"max_regenerations"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	// Enabled 是否启用
	Enabled bool `koanf:"enabled"`
	// ServiceName 服务名称
	ServiceName string `koanf:"service_name"`
	// TracerEndpoint 追踪端点
	TracerEndpoint string `koanf:"tracer_endpoint"`
	// MetricsEndpoint 指标端点
	MetricsEndpoint string `koanf:"metrics_endpoint"`
	// SampleRate 采样率 [0, 1]
	SampleRate float64 `koanf:"sample_rate"`
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New("."),
	}
}

// LoadFile 从 YAML 文件加载配置
func (l *Loader) LoadFile(path string) error {
	// 文件不存在不报错，使用默认值
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return l.k.Load(file.Provider(path), yaml.Parser())
}

// LoadEnv 从环境变量加载配置
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		// 转换环境变量名: CONTEXTENGINE_ENGINE_ESTIMATOR_MODEL -> engine.estimator_model
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		parts := strings.SplitN(s, "_", 2)
		if len(parts) == 2 {
			return parts[0] + "." + parts[1]
		}
		return s
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString 获取字符串配置值
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt 获取整数配置值
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool 获取布尔配置值
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// GetDuration 获取时间间隔配置值
func (l *Loader) GetDuration(key string) time.Duration {
	return l.k.Duration(key)
}

// Load 加载完整配置（文件 + 环境变量）
func Load(configPath string) (*Config, error) {
	loader := NewLoader()

	// 加载配置文件
	if configPath != "" {
		if err := loader.LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	// 加载环境变量（优先级更高）
	if err := loader.LoadEnv("CONTEXTENGINE_"); err != nil {
		return nil, err
	}

	// 解析到结构体
	cfg := &Config{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 应用默认值
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults 应用默认配置值
func applyDefaults(cfg *Config) {
	// Engine 默认值
	if cfg.Engine.EstimatorModel == "" {
		cfg.Engine.EstimatorModel = "gpt-4o"
	}
	if cfg.Engine.DefaultPackLimit == 0 {
		cfg.Engine.DefaultPackLimit = 5
	}
	if cfg.Engine.MaxRegenerations == 0 {
		cfg.Engine.MaxRegenerations = 3
	}

	// Observability 默认值
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "contextengine"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
}
