package config

import "errors"

// 配置验证相关错误
var (
	// ErrInvalidPackLimit 默认检索条数无效
	ErrInvalidPackLimit = errors.New("default pack limit must be positive")
	// ErrInvalidRegenerations 重生成次数无效
	ErrInvalidRegenerations = errors.New("max regenerations must be positive")
	// ErrInvalidSampleRate 采样率无效
	ErrInvalidSampleRate = errors.New("sample rate must be between 0 and 1")
)

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Engine.DefaultPackLimit < 0 {
		return ErrInvalidPackLimit
	}
	if c.Engine.MaxRegenerations < 0 {
		return ErrInvalidRegenerations
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	return nil
}
