package types

import (
	"errors"
	"time"
)

var ErrMissingBaseURL = errors.New("base URL is required")

// Config Provider 通用配置
// API Key 不在这里：每个请求各自解析凭证
type Config struct {
	BaseURL               string            // API 基础 URL
	ModerationModel       string            // 为空时由服务端选择
	DialTimeout           time.Duration     // 建连超时
	ResponseHeaderTimeout time.Duration     // 等待响应头的超时，流式正文不设上限
	Headers               map[string]string // 自定义 HTTP Headers
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.ResponseHeaderTimeout == 0 {
		c.ResponseHeaderTimeout = 60 * time.Second
	}
	return nil
}
