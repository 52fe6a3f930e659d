package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dushixiang/opsdeck/internal/logger"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	// FastIntervalSeconds 快层采集间隔（秒），同时是采集循环的节拍
	FastIntervalSeconds int `yaml:"fast_interval_seconds"`
	// RetentionSeconds 历史数据保留窗口（秒）
	RetentionSeconds int `yaml:"retention_seconds"`
	// Database 数据库文件路径，空值使用 ~/.opsdeck/metrics.db
	Database string `yaml:"database"`
	// AgentCLI 智能体编排服务的命令行工具名称
	AgentCLI string `yaml:"agent_cli"`
	// GeoAPI 地理位置查询接口地址
	GeoAPI string `yaml:"geo_api"`
	// AuthLog SSH 认证日志路径
	AuthLog string `yaml:"auth_log"`
	// Log 日志配置
	Log logger.Config `yaml:"log"`
}

// Default 返回默认配置
func Default() *AppConfig {
	return &AppConfig{
		FastIntervalSeconds: 30,
		RetentionSeconds:    30 * 24 * 3600,
		AgentCLI:            "agentctl",
		GeoAPI:              "http://ip-api.com/json",
		AuthLog:             "/var/log/auth.log",
		Log: logger.Config{
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Load 从文件加载配置，文件不存在时返回默认配置
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if cfg.FastIntervalSeconds <= 0 {
		cfg.FastIntervalSeconds = 30
	}
	if cfg.RetentionSeconds <= 0 {
		cfg.RetentionSeconds = 30 * 24 * 3600
	}
	if cfg.AgentCLI == "" {
		cfg.AgentCLI = "agentctl"
	}
	return cfg, nil
}

// FastInterval 快层采集间隔
func (c *AppConfig) FastInterval() time.Duration {
	return time.Duration(c.FastIntervalSeconds) * time.Second
}

// Retention 历史数据保留窗口
func (c *AppConfig) Retention() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}
