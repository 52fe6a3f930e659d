package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("缺失文件不应报错: %v", err)
	}
	if cfg.FastIntervalSeconds != 30 {
		t.Errorf("默认快层间隔应为 30 秒，实际 %d", cfg.FastIntervalSeconds)
	}
	if cfg.Retention() != 30*24*time.Hour {
		t.Errorf("默认保留窗口应为 30 天，实际 %v", cfg.Retention())
	}
	if cfg.AgentCLI != "agentctl" {
		t.Errorf("默认 CLI 名称错误: %q", cfg.AgentCLI)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
fast_interval_seconds: 60
retention_seconds: 86400
agent_cli: myctl
database: /tmp/opsdeck-test.db
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写配置失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.FastInterval() != time.Minute {
		t.Errorf("快层间隔应为 60 秒，实际 %v", cfg.FastInterval())
	}
	if cfg.AgentCLI != "myctl" {
		t.Errorf("CLI 名称覆盖失败: %q", cfg.AgentCLI)
	}
	if cfg.Database != "/tmp/opsdeck-test.db" {
		t.Errorf("数据库路径覆盖失败: %q", cfg.Database)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("日志级别覆盖失败: %q", cfg.Log.Level)
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fast_interval_seconds: -5\nretention_seconds: 0\n"), 0644); err != nil {
		t.Fatalf("写配置失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.FastIntervalSeconds != 30 || cfg.RetentionSeconds != 30*24*3600 {
		t.Errorf("非法值应回退到默认值，实际 %+v", cfg)
	}
}
