package collector

import (
	"context"
	"testing"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		seconds uint64
		want    string
	}{
		{90, "1m"},
		{3 * 3600, "3h 0m"},
		{3*86400 + 4*3600 + 12*60, "3d 4h 12m"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.seconds); got != tt.want {
			t.Errorf("formatUptime(%d) = %q，期望 %q", tt.seconds, got, tt.want)
		}
	}
}

func TestCollectHealthFirstSampleCPU(t *testing.T) {
	c := NewSystemCollector()
	data, err := c.CollectHealth(context.Background())
	if err != nil {
		t.Fatalf("采集失败: %v", err)
	}

	// 首次采样没有增量基准，CPU 应为 0
	if data.CPUPercent != 0 {
		t.Errorf("首次采样 CPU 应为 0，实际 %v", data.CPUPercent)
	}
	if data.MemTotalMB <= 0 {
		t.Errorf("总内存应大于 0，实际 %v", data.MemTotalMB)
	}
	if len(data.LoadAvg) != 3 {
		t.Errorf("负载应有 3 个值，实际 %v", data.LoadAvg)
	}

	// 第二次采样有了基准，不应报错
	if _, err := c.CollectHealth(context.Background()); err != nil {
		t.Fatalf("第二次采集失败: %v", err)
	}
}
