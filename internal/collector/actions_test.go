package collector

import (
	"strings"
	"testing"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

func TestBuildActionItemsAllNil(t *testing.T) {
	if items := BuildActionItems(nil, nil, nil, nil, nil); len(items) != 0 {
		t.Errorf("全空入参不应产生待办，实际 %+v", items)
	}
}

func TestBuildActionItemsSeverities(t *testing.T) {
	cron := &protocol.CronJobsData{Jobs: []protocol.CronJob{
		{Name: "backup", Status: "error"},
		{Name: "report", Status: "ok"},
	}}
	security := &protocol.SecurityStatusData{
		SSHIntrusions:  120,
		ListeningPorts: 9,
		ExpectedPorts:  4,
	}
	channels := &protocol.ChannelsStatusData{Channels: []protocol.ChannelStatus{
		{Name: "email", State: "WARN", Detail: "smtp timeout"},
		{Name: "telegram", State: "OK"},
	}}
	update := &protocol.UpdateStatusData{Available: true, Latest: "2.5.0"}
	server := &protocol.ServerHealthData{CPUPercent: 95, MemPercent: 50, DiskPercent: 85}

	items := BuildActionItems(cron, security, channels, update, server)

	var errorCount, warnCount int
	for _, item := range items {
		switch item.Severity {
		case "error":
			errorCount++
		case "warn":
			warnCount++
		}
	}
	// error: cron 失败 + 入侵次数；warn: 端口数、更新、通道、磁盘、CPU
	if errorCount != 2 {
		t.Errorf("应有 2 条 error 级待办，实际 %d: %+v", errorCount, items)
	}
	if warnCount != 5 {
		t.Errorf("应有 5 条 warn 级待办，实际 %d: %+v", warnCount, items)
	}

	found := false
	for _, item := range items {
		if strings.Contains(item.Text, "backup cron failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("缺少 cron 失败待办: %+v", items)
	}
}

func TestBuildActionItemsQuietSystem(t *testing.T) {
	security := &protocol.SecurityStatusData{SSHIntrusions: 3, ListeningPorts: 4, ExpectedPorts: 4}
	server := &protocol.ServerHealthData{CPUPercent: 20, MemPercent: 40, DiskPercent: 50}
	if items := BuildActionItems(nil, security, nil, nil, server); len(items) != 0 {
		t.Errorf("健康系统不应产生待办，实际 %+v", items)
	}
}
