package collector

import (
	"fmt"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// BuildActionItems 从各数据源推导待办事项。
// 任一入参可以为 nil，对应的检查会被跳过。
func BuildActionItems(
	cron *protocol.CronJobsData,
	security *protocol.SecurityStatusData,
	channels *protocol.ChannelsStatusData,
	update *protocol.UpdateStatusData,
	server *protocol.ServerHealthData,
) []protocol.ActionItem {
	var items []protocol.ActionItem

	if cron != nil {
		for _, job := range cron.Jobs {
			if job.Status == "error" {
				name := job.Name
				if name == "" {
					name = "Unknown"
				}
				items = append(items, protocol.ActionItem{
					Severity: "error",
					Text:     name + " cron failed",
				})
			}
		}
	}

	if security != nil {
		if security.SSHIntrusions > 50 {
			items = append(items, protocol.ActionItem{
				Severity: "error",
				Text:     fmt.Sprintf("%d SSH intrusion attempts", security.SSHIntrusions),
			})
		}
		if security.ListeningPorts > security.ExpectedPorts+2 {
			items = append(items, protocol.ActionItem{
				Severity: "warn",
				Text: fmt.Sprintf("%d listening ports (expected ~%d)",
					security.ListeningPorts, security.ExpectedPorts),
			})
		}
	}

	if update != nil && update.Available {
		latest := update.Latest
		if latest == "" {
			latest = "?"
		}
		items = append(items, protocol.ActionItem{
			Severity: "warn",
			Text:     "update available: " + latest,
		})
	}

	if channels != nil {
		for _, ch := range channels.Channels {
			if ch.State == "WARN" {
				detail := ch.Detail
				if detail == "" {
					detail = "warning"
				}
				items = append(items, protocol.ActionItem{
					Severity: "warn",
					Text:     ch.Name + ": " + detail,
				})
			}
		}
	}

	if server != nil {
		if server.DiskPercent > 80 {
			items = append(items, protocol.ActionItem{
				Severity: "warn",
				Text:     fmt.Sprintf("Disk usage: %.0f%%", server.DiskPercent),
			})
		}
		if server.MemPercent > 80 {
			items = append(items, protocol.ActionItem{
				Severity: "warn",
				Text:     fmt.Sprintf("Memory usage: %.0f%%", server.MemPercent),
			})
		}
		if server.CPUPercent > 90 {
			items = append(items, protocol.ActionItem{
				Severity: "warn",
				Text:     fmt.Sprintf("CPU usage: %.0f%%", server.CPUPercent),
			})
		}
	}

	return items
}
