// Package collector 实现各个数据探针：主机健康、智能体编排服务、
// 定时任务、安全状态、网络活动和日志。每个探针都是独立的，
// 带上下文超时，失败只影响自身。
package collector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// CommandExecutor 命令执行器
type CommandExecutor struct {
	timeout time.Duration
}

// NewCommandExecutor 创建命令执行器
func NewCommandExecutor(timeout time.Duration) *CommandExecutor {
	return &CommandExecutor{
		timeout: timeout,
	}
}

// Execute 执行命令，返回标准输出
func (ce *CommandExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ce.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("命令执行超时(%v): %s", ce.timeout, name)
		}
		if stderr.Len() > 0 {
			return stdout.String(), fmt.Errorf("%s: %w: %s", name, err, stderr.String())
		}
		return stdout.String(), fmt.Errorf("%s: %w", name, err)
	}

	return stdout.String(), nil
}

// Shell 通过 sh -c 执行命令管道
func (ce *CommandExecutor) Shell(ctx context.Context, script string) (string, error) {
	return ce.Execute(ctx, "sh", "-c", script)
}
