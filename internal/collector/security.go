package collector

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// SecurityCollector 安全状态采集器：SSH 入侵计数、监听端口、
// 防火墙和 sshd 配置检查。
type SecurityCollector struct {
	authLog   string
	sshdConf  string
	executor  *CommandExecutor
	nmapExec  *CommandExecutor // nmap 扫描耗时更长，使用独立的超时
}

// NewSecurityCollector 创建安全状态采集器
func NewSecurityCollector(authLog string, executor, nmapExec *CommandExecutor) *SecurityCollector {
	return &SecurityCollector{
		authLog:  authLog,
		sshdConf: "/etc/ssh/sshd_config",
		executor: executor,
		nmapExec: nmapExec,
	}
}

// Collect 采集安全状态
func (c *SecurityCollector) Collect(ctx context.Context) (*protocol.SecurityStatusData, error) {
	data := &protocol.SecurityStatusData{
		ExpectedPorts:    4,
		RootLoginEnabled: true,
	}

	data.SSHIntrusions = c.countIntrusions()

	ports := c.listeningPorts(ctx)
	data.PortsDetail = ports
	data.ListeningPorts = len(ports)

	if out, err := c.executor.Execute(ctx, "ufw", "status"); err == nil {
		lower := strings.ToLower(out)
		data.UFWActive = strings.Contains(lower, "active") && !strings.Contains(lower, "inactive")
	}

	if out, err := c.executor.Execute(ctx, "systemctl", "is-active", "fail2ban"); err == nil {
		data.Fail2banActive = strings.TrimSpace(out) == "active"
	}

	data.RootLoginEnabled = c.rootLoginEnabled()

	return data, nil
}

var intrusionPattern = regexp.MustCompile(`Failed password|Invalid user`)

// countIntrusions 统计认证日志中的失败登录行数
func (c *SecurityCollector) countIntrusions() int {
	f, err := os.Open(c.authLog)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if intrusionPattern.MatchString(scanner.Text()) {
			count++
		}
	}
	return count
}

// listeningPorts 优先用 nmap 扫描本机，失败时回退到 ss -tlnp
func (c *SecurityCollector) listeningPorts(ctx context.Context) []protocol.PortInfo {
	if out, err := c.nmapExec.Execute(ctx, "nmap", "-sT", "localhost"); err == nil && strings.Contains(out, "open") {
		if ports := parseNmapPorts(out); len(ports) > 0 {
			return ports
		}
	}
	if out, err := c.executor.Execute(ctx, "ss", "-tlnp"); err == nil {
		return parseSSListen(out)
	}
	return nil
}

// parseNmapPorts 解析 nmap 输出中的 open 端口行，形如 22/tcp open ssh
func parseNmapPorts(out string) []protocol.PortInfo {
	var ports []protocol.PortInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "/tcp") || !strings.Contains(line, "open") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		port, err := strconv.Atoi(strings.SplitN(parts[0], "/", 2)[0])
		if err != nil {
			continue
		}
		ports = append(ports, protocol.PortInfo{
			Port:    port,
			State:   parts[1],
			Service: parts[2],
		})
	}
	return ports
}

var processNamePattern = regexp.MustCompile(`"([^"]+)"`)

// parseSSListen 解析 ss -tlnp 输出
func parseSSListen(out string) []protocol.PortInfo {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	var ports []protocol.PortInfo
	for _, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		localAddr := parts[3]
		idx := strings.LastIndex(localAddr, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(localAddr[idx+1:])
		if err != nil {
			continue
		}

		service := ""
		for _, p := range parts {
			if strings.Contains(p, "users:") {
				if m := processNamePattern.FindStringSubmatch(p); m != nil {
					service = m[1]
				}
				break
			}
		}
		if service == "" {
			service = "port-" + strconv.Itoa(port)
		}
		ports = append(ports, protocol.PortInfo{
			Port:    port,
			State:   "open",
			Service: service,
		})
	}
	return ports
}

// rootLoginEnabled 检查 sshd_config 是否允许 root 登录，文件缺失按允许处理
func (c *SecurityCollector) rootLoginEnabled() bool {
	f, err := os.Open(c.sshdConf)
	if err != nil {
		return true
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "PermitRootLogin") {
			return !strings.Contains(strings.ToLower(line), "no")
		}
	}
	return true
}
