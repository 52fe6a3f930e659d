package protocol

// ServerHealthData 服务器健康数据（FAST 层采集）
type ServerHealthData struct {
	CPUPercent  float64   `json:"cpuPercent"`  // CPU 使用率(%)
	MemPercent  float64   `json:"memPercent"`  // 内存使用率(%)
	MemUsedMB   float64   `json:"memUsedMb"`   // 已用内存(MB)
	MemTotalMB  float64   `json:"memTotalMb"`  // 总内存(MB)
	DiskPercent float64   `json:"diskPercent"` // 根分区使用率(%)
	DiskUsedGB  float64   `json:"diskUsedGb"`  // 已用磁盘(GB)
	DiskTotalGB float64   `json:"diskTotalGb"` // 总磁盘(GB)
	LoadAvg     []float64 `json:"loadAvg"`     // 1/5/15 分钟负载
	Uptime      string    `json:"uptime"`      // 运行时间（可读格式）
}

// ProcessInfo 单个进程信息
type ProcessInfo struct {
	PID     int32   `json:"pid"`
	User    string  `json:"user"`
	CPU     float64 `json:"cpu"` // CPU 使用率(%)
	Mem     float32 `json:"mem"` // 内存使用率(%)
	Command string  `json:"command"`
}

// TopProcessesData 按 CPU 排序的进程列表
type TopProcessesData struct {
	Processes []ProcessInfo `json:"processes"`
}

// AgentInfo 单个智能体信息（来自编排 CLI）
type AgentInfo struct {
	Name          string `json:"name"`
	Status        string `json:"status"`       // online/offline
	Model         string `json:"model"`        // 模型名称（已去前缀）
	Workspace     string `json:"workspace"`    // 工作目录
	Storage       string `json:"storage"`      // 存储占用（可读格式，如 3.2G）
	StorageBytes  int64  `json:"storageBytes"` // 存储占用(字节)
	Tokens        string `json:"tokens"`       // token 用量（可读格式，如 126k）
	TokensNumeric int64  `json:"tokensNumeric"`
	Sessions      int    `json:"sessions"`
	IsDefault     bool   `json:"isDefault"`
}

// AgentFleetData 智能体列表数据（SLOW 层采集）
type AgentFleetData struct {
	Agents []AgentInfo `json:"agents"`
}

// AgentStatusData 编排服务整体状态
type AgentStatusData struct {
	Sessions      int    `json:"sessions"`
	Model         string `json:"model"`
	GatewayStatus string `json:"gatewayStatus"` // running/stopped/unknown
	Version       string `json:"version"`
}

// CronJob 单个定时任务
type CronJob struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // idle/ok/running/error
	LastRun string `json:"lastRun"`
	NextRun string `json:"nextRun"`
	Agent   string `json:"agent,omitempty"`
}

// CronJobsData 定时任务数据（MEDIUM 层采集）
type CronJobsData struct {
	Jobs []CronJob `json:"jobs"`
}

// PortInfo 监听端口信息
type PortInfo struct {
	Port    int    `json:"port"`
	State   string `json:"state"` // open 等
	Service string `json:"service"`
}

// SecurityStatusData 安全状态数据（SLOW 层采集）
type SecurityStatusData struct {
	SSHIntrusions    int        `json:"sshIntrusions"`  // auth.log 中的失败登录计数
	ListeningPorts   int        `json:"listeningPorts"` // 监听端口数
	ExpectedPorts    int        `json:"expectedPorts"`  // 预期端口数
	PortsDetail      []PortInfo `json:"portsDetail"`
	UFWActive        bool       `json:"ufwActive"`
	Fail2banActive   bool       `json:"fail2banActive"`
	RootLoginEnabled bool       `json:"rootLoginEnabled"`
}

// NetworkActivityData 网络活动数据（MEDIUM 层采集）
type NetworkActivityData struct {
	ActiveConnections int            `json:"activeConnections"`
	UniqueIPs         int            `json:"uniqueIps"`
	PeerIPs           map[string]int `json:"peerIps"` // ip -> 连接数
}

// SSHLoginEntry 单个来源 IP 的 SSH 登录统计
type SSHLoginEntry struct {
	IP       string `json:"ip"`
	Count    int    `json:"count"`
	LastSeen string `json:"lastSeen"`
	Hostname string `json:"hostname,omitempty"` // 冰川层富化时回填
}

// SSHLoginSummaryData SSH 登录汇总（SLOW 层采集）
type SSHLoginSummaryData struct {
	Accepted []SSHLoginEntry `json:"accepted"`
	Failed   []SSHLoginEntry `json:"failed"`
}

// LogEvent 单条日志/活动事件
type LogEvent struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Type    string `json:"type"`  // ssh/agent/cron
	Level   string `json:"level"` // info/warning/error
}

// ActivityLogData 活动日志数据（MEDIUM 层采集）
type ActivityLogData struct {
	Events []LogEvent `json:"events"`
}

// AgentLogsData 编排服务日志尾部（MEDIUM 层采集）
type AgentLogsData struct {
	Events []LogEvent `json:"events"`
}

// ErrorSummaryData 错误汇总（MEDIUM 层采集）
type ErrorSummaryData struct {
	Errors []LogEvent `json:"errors"`
}

// ChannelStatus 单个通道状态
type ChannelStatus struct {
	Name    string `json:"name"`
	Enabled string `json:"enabled"`
	State   string `json:"state"` // OK/WARN/...
	Detail  string `json:"detail,omitempty"`
}

// ChannelsStatusData 通道状态数据（SLOW 层采集）
type ChannelsStatusData struct {
	Channels []ChannelStatus `json:"channels"`
}

// UpdateStatusData 更新检查数据（SLOW 层采集）
type UpdateStatusData struct {
	Available bool   `json:"available"`
	Current   string `json:"current"`
	Latest    string `json:"latest"`
}

// TopPeer 活跃连接来源（按连接数排名，主机名来自反向解析缓存）
type TopPeer struct {
	IP          string `json:"ip"`
	Connections int    `json:"connections"`
	Hostname    string `json:"hostname,omitempty"`
}

// GeoResult 地理位置查询结果
type GeoResult struct {
	CountryCode string `json:"countryCode"` // 未知时为 ?
	City        string `json:"city"`
	ISP         string `json:"isp"`
}

// ScanResult 攻击来源端口扫描结果
type ScanResult struct {
	OpenPorts string `json:"openPorts"` // 逗号分隔的端口列表
	OSGuess   string `json:"osGuess"`
}

// ActionItem 待办事项（由多个数据源推导）
type ActionItem struct {
	Severity string `json:"severity"` // error/warn/info
	Text     string `json:"text"`
}
