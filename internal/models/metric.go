package models

// SchemaVersion 数据库版本标记（单行表，初始化时写入）
type SchemaVersion struct {
	Version int `gorm:"column:version;primaryKey" json:"version"`
}

func (SchemaVersion) TableName() string {
	return "schema_version"
}

// ServerMetric 服务器健康指标（按采集周期追加）
type ServerMetric struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp   float64 `gorm:"index:idx_server_ts;not null" json:"timestamp"` // Unix 秒（浮点）
	CPUPercent  float64 `gorm:"column:cpu_percent" json:"cpuPercent"`
	MemUsedMB   float64 `gorm:"column:mem_used_mb" json:"memUsedMb"`
	MemTotalMB  float64 `gorm:"column:mem_total_mb" json:"memTotalMb"`
	DiskUsedGB  float64 `gorm:"column:disk_used_gb" json:"diskUsedGb"`
	DiskTotalGB float64 `gorm:"column:disk_total_gb" json:"diskTotalGb"`
	Load1m      float64 `gorm:"column:load_1m" json:"load1m"`
	Load5m      float64 `gorm:"column:load_5m" json:"load5m"`
	Load15m     float64 `gorm:"column:load_15m" json:"load15m"`
}

func (ServerMetric) TableName() string {
	return "server_metrics"
}

// AgentMetric 智能体指标（每个智能体每周期一行）
type AgentMetric struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp    float64 `gorm:"index:idx_agent_ts;not null" json:"timestamp"`
	AgentName    string  `gorm:"not null" json:"agentName"`
	TokensUsed   int64   `gorm:"default:0" json:"tokensUsed"`
	Sessions     int     `gorm:"default:0" json:"sessions"`
	StorageBytes int64   `gorm:"default:0" json:"storageBytes"`
	Model        string  `gorm:"default:''" json:"model"`
}

func (AgentMetric) TableName() string {
	return "agent_metrics"
}

// CronMetric 定时任务指标（每个任务每周期一行）
type CronMetric struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp float64 `gorm:"index:idx_cron_ts;not null" json:"timestamp"`
	JobName   string  `gorm:"not null" json:"jobName"`
	Status    string  `gorm:"default:idle" json:"status"`
	LastRun   string  `gorm:"default:''" json:"lastRun"`
	NextRun   string  `gorm:"default:''" json:"nextRun"`
}

func (CronMetric) TableName() string {
	return "cron_metrics"
}

// SecurityMetric 安全指标
type SecurityMetric struct {
	ID               uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp        float64 `gorm:"index:idx_security_ts;not null" json:"timestamp"`
	SSHIntrusions    int     `gorm:"column:ssh_intrusions;default:0" json:"sshIntrusions"`
	PortsOpen        int     `gorm:"column:ports_open;default:0" json:"portsOpen"`
	UFWActive        int     `gorm:"column:ufw_active;default:0" json:"ufwActive"`
	Fail2banActive   int     `gorm:"column:fail2ban_active;default:0" json:"fail2banActive"`
	RootLoginEnabled int     `gorm:"column:root_login_enabled;default:1" json:"rootLoginEnabled"`
}

func (SecurityMetric) TableName() string {
	return "security_metrics"
}

// PortScan 本机监听端口明细（安全采集的附属数据）
type PortScan struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp float64 `gorm:"index:idx_port_ts;not null" json:"timestamp"`
	Port      int     `gorm:"not null" json:"port"`
	Service   string  `gorm:"default:''" json:"service"`
	State     string  `gorm:"default:open" json:"state"`
}

func (PortScan) TableName() string {
	return "port_scans"
}

// NetworkMetric 网络活动指标
type NetworkMetric struct {
	ID                uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp         float64 `gorm:"index:idx_network_ts;not null" json:"timestamp"`
	ActiveConnections int     `gorm:"default:0" json:"activeConnections"`
	UniqueIPs         int     `gorm:"column:unique_ips;default:0" json:"uniqueIps"`
}

func (NetworkMetric) TableName() string {
	return "network_metrics"
}
