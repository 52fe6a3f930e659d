package models

// DNSCacheEntry 反向 DNS 查询缓存（每个 IP 一行，覆盖写）
type DNSCacheEntry struct {
	IP         string  `gorm:"primaryKey" json:"ip"`
	Hostname   string  `gorm:"default:''" json:"hostname"`
	ResolvedAt float64 `gorm:"column:resolved_at;not null" json:"resolvedAt"` // Unix 秒（浮点）
}

func (DNSCacheEntry) TableName() string {
	return "dns_cache"
}

// GeoCacheEntry IP 地理位置查询缓存
type GeoCacheEntry struct {
	IP          string  `gorm:"primaryKey" json:"ip"`
	CountryCode string  `gorm:"column:country_code;default:''" json:"countryCode"`
	City        string  `gorm:"default:''" json:"city"`
	ISP         string  `gorm:"column:isp;default:''" json:"isp"`
	ResolvedAt  float64 `gorm:"column:resolved_at;not null" json:"resolvedAt"`
}

func (GeoCacheEntry) TableName() string {
	return "geo_cache"
}

// AttackerScan 攻击来源端口扫描缓存
type AttackerScan struct {
	IP        string  `gorm:"primaryKey" json:"ip"`
	OpenPorts string  `gorm:"column:open_ports;default:''" json:"openPorts"`
	OSGuess   string  `gorm:"column:os_guess;default:''" json:"osGuess"`
	ScannedAt float64 `gorm:"column:scanned_at;not null" json:"scannedAt"`
}

func (AttackerScan) TableName() string {
	return "attacker_scans"
}
