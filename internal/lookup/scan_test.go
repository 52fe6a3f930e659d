package lookup

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/opsdeck/internal/models"
	"go.uber.org/zap"
)

func TestParseScanOutput(t *testing.T) {
	out := `
Starting Nmap 7.94 ( https://nmap.org )
Nmap scan report for 203.0.113.9
PORT     STATE  SERVICE
22/tcp   open   ssh
80/tcp   open   http
443/tcp  closed https
`
	result := parseScanOutput(out)
	if result.OpenPorts != "22,80" {
		t.Errorf("开放端口解析错误: %q", result.OpenPorts)
	}
	if result.OSGuess != "Linux" {
		t.Errorf("仅开放 22 端口应猜测为 Linux，实际 %q", result.OSGuess)
	}
}

func TestParseScanOutputWindows(t *testing.T) {
	out := `22/tcp   open  ssh
3389/tcp open  ms-wbt-server
`
	result := parseScanOutput(out)
	if result.OSGuess != "Windows" {
		t.Errorf("开放 3389 端口应猜测为 Windows，实际 %q", result.OSGuess)
	}
}

func TestParseScanOutputNoOpenPorts(t *testing.T) {
	result := parseScanOutput("All 20 scanned ports are filtered\n")
	if result.OpenPorts != "" || result.OSGuess != UnknownHostname {
		t.Errorf("无开放端口应返回哨兵猜测，实际 %+v", result)
	}
}

func TestScanUsesPersistedCache(t *testing.T) {
	lookupRepo := newTestLookupRepo(t)
	ctx := context.Background()

	entry := &models.AttackerScan{
		IP:        "203.0.113.9",
		OpenPorts: "22,8080",
		OSGuess:   "Linux",
		ScannedAt: float64(time.Now().Unix()),
	}
	if err := lookupRepo.SaveScan(ctx, entry); err != nil {
		t.Fatalf("预置缓存失败: %v", err)
	}

	s := NewAttackerScanner(zap.NewNop(), lookupRepo)
	result := s.Scan(ctx, "203.0.113.9")
	if result.OpenPorts != "22,8080" {
		t.Errorf("应命中持久化缓存而不发起扫描，实际 %+v", result)
	}
}

func TestDNSUsesPersistedCache(t *testing.T) {
	lookupRepo := newTestLookupRepo(t)
	ctx := context.Background()

	entry := &models.DNSCacheEntry{
		IP:         "203.0.113.9",
		Hostname:   "attacker.example.net",
		ResolvedAt: float64(time.Now().Unix()),
	}
	if err := lookupRepo.SaveDNS(ctx, entry); err != nil {
		t.Fatalf("预置缓存失败: %v", err)
	}

	r := NewDNSResolver(zap.NewNop(), lookupRepo)
	if got := r.Resolve(ctx, "203.0.113.9"); got != "attacker.example.net" {
		t.Errorf("应命中持久化缓存，实际 %q", got)
	}
}
