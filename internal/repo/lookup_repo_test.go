package repo

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/opsdeck/internal/models"
)

func TestLookupRepoUpsert(t *testing.T) {
	r := NewLookupRepo(newTestDB(t))
	ctx := context.Background()

	now := float64(time.Now().Unix())
	first := &models.DNSCacheEntry{IP: "1.2.3.4", Hostname: "a.example.com", ResolvedAt: now - 100}
	if err := r.SaveDNS(ctx, first); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	// 同一 IP 再写入应覆盖而不是新增
	second := &models.DNSCacheEntry{IP: "1.2.3.4", Hostname: "b.example.com", ResolvedAt: now}
	if err := r.SaveDNS(ctx, second); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}

	entry, err := r.FindDNS(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if entry == nil || entry.Hostname != "b.example.com" {
		t.Errorf("覆盖后应读到新主机名，实际 %+v", entry)
	}
	if entry.ResolvedAt != now {
		t.Errorf("覆盖后时间戳应更新，实际 %v", entry.ResolvedAt)
	}
}

func TestLookupRepoMissReturnsNil(t *testing.T) {
	r := NewLookupRepo(newTestDB(t))
	ctx := context.Background()

	entry, err := r.FindGeo(ctx, "9.9.9.9")
	if err != nil {
		t.Fatalf("未命中不应报错: %v", err)
	}
	if entry != nil {
		t.Errorf("未命中应返回 nil，实际 %+v", entry)
	}
}

func TestLookupRepoScanRoundTrip(t *testing.T) {
	r := NewLookupRepo(newTestDB(t))
	ctx := context.Background()

	now := float64(time.Now().Unix())
	scan := &models.AttackerScan{IP: "5.6.7.8", OpenPorts: "22,80", OSGuess: "Linux", ScannedAt: now}
	if err := r.SaveScan(ctx, scan); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	entry, err := r.FindScan(ctx, "5.6.7.8")
	if err != nil || entry == nil {
		t.Fatalf("查询失败: %v", err)
	}
	if entry.OpenPorts != "22,80" || entry.OSGuess != "Linux" {
		t.Errorf("读回数据不一致: %+v", entry)
	}
}
