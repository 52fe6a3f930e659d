package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dushixiang/opsdeck/internal/database"
	"github.com/dushixiang/opsdeck/internal/models"
	"github.com/dushixiang/opsdeck/internal/repo"
	"go.uber.org/zap"
)

func newTestLookupRepo(t *testing.T) *repo.LookupRepo {
	t.Helper()
	db, err := database.Open(zap.NewNop(), filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	return repo.NewLookupRepo(db)
}

func geoTestServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"status":"success","countryCode":"NL","city":"Amsterdam","isp":"Test ISP"}`)
	}))
}

func TestGeoLocateCachesResult(t *testing.T) {
	var requests atomic.Int32
	server := geoTestServer(t, &requests)
	defer server.Close()

	g := NewGeoLocator(zap.NewNop(), newTestLookupRepo(t), server.URL)
	ctx := context.Background()

	first := g.Locate(ctx, "1.2.3.4")
	if first.CountryCode != "NL" || first.City != "Amsterdam" {
		t.Fatalf("查询结果不正确: %+v", first)
	}

	// 第二次命中缓存，不应再发请求
	second := g.Locate(ctx, "1.2.3.4")
	if second.CountryCode != "NL" {
		t.Errorf("缓存结果不正确: %+v", second)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("命中缓存后不应重复请求，实际请求 %d 次", got)
	}
}

func TestGeoLocateRefetchesExpiredEntry(t *testing.T) {
	var requests atomic.Int32
	server := geoTestServer(t, &requests)
	defer server.Close()

	lookupRepo := newTestLookupRepo(t)
	ctx := context.Background()

	// 持久化缓存里是一条已过期的旧记录
	stale := float64(time.Now().Unix()) - GeoTTL.Seconds() - 60
	if err := lookupRepo.SaveGeo(ctx, &models.GeoCacheEntry{
		IP:          "1.2.3.4",
		CountryCode: "DE",
		City:        "Berlin",
		ISP:         "Old ISP",
		ResolvedAt:  stale,
	}); err != nil {
		t.Fatalf("预写入过期记录失败: %v", err)
	}

	g := NewGeoLocator(zap.NewNop(), lookupRepo, server.URL)
	result := g.Locate(ctx, "1.2.3.4")
	if result.CountryCode != "NL" || result.City != "Amsterdam" {
		t.Errorf("过期记录应重新查询外部接口，实际 %+v", result)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("过期后应重新发出请求，实际请求 %d 次", got)
	}

	// 重新查询的结果应覆盖旧记录
	entry, err := lookupRepo.FindGeo(ctx, "1.2.3.4")
	if err != nil || entry == nil {
		t.Fatalf("查询持久化缓存失败: %v", err)
	}
	if entry.CountryCode != "NL" || entry.ResolvedAt <= stale {
		t.Errorf("持久化缓存应被新结果覆盖: %+v", entry)
	}
}

func TestGeoLocateFailureNotCached(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewGeoLocator(zap.NewNop(), newTestLookupRepo(t), server.URL)
	ctx := context.Background()

	result := g.Locate(ctx, "1.2.3.4")
	if result.CountryCode != UnknownGeo {
		t.Errorf("失败应返回哨兵值，实际 %+v", result)
	}

	// 失败不缓存，下次应重试
	g.Locate(ctx, "1.2.3.4")
	if got := requests.Load(); got != 2 {
		t.Errorf("失败不应被缓存，实际请求 %d 次", got)
	}
}

func TestGeoRateLimiterSpacing(t *testing.T) {
	var requests atomic.Int32
	var mu sync.Mutex
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		fmt.Fprint(w, `{"status":"success","countryCode":"NL","city":"Amsterdam","isp":"Test ISP"}`)
	}))
	defer server.Close()

	g := NewGeoLocator(zap.NewNop(), newTestLookupRepo(t), server.URL)
	g.limiter.interval = 100 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		ip := fmt.Sprintf("10.0.0.%d", i)
		go func() {
			defer wg.Done()
			g.Locate(ctx, ip)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(stamps) != 3 {
		t.Fatalf("应发出 3 次请求，实际 %d 次", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < 90*time.Millisecond {
			t.Errorf("请求间隔应不小于限速间隔，实际 %v", gap)
		}
	}
}

func TestGeoRateLimiterRespectsContext(t *testing.T) {
	l := &rateLimiter{interval: time.Hour}
	ctx := context.Background()
	if err := l.wait(ctx); err != nil {
		t.Fatalf("首次等待不应报错: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := l.wait(cancelCtx); err == nil {
		t.Error("上下文取消后等待应返回错误")
	}
	if time.Since(start) > time.Second {
		t.Error("上下文取消后应立即返回")
	}
}
