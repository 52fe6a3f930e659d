package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dushixiang/opsdeck/internal/models"
	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/dushixiang/opsdeck/internal/repo"
	"github.com/go-orz/cache"
	"go.uber.org/zap"
)

// UnknownGeo 地理位置查询失败时的哨兵值
const UnknownGeo = "?"

// GeoTTL 地理位置缓存有效期
const GeoTTL = 7 * 24 * time.Hour

// geoTimeout 单次 HTTP 查询超时
const geoTimeout = 5 * time.Second

// geoMinInterval 对免费接口的最小请求间隔
const geoMinInterval = time.Second

// rateLimiter 串行化限速器：持锁等待，保证任意两次请求间隔不小于 interval。
// 并发调用方会在锁上排队，天然形成顺序发射。
type rateLimiter struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

// wait 阻塞到允许下一次请求，返回后锁已释放
func (l *rateLimiter) wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if d := l.interval - time.Since(l.last); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	l.last = time.Now()
	return nil
}

// GeoLocator IP 地理位置查询器，基于 ip-api.com 免费接口
type GeoLocator struct {
	logger   *zap.Logger
	repo     *repo.LookupRepo
	memCache cache.Cache[string, *protocol.GeoResult]
	client   *http.Client
	endpoint string
	limiter  *rateLimiter
}

// NewGeoLocator 创建地理位置查询器，endpoint 形如 http://ip-api.com/json
func NewGeoLocator(logger *zap.Logger, lookupRepo *repo.LookupRepo, endpoint string) *GeoLocator {
	return &GeoLocator{
		logger:   logger,
		repo:     lookupRepo,
		memCache: cache.New[string, *protocol.GeoResult](time.Minute),
		client:   &http.Client{Timeout: geoTimeout},
		endpoint: endpoint,
		limiter:  &rateLimiter{interval: geoMinInterval},
	}
}

// geoResponse ip-api.com 响应体
type geoResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
}

// Locate 查询 IP 的地理位置，命中缓存时不发请求
func (g *GeoLocator) Locate(ctx context.Context, ip string) *protocol.GeoResult {
	if result, ok := g.memCache.Get(ip); ok {
		return result
	}

	now := float64(time.Now().UnixNano()) / 1e9
	if entry, err := g.repo.FindGeo(ctx, ip); err == nil && entry != nil {
		if now-entry.ResolvedAt < GeoTTL.Seconds() {
			result := &protocol.GeoResult{
				CountryCode: entry.CountryCode,
				City:        entry.City,
				ISP:         entry.ISP,
			}
			g.memCache.Set(ip, result, GeoTTL)
			return result
		}
	}

	result, err := g.fetch(ctx, ip)
	if err != nil {
		g.logger.Debug("地理位置查询失败", zap.String("ip", ip), zap.Error(err))
		// 失败返回哨兵值且不写缓存
		return &protocol.GeoResult{
			CountryCode: UnknownGeo,
			City:        UnknownGeo,
			ISP:         UnknownGeo,
		}
	}

	g.memCache.Set(ip, result, GeoTTL)
	if err := g.repo.SaveGeo(ctx, &models.GeoCacheEntry{
		IP:          ip,
		CountryCode: result.CountryCode,
		City:        result.City,
		ISP:         result.ISP,
		ResolvedAt:  now,
	}); err != nil {
		g.logger.Warn("写入地理位置缓存失败", zap.String("ip", ip), zap.Error(err))
	}
	return result
}

// fetch 限速后请求外部接口，限速等待在锁内完成，HTTP 请求在锁外
func (g *GeoLocator) fetch(ctx context.Context, ip string) (*protocol.GeoResult, error) {
	if err := g.limiter.wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?fields=status,countryCode,city,isp", g.endpoint, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("接口返回 %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("查询状态 %s", body.Status)
	}

	return &protocol.GeoResult{
		CountryCode: body.CountryCode,
		City:        body.City,
		ISP:         body.ISP,
	}, nil
}
