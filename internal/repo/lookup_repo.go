package repo

import (
	"context"
	"errors"

	"github.com/dushixiang/opsdeck/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LookupRepo 持久化查询缓存（DNS/地理位置/攻击扫描）的存取
type LookupRepo struct {
	db *gorm.DB
}

func NewLookupRepo(db *gorm.DB) *LookupRepo {
	return &LookupRepo{
		db: db,
	}
}

// FindDNS 按 IP 查询 DNS 缓存，未命中返回 nil
func (r *LookupRepo) FindDNS(ctx context.Context, ip string) (*models.DNSCacheEntry, error) {
	var entry models.DNSCacheEntry
	err := r.db.WithContext(ctx).Where("ip = ?", ip).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveDNS 写入 DNS 缓存（按 IP 覆盖）
func (r *LookupRepo) SaveDNS(ctx context.Context, entry *models.DNSCacheEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoUpdates: clause.AssignmentColumns([]string{"hostname", "resolved_at"}),
		}).
		Create(entry).Error
}

// FindGeo 按 IP 查询地理位置缓存，未命中返回 nil
func (r *LookupRepo) FindGeo(ctx context.Context, ip string) (*models.GeoCacheEntry, error) {
	var entry models.GeoCacheEntry
	err := r.db.WithContext(ctx).Where("ip = ?", ip).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveGeo 写入地理位置缓存（按 IP 覆盖）
func (r *LookupRepo) SaveGeo(ctx context.Context, entry *models.GeoCacheEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoUpdates: clause.AssignmentColumns([]string{"country_code", "city", "isp", "resolved_at"}),
		}).
		Create(entry).Error
}

// FindScan 按 IP 查询攻击扫描缓存，未命中返回 nil
func (r *LookupRepo) FindScan(ctx context.Context, ip string) (*models.AttackerScan, error) {
	var entry models.AttackerScan
	err := r.db.WithContext(ctx).Where("ip = ?", ip).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveScan 写入攻击扫描缓存（按 IP 覆盖）
func (r *LookupRepo) SaveScan(ctx context.Context, entry *models.AttackerScan) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoUpdates: clause.AssignmentColumns([]string{"open_ports", "os_guess", "scanned_at"}),
		}).
		Create(entry).Error
}
