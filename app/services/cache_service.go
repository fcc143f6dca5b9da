// Package services provides external service integrations and technical concerns like caching and event persistence
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/revendapro/zap-dispatcher/config"
)

// CacheService holds short-lived dispatcher state: pairing QR codes and
// WhatsApp account lookups.
type CacheService interface {
	StoreQRCode(ctx context.Context, connectionID uint, dataURL string) error
	QRCode(ctx context.Context, connectionID uint) (string, error)
	ClearQRCode(ctx context.Context, connectionID uint) error
	StoreNumberStatus(ctx context.Context, phoneNumber string, exists bool) error
	NumberStatus(ctx context.Context, phoneNumber string) (exists, found bool, err error)
}

// RedisCacheService implements CacheService on redis
type RedisCacheService struct {
	client *redis.Client
	cfg    config.CacheConfig
}

// NewRedisCacheService creates a new redis-backed cache service instance
func NewRedisCacheService(client *redis.Client, cfg config.CacheConfig) CacheService {
	return &RedisCacheService{client: client, cfg: cfg}
}

func qrCodeKey(connectionID uint) string {
	return fmt.Sprintf("dispatcher:qr:%d", connectionID)
}

func numberStatusKey(phoneNumber string) string {
	return fmt.Sprintf("dispatcher:number:%s", phoneNumber)
}

func (s *RedisCacheService) StoreQRCode(ctx context.Context, connectionID uint, dataURL string) error {
	ttl := s.cfg.QRCodeTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.Set(ctx, qrCodeKey(connectionID), dataURL, ttl).Err()
}

func (s *RedisCacheService) QRCode(ctx context.Context, connectionID uint) (string, error) {
	val, err := s.client.Get(ctx, qrCodeKey(connectionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisCacheService) ClearQRCode(ctx context.Context, connectionID uint) error {
	return s.client.Del(ctx, qrCodeKey(connectionID)).Err()
}

func (s *RedisCacheService) StoreNumberStatus(ctx context.Context, phoneNumber string, exists bool) error {
	ttl := s.cfg.NumberTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	val := "0"
	if exists {
		val = "1"
	}
	return s.client.Set(ctx, numberStatusKey(phoneNumber), val, ttl).Err()
}

func (s *RedisCacheService) NumberStatus(ctx context.Context, phoneNumber string) (bool, bool, error) {
	val, err := s.client.Get(ctx, numberStatusKey(phoneNumber)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// NoopCacheService is used when redis is not configured. Lookups always miss.
type NoopCacheService struct{}

func NewNoopCacheService() CacheService { return NoopCacheService{} }

func (NoopCacheService) StoreQRCode(ctx context.Context, connectionID uint, dataURL string) error {
	return nil
}

func (NoopCacheService) QRCode(ctx context.Context, connectionID uint) (string, error) {
	return "", nil
}

func (NoopCacheService) ClearQRCode(ctx context.Context, connectionID uint) error { return nil }

func (NoopCacheService) StoreNumberStatus(ctx context.Context, phoneNumber string, exists bool) error {
	return nil
}

func (NoopCacheService) NumberStatus(ctx context.Context, phoneNumber string) (bool, bool, error) {
	return false, false, nil
}
