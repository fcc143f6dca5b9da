package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/models"
)

type connectionRepository struct {
	*BaseRepository[models.Connection, models.ConnectionFilter]
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{
		BaseRepository: NewBaseRepository[models.Connection, models.ConnectionFilter](db),
	}
}

func (r *connectionRepository) applyFilter(query *gorm.DB, filter models.ConnectionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

func (r *connectionRepository) ByFilter(ctx context.Context, filter models.ConnectionFilter, orderBy string, limit, offset int) ([]models.Connection, error) {
	var connections []models.Connection
	query := r.applyFilter(r.getDB(ctx).Model(&models.Connection{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&connections).Error
	return connections, err
}

func (r *connectionRepository) Count(ctx context.Context, filter models.ConnectionFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.Connection{}), filter)
	err := query.Count(&count).Error
	return count, err
}

func (r *connectionRepository) Exists(ctx context.Context, filter models.ConnectionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *connectionRepository) UpdateStatus(ctx context.Context, id uint, status models.ConnectionStatus) error {
	return r.getDB(ctx).Model(&models.Connection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *connectionRepository) UpdatePhoneNumber(ctx context.Context, id uint, phoneNumber string) error {
	return r.getDB(ctx).Model(&models.Connection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"phone_number": phoneNumber,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// RecordSent bumps the persisted daily counter, resetting it when the last
// recorded send happened on an earlier calendar day.
func (r *connectionRepository) RecordSent(ctx context.Context, id uint, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return r.getDB(ctx).Model(&models.Connection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sent_today":       gorm.Expr("CASE WHEN last_quota_reset IS NULL OR last_quota_reset < ? THEN 1 ELSE sent_today + 1 END", dayStart),
			"last_quota_reset": now,
			"updated_at":       now,
		}).Error
}

func (r *connectionRepository) ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Connection, error) {
	var connection models.Connection
	err := r.getDB(ctx).Where("phone_number = ?", phoneNumber).First(&connection).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &connection, nil
}
