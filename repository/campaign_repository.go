package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/models"
)

var campaignCounterColumns = map[string]bool{
	"sent_messages":      true,
	"delivered_messages": true,
	"read_messages":      true,
	"failed_messages":    true,
}

type campaignRepository struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepository{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

func (r *campaignRepository) applyFilter(query *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ConnectionID != nil {
		query = query.Where("connection_id = ?", *filter.ConnectionID)
	}
	if filter.TemplateID != nil {
		query = query.Where("template_id = ?", *filter.TemplateID)
	}
	if filter.ScheduledBefore != nil {
		query = query.Where("scheduled_at < ?", *filter.ScheduledBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

func (r *campaignRepository) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	query := r.applyFilter(r.getDB(ctx).Model(&models.Campaign{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&campaigns).Error
	return campaigns, err
}

func (r *campaignRepository) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.Campaign{}), filter)
	err := query.Count(&count).Error
	return count, err
}

func (r *campaignRepository) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListDue returns scheduled campaigns whose scheduled time already passed,
// oldest first.
func (r *campaignRepository) ListDue(ctx context.Context, limit int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	query := r.getDB(ctx).
		Where("status = ?", models.CampaignStatusScheduled).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", time.Now().UTC()).
		Order("scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&campaigns).Error
	return campaigns, err
}

// IncrementCounter atomically bumps one of the campaign progress counters.
func (r *campaignRepository) IncrementCounter(ctx context.Context, id uint, column string, delta int) error {
	if !campaignCounterColumns[column] {
		return fmt.Errorf("unknown campaign counter column: %s", column)
	}
	return r.getDB(ctx).Model(&models.Campaign{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}
