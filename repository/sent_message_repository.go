package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/models"
)

type sentMessageRepository struct {
	*BaseRepository[models.SentMessage, models.SentMessageFilter]
}

func NewSentMessageRepository(db *gorm.DB) SentMessageRepository {
	return &sentMessageRepository{
		BaseRepository: NewBaseRepository[models.SentMessage, models.SentMessageFilter](db),
	}
}

func (r *sentMessageRepository) applyFilter(query *gorm.DB, filter models.SentMessageFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ConnectionID != nil {
		query = query.Where("connection_id = ?", *filter.ConnectionID)
	}
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.ContactID != nil {
		query = query.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.TrackingID != nil {
		query = query.Where("tracking_id = ?", *filter.TrackingID)
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

func (r *sentMessageRepository) ByFilter(ctx context.Context, filter models.SentMessageFilter, orderBy string, limit, offset int) ([]models.SentMessage, error) {
	var messages []models.SentMessage
	query := r.applyFilter(r.getDB(ctx).Model(&models.SentMessage{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&messages).Error
	return messages, err
}

func (r *sentMessageRepository) Count(ctx context.Context, filter models.SentMessageFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.SentMessage{}), filter)
	err := query.Count(&count).Error
	return count, err
}

func (r *sentMessageRepository) Exists(ctx context.Context, filter models.SentMessageFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *sentMessageRepository) ByTrackingID(ctx context.Context, trackingID string) (*models.SentMessage, error) {
	var message models.SentMessage
	err := r.getDB(ctx).Where("tracking_id = ?", trackingID).First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// UpdateStatus moves a message to the given status unless it already reached a
// later stage of the delivery pipeline. Failed is terminal and always wins.
func (r *sentMessageRepository) UpdateStatus(ctx context.Context, trackingID string, status models.MessageStatus, failReason string) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if failReason != "" {
		updates["fail_reason"] = failReason
	}

	query := r.getDB(ctx).Model(&models.SentMessage{}).Where("tracking_id = ?", trackingID)
	if status != models.MessageStatusFailed {
		query = query.Where("status NOT IN ?", laterStatuses(status))
	}
	return query.Updates(updates).Error
}

// LinkProviderID swaps a synthetic queue tracking id for the id the provider
// assigned once the message actually left the queue.
func (r *sentMessageRepository) LinkProviderID(ctx context.Context, trackingID, providerID string) error {
	return r.getDB(ctx).Model(&models.SentMessage{}).
		Where("tracking_id = ?", trackingID).
		Updates(map[string]any{
			"tracking_id": providerID,
			"status":      models.MessageStatusSent,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func laterStatuses(status models.MessageStatus) []models.MessageStatus {
	later := []models.MessageStatus{models.MessageStatusFailed}
	for _, s := range []models.MessageStatus{models.MessageStatusSent, models.MessageStatusDelivered, models.MessageStatusRead} {
		if s.Rank() >= status.Rank() {
			later = append(later, s)
		}
	}
	return later
}
