package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/models"
)

type contactRepository struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db),
	}
}

func (r *contactRepository) applyFilter(query *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

func (r *contactRepository) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]models.Contact, error) {
	var contacts []models.Contact
	query := r.applyFilter(r.getDB(ctx).Model(&models.Contact{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&contacts).Error
	return contacts, err
}

func (r *contactRepository) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.Contact{}), filter)
	err := query.Count(&count).Error
	return count, err
}

func (r *contactRepository) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// TouchLastMessage records when the contact last wrote to us. A phone number
// without a matching contact is a silent miss.
func (r *contactRepository) TouchLastMessage(ctx context.Context, phoneNumber string, at time.Time) error {
	return r.getDB(ctx).Model(&models.Contact{}).
		Where("phone_number = ?", phoneNumber).
		Updates(map[string]any{
			"last_message_at": at,
			"updated_at":      time.Now().UTC(),
		}).Error
}

// ListByIDs fetches contacts for the given ids preserving the input order.
// Unknown ids are skipped.
func (r *contactRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contacts []models.Contact
	err := r.getDB(ctx).Where("id IN ?", ids).Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Contact, len(contacts))
	for _, c := range contacts {
		byID[int64(c.ID)] = c
	}
	ordered := make([]models.Contact, 0, len(contacts))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}
