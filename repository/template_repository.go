package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/models"
)

type templateRepository struct {
	*BaseRepository[models.Template, models.TemplateFilter]
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{
		BaseRepository: NewBaseRepository[models.Template, models.TemplateFilter](db),
	}
}

func (r *templateRepository) applyFilter(query *gorm.DB, filter models.TemplateFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.MediaType != nil {
		query = query.Where("media_type = ?", *filter.MediaType)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

func (r *templateRepository) ByFilter(ctx context.Context, filter models.TemplateFilter, orderBy string, limit, offset int) ([]models.Template, error) {
	var templates []models.Template
	query := r.applyFilter(r.getDB(ctx).Model(&models.Template{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&templates).Error
	return templates, err
}

func (r *templateRepository) Count(ctx context.Context, filter models.TemplateFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.Template{}), filter)
	err := query.Count(&count).Error
	return count, err
}

func (r *templateRepository) Exists(ctx context.Context, filter models.TemplateFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
