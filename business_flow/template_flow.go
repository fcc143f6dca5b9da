package businessflow

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
)

// TemplateFlow handles message template business logic
type TemplateFlow interface {
	CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error)
	UpdateTemplate(ctx context.Context, req *dto.UpdateTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error)
	GetTemplate(ctx context.Context, id uint) (*dto.TemplateResponse, error)
	ListTemplates(ctx context.Context, req *dto.ListTemplatesRequest) (*dto.ListTemplatesResponse, error)
	DeleteTemplate(ctx context.Context, id uint) error
}

// TemplateFlowImpl implements the template business flow
type TemplateFlowImpl struct {
	templateRepo repository.TemplateRepository
	db           *gorm.DB
}

// NewTemplateFlow creates a new template flow instance
func NewTemplateFlow(templateRepo repository.TemplateRepository, db *gorm.DB) TemplateFlow {
	return &TemplateFlowImpl{templateRepo: templateRepo, db: db}
}

func (f *TemplateFlowImpl) CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, NewBusinessError("TEMPLATE_CONTENT_REQUIRED", "Template content is required", ErrTemplateContentRequired)
	}

	template := &models.Template{
		Name:     req.Name,
		Content:  req.Content,
		MediaRef: req.MediaRef,
		FileName: req.FileName,
	}
	if req.MediaType != nil {
		mediaType := models.MediaType(*req.MediaType)
		template.MediaType = &mediaType
	}
	if req.MediaMime != nil {
		template.MediaMime = req.MediaMime
	}
	if err := validateTemplateMedia(template); err != nil {
		return nil, NewBusinessError("TEMPLATE_MEDIA_REF_MISSING", "Template media requires a media reference", err)
	}

	if err := f.templateRepo.Save(ctx, template); err != nil {
		return nil, NewBusinessError("TEMPLATE_CREATION_FAILED", "Template creation failed", err)
	}
	resp := ToTemplateDTO(template)
	return &resp, nil
}

func (f *TemplateFlowImpl) UpdateTemplate(ctx context.Context, req *dto.UpdateTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error) {
	template, err := f.loadTemplate(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, NewBusinessError("TEMPLATE_CONTENT_REQUIRED", "Template content is required", ErrTemplateContentRequired)
		}
		template.Content = *req.Content
	}
	if req.MediaType != nil {
		mediaType := models.MediaType(*req.MediaType)
		template.MediaType = &mediaType
	}
	if req.MediaRef != nil {
		template.MediaRef = req.MediaRef
	}
	if req.MediaMime != nil {
		template.MediaMime = req.MediaMime
	}
	if req.FileName != nil {
		template.FileName = req.FileName
	}
	if err := validateTemplateMedia(template); err != nil {
		return nil, NewBusinessError("TEMPLATE_MEDIA_REF_MISSING", "Template media requires a media reference", err)
	}

	if err := f.templateRepo.Update(ctx, template); err != nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_FAILED", "Template update failed", err)
	}
	resp := ToTemplateDTO(template)
	return &resp, nil
}

func (f *TemplateFlowImpl) GetTemplate(ctx context.Context, id uint) (*dto.TemplateResponse, error) {
	template, err := f.loadTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTemplateDTO(template)
	return &resp, nil
}

func (f *TemplateFlowImpl) ListTemplates(ctx context.Context, req *dto.ListTemplatesRequest) (*dto.ListTemplatesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	templates, err := f.templateRepo.ByFilter(ctx, models.TemplateFilter{}, "id ASC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LIST_FAILED", "Failed to list templates", err)
	}
	total, err := f.templateRepo.Count(ctx, models.TemplateFilter{})
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_COUNT_FAILED", "Failed to count templates", err)
	}

	resp := &dto.ListTemplatesResponse{
		Templates: make([]dto.TemplateResponse, 0, len(templates)),
		Total:     total,
	}
	for i := range templates {
		resp.Templates = append(resp.Templates, ToTemplateDTO(&templates[i]))
	}
	return resp, nil
}

func (f *TemplateFlowImpl) DeleteTemplate(ctx context.Context, id uint) error {
	template, err := f.loadTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := f.db.WithContext(ctx).Delete(template).Error; err != nil {
		return NewBusinessError("TEMPLATE_DELETE_FAILED", "Template delete failed", err)
	}
	return nil
}

func (f *TemplateFlowImpl) loadTemplate(ctx context.Context, id uint) (*models.Template, error) {
	template, err := f.templateRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to lookup template", err)
	}
	if template == nil {
		return nil, NewBusinessError("TEMPLATE_NOT_FOUND", "Template not found", ErrTemplateNotFound)
	}
	return template, nil
}

// validateTemplateMedia rejects templates that declare a non-text media type
// without a reference to send.
func validateTemplateMedia(template *models.Template) error {
	if template.MediaType == nil || *template.MediaType == models.MediaTypeText {
		return nil
	}
	if template.MediaRef == nil || strings.TrimSpace(*template.MediaRef) == "" {
		return ErrTemplateMediaRefMissing
	}
	return nil
}
