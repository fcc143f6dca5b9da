package businessflow

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/app/scheduler"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
	"github.com/revendapro/zap-dispatcher/utils"
)

// CampaignFlow handles campaign lifecycle business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	GetCampaign(ctx context.Context, id uint) (*dto.CampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	CancelCampaign(ctx context.Context, id uint) (*dto.CampaignResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	templateRepo repository.TemplateRepository
	contactRepo  repository.ContactRepository
	connRepo     repository.ConnectionRepository
	engine       *scheduler.CampaignEngine
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	templateRepo repository.TemplateRepository,
	contactRepo repository.ContactRepository,
	connRepo repository.ConnectionRepository,
	engine *scheduler.CampaignEngine,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		templateRepo: templateRepo,
		contactRepo:  contactRepo,
		connRepo:     connRepo,
		engine:       engine,
		db:           db,
	}
}

// CreateCampaign validates and persists a campaign. A campaign without a
// scheduled time becomes due immediately; the engine picks it up on its next
// tick.
func (f *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	if len(req.ContactIDs) == 0 {
		return nil, NewBusinessError("CAMPAIGN_CONTACTS_REQUIRED", "Campaign needs at least one contact", ErrCampaignContactsRequired)
	}
	if req.MinIntervalSeconds < 0 || req.MaxIntervalSeconds < 0 ||
		(req.MaxIntervalSeconds > 0 && req.MinIntervalSeconds > req.MaxIntervalSeconds) {
		return nil, NewBusinessError("CAMPAIGN_INTERVAL_INVALID", "Campaign pacing interval is invalid", ErrCampaignIntervalInvalid)
	}
	if req.ScheduledAt != nil && req.ScheduledAt.Before(utils.UTCNow()) {
		return nil, NewBusinessError("CAMPAIGN_SCHEDULE_IN_PAST", "Schedule time is in the past", ErrScheduleTimeInPast)
	}

	template, err := f.templateRepo.ByID(ctx, req.TemplateID)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to lookup template", err)
	}
	if template == nil {
		return nil, NewBusinessError("TEMPLATE_NOT_FOUND", "Template not found", ErrTemplateNotFound)
	}

	connection, err := f.connRepo.ByID(ctx, req.ConnectionID)
	if err != nil {
		return nil, NewBusinessError("CONNECTION_LOOKUP_FAILED", "Failed to lookup connection", err)
	}
	if connection == nil {
		return nil, NewBusinessError("CONNECTION_NOT_FOUND", "Connection not found", ErrConnectionNotFound)
	}

	contacts, err := f.contactRepo.ListByIDs(ctx, req.ContactIDs)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LOOKUP_FAILED", "Failed to lookup contacts", err)
	}
	if len(contacts) != len(req.ContactIDs) {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "One or more contacts do not exist", ErrContactNotFound)
	}

	campaign := &models.Campaign{
		Name:               req.Name,
		TemplateID:         req.TemplateID,
		ConnectionID:       req.ConnectionID,
		Status:             models.CampaignStatusScheduled,
		MinIntervalSeconds: req.MinIntervalSeconds,
		MaxIntervalSeconds: req.MaxIntervalSeconds,
		ContactIDs:         pq.Int64Array(req.ContactIDs),
		ScheduledAt:        req.ScheduledAt,
	}
	if err := f.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	resp := ToCampaignDTO(campaign)
	return &resp, nil
}

func (f *CampaignFlowImpl) GetCampaign(ctx context.Context, id uint) (*dto.CampaignResponse, error) {
	campaign, err := f.loadCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCampaignDTO(campaign)
	return &resp, nil
}

func (f *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	filter := models.CampaignFilter{ConnectionID: req.ConnectionID}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	campaigns, err := f.campaignRepo.ByFilter(ctx, filter, "id DESC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	total, err := f.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_COUNT_FAILED", "Failed to count campaigns", err)
	}

	resp := &dto.ListCampaignsResponse{
		Campaigns: make([]dto.CampaignResponse, 0, len(campaigns)),
		Total:     total,
	}
	for i := range campaigns {
		resp.Campaigns = append(resp.Campaigns, ToCampaignDTO(&campaigns[i]))
	}
	return resp, nil
}

// CancelCampaign stops a running or pending campaign. A campaign already in
// flight finishes its current contact before the engine observes the cancel.
func (f *CampaignFlowImpl) CancelCampaign(ctx context.Context, id uint) (*dto.CampaignResponse, error) {
	campaign, err := f.loadCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.CanTransitionTo(models.CampaignStatusCanceled) {
		return nil, NewBusinessError("CAMPAIGN_NOT_CANCELABLE", "Campaign cannot be canceled", ErrCampaignNotCancelable)
	}

	// A running campaign is finalized by the engine when its context is
	// canceled; otherwise the status change happens here.
	if f.engine != nil && f.engine.Cancel(campaign.ID) {
		resp := ToCampaignDTO(campaign)
		return &resp, nil
	}

	campaign.Status = models.CampaignStatusCanceled
	campaign.CompletedAt = utils.UTCNowPtr()
	if err := f.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	resp := ToCampaignDTO(campaign)
	return &resp, nil
}

func (f *CampaignFlowImpl) loadCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	campaign, err := f.campaignRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}
