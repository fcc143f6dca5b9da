package repository

import (
	"context"
	"time"

	"github.com/revendapro/zap-dispatcher/models"
)

type contextKey string

const TxContextKey contextKey = "tx"

// Repository is the generic data access contract shared by all entities.
type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

type ConnectionRepository interface {
	Repository[models.Connection, models.ConnectionFilter]
	ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Connection, error)
	UpdateStatus(ctx context.Context, id uint, status models.ConnectionStatus) error
	UpdatePhoneNumber(ctx context.Context, id uint, phoneNumber string) error
	RecordSent(ctx context.Context, id uint, now time.Time) error
}

type TemplateRepository interface {
	Repository[models.Template, models.TemplateFilter]
}

type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ListByIDs(ctx context.Context, ids []int64) ([]models.Contact, error)
	TouchLastMessage(ctx context.Context, phoneNumber string, at time.Time) error
}

type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ListDue(ctx context.Context, limit int) ([]models.Campaign, error)
	IncrementCounter(ctx context.Context, id uint, column string, delta int) error
}

type SentMessageRepository interface {
	Repository[models.SentMessage, models.SentMessageFilter]
	ByTrackingID(ctx context.Context, trackingID string) (*models.SentMessage, error)
	UpdateStatus(ctx context.Context, trackingID string, status models.MessageStatus, failReason string) error
	LinkProviderID(ctx context.Context, trackingID, providerID string) error
}
