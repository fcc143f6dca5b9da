package businessflow

import (
	"context"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
	"github.com/revendapro/zap-dispatcher/utils"
)

// ContactFlow handles contact book business logic
type ContactFlow interface {
	CreateContact(ctx context.Context, req *dto.CreateContactRequest, metadata *ClientMetadata) (*dto.ContactResponse, error)
	UpdateContact(ctx context.Context, req *dto.UpdateContactRequest, metadata *ClientMetadata) (*dto.ContactResponse, error)
	GetContact(ctx context.Context, id uint) (*dto.ContactResponse, error)
	ListContacts(ctx context.Context, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error)
	DeleteContact(ctx context.Context, id uint) error
}

// ContactFlowImpl implements the contact business flow
type ContactFlowImpl struct {
	contactRepo repository.ContactRepository
	waCfg       config.WhatsAppConfig
	db          *gorm.DB
}

// NewContactFlow creates a new contact flow instance
func NewContactFlow(contactRepo repository.ContactRepository, waCfg config.WhatsAppConfig, db *gorm.DB) ContactFlow {
	return &ContactFlowImpl{contactRepo: contactRepo, waCfg: waCfg, db: db}
}

func (f *ContactFlowImpl) CreateContact(ctx context.Context, req *dto.CreateContactRequest, metadata *ClientMetadata) (*dto.ContactResponse, error) {
	phone := utils.CanonicalNumber(req.PhoneNumber, f.waCfg.DefaultCountryCode)

	exists, err := f.contactRepo.Exists(ctx, models.ContactFilter{PhoneNumber: &phone})
	if err != nil {
		return nil, NewBusinessError("CONTACT_LOOKUP_FAILED", "Failed to lookup contact", err)
	}
	if exists {
		return nil, NewBusinessError("CONTACT_ALREADY_EXISTS", "Contact already exists", ErrContactAlreadyExists)
	}

	contact := &models.Contact{
		Name:        req.Name,
		PhoneNumber: phone,
		Variables:   req.Variables,
	}
	if err := f.contactRepo.Save(ctx, contact); err != nil {
		return nil, NewBusinessError("CONTACT_CREATION_FAILED", "Contact creation failed", err)
	}
	resp := ToContactDTO(contact)
	return &resp, nil
}

func (f *ContactFlowImpl) UpdateContact(ctx context.Context, req *dto.UpdateContactRequest, metadata *ClientMetadata) (*dto.ContactResponse, error) {
	contact, err := f.loadContact(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		contact.PhoneNumber = utils.CanonicalNumber(*req.PhoneNumber, f.waCfg.DefaultCountryCode)
	}
	if req.Variables != nil {
		contact.Variables = req.Variables
	}

	if err := f.contactRepo.Update(ctx, contact); err != nil {
		return nil, NewBusinessError("CONTACT_UPDATE_FAILED", "Contact update failed", err)
	}
	resp := ToContactDTO(contact)
	return &resp, nil
}

func (f *ContactFlowImpl) GetContact(ctx context.Context, id uint) (*dto.ContactResponse, error) {
	contact, err := f.loadContact(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToContactDTO(contact)
	return &resp, nil
}

func (f *ContactFlowImpl) ListContacts(ctx context.Context, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	contacts, err := f.contactRepo.ByFilter(ctx, models.ContactFilter{}, "id ASC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LIST_FAILED", "Failed to list contacts", err)
	}
	total, err := f.contactRepo.Count(ctx, models.ContactFilter{})
	if err != nil {
		return nil, NewBusinessError("CONTACT_COUNT_FAILED", "Failed to count contacts", err)
	}

	resp := &dto.ListContactsResponse{
		Contacts: make([]dto.ContactResponse, 0, len(contacts)),
		Total:    total,
	}
	for i := range contacts {
		resp.Contacts = append(resp.Contacts, ToContactDTO(&contacts[i]))
	}
	return resp, nil
}

func (f *ContactFlowImpl) DeleteContact(ctx context.Context, id uint) error {
	contact, err := f.loadContact(ctx, id)
	if err != nil {
		return err
	}
	if err := f.db.WithContext(ctx).Delete(contact).Error; err != nil {
		return NewBusinessError("CONTACT_DELETE_FAILED", "Contact delete failed", err)
	}
	return nil
}

func (f *ContactFlowImpl) loadContact(ctx context.Context, id uint) (*models.Contact, error) {
	contact, err := f.contactRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LOOKUP_FAILED", "Failed to lookup contact", err)
	}
	if contact == nil {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "Contact not found", ErrContactNotFound)
	}
	return contact, nil
}
