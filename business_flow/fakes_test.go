package businessflow

import (
	"context"
	"time"

	"github.com/revendapro/zap-dispatcher/models"
)

// fakeStore is a tiny in-memory store shared by the fake repositories. It only
// implements what the flow tests exercise.
type fakeStore[T any] struct {
	nextID uint
	items  map[uint]*T
}

func newFakeStore[T any]() *fakeStore[T] {
	return &fakeStore[T]{items: make(map[uint]*T)}
}

func (s *fakeStore[T]) add(setID func(*T, uint), item *T) {
	s.nextID++
	setID(item, s.nextID)
	s.items[s.nextID] = item
}

type fakeTemplateRepo struct {
	store *fakeStore[models.Template]
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{store: newFakeStore[models.Template]()}
}

func (r *fakeTemplateRepo) save(template *models.Template) *models.Template {
	r.store.add(func(t *models.Template, id uint) { t.ID = id }, template)
	return template
}

func (r *fakeTemplateRepo) ByID(ctx context.Context, id uint) (*models.Template, error) {
	return r.store.items[id], nil
}

func (r *fakeTemplateRepo) ByFilter(ctx context.Context, filter models.TemplateFilter, orderBy string, limit, offset int) ([]models.Template, error) {
	var out []models.Template
	for _, t := range r.store.items {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTemplateRepo) Save(ctx context.Context, entity *models.Template) error {
	r.save(entity)
	return nil
}

func (r *fakeTemplateRepo) SaveBatch(ctx context.Context, entities []*models.Template) error {
	for _, e := range entities {
		r.save(e)
	}
	return nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, entity *models.Template) error {
	r.store.items[entity.ID] = entity
	return nil
}

func (r *fakeTemplateRepo) Count(ctx context.Context, filter models.TemplateFilter) (int64, error) {
	return int64(len(r.store.items)), nil
}

func (r *fakeTemplateRepo) Exists(ctx context.Context, filter models.TemplateFilter) (bool, error) {
	return len(r.store.items) > 0, nil
}

type fakeContactRepo struct {
	store *fakeStore[models.Contact]
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{store: newFakeStore[models.Contact]()}
}

func (r *fakeContactRepo) save(contact *models.Contact) *models.Contact {
	r.store.add(func(c *models.Contact, id uint) { c.ID = id }, contact)
	return contact
}

func (r *fakeContactRepo) ByID(ctx context.Context, id uint) (*models.Contact, error) {
	return r.store.items[id], nil
}

func (r *fakeContactRepo) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]models.Contact, error) {
	var out []models.Contact
	for _, c := range r.store.items {
		if filter.PhoneNumber != nil && c.PhoneNumber != *filter.PhoneNumber {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeContactRepo) Save(ctx context.Context, entity *models.Contact) error {
	r.save(entity)
	return nil
}

func (r *fakeContactRepo) SaveBatch(ctx context.Context, entities []*models.Contact) error {
	for _, e := range entities {
		r.save(e)
	}
	return nil
}

func (r *fakeContactRepo) Update(ctx context.Context, entity *models.Contact) error {
	r.store.items[entity.ID] = entity
	return nil
}

func (r *fakeContactRepo) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	matches, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(matches)), nil
}

func (r *fakeContactRepo) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	matches, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return len(matches) > 0, nil
}

func (r *fakeContactRepo) ListByIDs(ctx context.Context, ids []int64) ([]models.Contact, error) {
	var out []models.Contact
	for _, id := range ids {
		if c, ok := r.store.items[uint(id)]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) TouchLastMessage(ctx context.Context, phoneNumber string, at time.Time) error {
	for _, c := range r.store.items {
		if c.PhoneNumber == phoneNumber {
			c.LastMessageAt = &at
		}
	}
	return nil
}

type fakeCampaignRepo struct {
	store *fakeStore[models.Campaign]
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{store: newFakeStore[models.Campaign]()}
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	if c, ok := r.store.items[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]models.Campaign, error) {
	var out []models.Campaign
	for _, c := range r.store.items {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.ConnectionID != nil && c.ConnectionID != *filter.ConnectionID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, entity *models.Campaign) error {
	r.store.add(func(c *models.Campaign, id uint) { c.ID = id }, entity)
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.Campaign) error {
	for _, e := range entities {
		r.Save(ctx, e)
	}
	return nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, entity *models.Campaign) error {
	copied := *entity
	r.store.items[entity.ID] = &copied
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	matches, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(matches)), nil
}

func (r *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	matches, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return len(matches) > 0, nil
}

func (r *fakeCampaignRepo) ListDue(ctx context.Context, limit int) ([]models.Campaign, error) {
	now := time.Now().UTC()
	scheduled := models.CampaignStatusScheduled
	due, _ := r.ByFilter(ctx, models.CampaignFilter{Status: &scheduled}, "", 0, 0)
	var out []models.Campaign
	for _, c := range due {
		if c.ScheduledAt == nil || !c.ScheduledAt.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) IncrementCounter(ctx context.Context, id uint, column string, delta int) error {
	c, ok := r.store.items[id]
	if !ok {
		return nil
	}
	switch column {
	case "sent_messages":
		c.SentMessages += delta
	case "delivered_messages":
		c.DeliveredMessages += delta
	case "read_messages":
		c.ReadMessages += delta
	case "failed_messages":
		c.FailedMessages += delta
	}
	return nil
}

type fakeConnectionRepo struct {
	store *fakeStore[models.Connection]
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{store: newFakeStore[models.Connection]()}
}

func (r *fakeConnectionRepo) save(connection *models.Connection) *models.Connection {
	r.store.add(func(c *models.Connection, id uint) { c.ID = id }, connection)
	return connection
}

func (r *fakeConnectionRepo) ByID(ctx context.Context, id uint) (*models.Connection, error) {
	return r.store.items[id], nil
}

func (r *fakeConnectionRepo) ByFilter(ctx context.Context, filter models.ConnectionFilter, orderBy string, limit, offset int) ([]models.Connection, error) {
	var out []models.Connection
	for _, c := range r.store.items {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeConnectionRepo) Save(ctx context.Context, entity *models.Connection) error {
	r.save(entity)
	return nil
}

func (r *fakeConnectionRepo) SaveBatch(ctx context.Context, entities []*models.Connection) error {
	for _, e := range entities {
		r.save(e)
	}
	return nil
}

func (r *fakeConnectionRepo) Update(ctx context.Context, entity *models.Connection) error {
	r.store.items[entity.ID] = entity
	return nil
}

func (r *fakeConnectionRepo) Count(ctx context.Context, filter models.ConnectionFilter) (int64, error) {
	return int64(len(r.store.items)), nil
}

func (r *fakeConnectionRepo) Exists(ctx context.Context, filter models.ConnectionFilter) (bool, error) {
	return len(r.store.items) > 0, nil
}

func (r *fakeConnectionRepo) ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Connection, error) {
	for _, c := range r.store.items {
		if c.PhoneNumber == phoneNumber {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeConnectionRepo) UpdateStatus(ctx context.Context, id uint, status models.ConnectionStatus) error {
	if c, ok := r.store.items[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeConnectionRepo) UpdatePhoneNumber(ctx context.Context, id uint, phoneNumber string) error {
	if c, ok := r.store.items[id]; ok {
		c.PhoneNumber = phoneNumber
	}
	return nil
}

func (r *fakeConnectionRepo) RecordSent(ctx context.Context, id uint, now time.Time) error {
	if c, ok := r.store.items[id]; ok {
		c.SentToday++
		c.LastQuotaReset = &now
	}
	return nil
}
