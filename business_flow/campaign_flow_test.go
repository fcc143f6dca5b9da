package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/utils"
)

type campaignFlowFixture struct {
	flow       CampaignFlow
	campaigns  *fakeCampaignRepo
	connection *models.Connection
	template   *models.Template
	contacts   []int64
}

func newCampaignFlowFixture(t *testing.T) *campaignFlowFixture {
	t.Helper()

	campaignRepo := newFakeCampaignRepo()
	templateRepo := newFakeTemplateRepo()
	contactRepo := newFakeContactRepo()
	connRepo := newFakeConnectionRepo()

	template := templateRepo.save(&models.Template{Name: "Oferta", Content: "Olá {{nome}}"})
	connection := connRepo.save(&models.Connection{Name: "Loja", PhoneNumber: "5511999990000"})
	var contactIDs []int64
	for _, phone := range []string{"5511999990001", "5511999990002"} {
		c := contactRepo.save(&models.Contact{Name: "x", PhoneNumber: phone})
		contactIDs = append(contactIDs, int64(c.ID))
	}

	return &campaignFlowFixture{
		flow:       NewCampaignFlow(campaignRepo, templateRepo, contactRepo, connRepo, nil, nil),
		campaigns:  campaignRepo,
		connection: connection,
		template:   template,
		contacts:   contactIDs,
	}
}

func (f *campaignFlowFixture) createRequest() *dto.CreateCampaignRequest {
	return &dto.CreateCampaignRequest{
		Name:         "Promoção",
		TemplateID:   f.template.ID,
		ConnectionID: f.connection.ID,
		ContactIDs:   f.contacts,
	}
}

func TestCreateCampaign(t *testing.T) {
	f := newCampaignFlowFixture(t)

	resp, err := f.flow.CreateCampaign(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, string(models.CampaignStatusScheduled), resp.Status)
}

func TestCreateCampaignNoContacts(t *testing.T) {
	f := newCampaignFlowFixture(t)
	req := f.createRequest()
	req.ContactIDs = nil

	_, err := f.flow.CreateCampaign(context.Background(), req, nil)
	assert.True(t, IsCampaignContactsRequired(err))
}

func TestCreateCampaignInvalidInterval(t *testing.T) {
	f := newCampaignFlowFixture(t)
	req := f.createRequest()
	req.MinIntervalSeconds = 30
	req.MaxIntervalSeconds = 10

	_, err := f.flow.CreateCampaign(context.Background(), req, nil)
	assert.True(t, IsCampaignIntervalInvalid(err))
}

func TestCreateCampaignScheduleInPast(t *testing.T) {
	f := newCampaignFlowFixture(t)
	req := f.createRequest()
	past := utils.UTCNow().Add(-time.Hour)
	req.ScheduledAt = &past

	_, err := f.flow.CreateCampaign(context.Background(), req, nil)
	assert.True(t, IsScheduleTimeInPast(err))
}

func TestCreateCampaignUnknownTemplate(t *testing.T) {
	f := newCampaignFlowFixture(t)
	req := f.createRequest()
	req.TemplateID = 999

	_, err := f.flow.CreateCampaign(context.Background(), req, nil)
	assert.True(t, IsTemplateNotFound(err))
}

func TestCreateCampaignUnknownContact(t *testing.T) {
	f := newCampaignFlowFixture(t)
	req := f.createRequest()
	req.ContactIDs = append(req.ContactIDs, 999)

	_, err := f.flow.CreateCampaign(context.Background(), req, nil)
	assert.True(t, IsContactNotFound(err))
}

func TestCancelScheduledCampaign(t *testing.T) {
	f := newCampaignFlowFixture(t)

	created, err := f.flow.CreateCampaign(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	canceled, err := f.flow.CancelCampaign(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.CampaignStatusCanceled), canceled.Status)
	assert.NotNil(t, canceled.CompletedAt)
}

func TestCancelCompletedCampaign(t *testing.T) {
	f := newCampaignFlowFixture(t)

	created, err := f.flow.CreateCampaign(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	stored, err := f.campaigns.ByID(context.Background(), created.ID)
	require.NoError(t, err)
	stored.Status = models.CampaignStatusCompleted
	require.NoError(t, f.campaigns.Update(context.Background(), stored))

	_, err = f.flow.CancelCampaign(context.Background(), created.ID)
	assert.True(t, IsCampaignNotCancelable(err))
}

func TestListCampaignsFilterByStatus(t *testing.T) {
	f := newCampaignFlowFixture(t)

	created, err := f.flow.CreateCampaign(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)
	_, err = f.flow.CancelCampaign(context.Background(), created.ID)
	require.NoError(t, err)

	second, err := f.flow.CreateCampaign(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	resp, err := f.flow.ListCampaigns(context.Background(), &dto.ListCampaignsRequest{
		Status: utils.ToPtr(string(models.CampaignStatusScheduled)),
	})
	require.NoError(t, err)
	require.Len(t, resp.Campaigns, 1)
	assert.Equal(t, second.ID, resp.Campaigns[0].ID)
}
