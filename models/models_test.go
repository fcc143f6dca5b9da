package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignTransitions(t *testing.T) {
	cases := []struct {
		from CampaignStatus
		to   CampaignStatus
		ok   bool
	}{
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusDraft, CampaignStatusInProgress, true},
		{CampaignStatusDraft, CampaignStatusCanceled, true},
		{CampaignStatusDraft, CampaignStatusCompleted, false},
		{CampaignStatusScheduled, CampaignStatusInProgress, true},
		{CampaignStatusScheduled, CampaignStatusCanceled, true},
		{CampaignStatusScheduled, CampaignStatusCompleted, false},
		{CampaignStatusInProgress, CampaignStatusCompleted, true},
		{CampaignStatusInProgress, CampaignStatusCanceled, true},
		{CampaignStatusInProgress, CampaignStatusScheduled, false},
		{CampaignStatusCompleted, CampaignStatusCanceled, false},
		{CampaignStatusCanceled, CampaignStatusScheduled, false},
	}

	for _, tc := range cases {
		c := &Campaign{Status: tc.from}
		assert.Equalf(t, tc.ok, c.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCampaignCountersConsistent(t *testing.T) {
	c := &Campaign{TotalMessages: 10, SentMessages: 8, DeliveredMessages: 5, ReadMessages: 2}
	assert.True(t, c.CountersConsistent())

	c.ReadMessages = 6
	assert.False(t, c.CountersConsistent())

	c = &Campaign{TotalMessages: 3, SentMessages: 4}
	assert.False(t, c.CountersConsistent())
}

func TestMapAckCode(t *testing.T) {
	assert.Equal(t, MessageStatusPending, MapAckCode(0))
	assert.Equal(t, MessageStatusSent, MapAckCode(1))
	assert.Equal(t, MessageStatusDelivered, MapAckCode(2))
	assert.Equal(t, MessageStatusRead, MapAckCode(3))
	assert.Equal(t, MessageStatusFailed, MapAckCode(-1))
	assert.Equal(t, MessageStatusFailed, MapAckCode(99))
}

func TestMessageStatusRank(t *testing.T) {
	assert.Less(t, MessageStatusPending.Rank(), MessageStatusSent.Rank())
	assert.Less(t, MessageStatusSent.Rank(), MessageStatusDelivered.Rank())
	assert.Less(t, MessageStatusDelivered.Rank(), MessageStatusRead.Rank())
	assert.Equal(t, -1, MessageStatusFailed.Rank())
}

func TestContactTemplateVars(t *testing.T) {
	c := &Contact{
		Name:        "Maria",
		PhoneNumber: "5511999990000",
		Variables:   ContactVariables{"cidade": "Campinas"},
	}

	vars := c.TemplateVars()
	assert.Equal(t, "Maria", vars["nome"])
	assert.Equal(t, "5511999990000", vars["telefone"])
	assert.Equal(t, "Campinas", vars["cidade"])
}

func TestContactTemplateVarsOverride(t *testing.T) {
	c := &Contact{
		Name:        "Maria",
		PhoneNumber: "5511999990000",
		Variables:   ContactVariables{"nome": "Dona Maria"},
	}

	assert.Equal(t, "Dona Maria", c.TemplateVars()["nome"])
}

func TestTemplateHasMedia(t *testing.T) {
	image := MediaTypeImage
	text := MediaTypeText
	ref := "https://cdn.example.com/banner.png"
	empty := ""

	assert.True(t, (&Template{MediaType: &image, MediaRef: &ref}).HasMedia())
	assert.False(t, (&Template{MediaType: &image, MediaRef: &empty}).HasMedia())
	assert.False(t, (&Template{MediaType: &image}).HasMedia())
	// Inconsistent data: a text template with an attachment still has media.
	assert.True(t, (&Template{MediaType: &text, MediaRef: &ref}).HasMedia())
	assert.False(t, (&Template{}).HasMedia())
}

func TestConnectionStatusValid(t *testing.T) {
	assert.True(t, ConnectionStatusConnected.Valid())
	assert.True(t, ConnectionStatusDisconnected.Valid())
	assert.False(t, ConnectionStatus("banana").Valid())
}
