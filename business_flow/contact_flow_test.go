package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/utils"
)

func testContactFlow(repo *fakeContactRepo) ContactFlow {
	return NewContactFlow(repo, config.WhatsAppConfig{DefaultCountryCode: "55"}, nil)
}

func TestCreateContactCanonicalizesPhone(t *testing.T) {
	flow := testContactFlow(newFakeContactRepo())

	resp, err := flow.CreateContact(context.Background(), &dto.CreateContactRequest{
		Name:        "Maria",
		PhoneNumber: "(11) 99999-0000",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "5511999990000", resp.PhoneNumber)
}

func TestCreateContactDuplicatePhone(t *testing.T) {
	flow := testContactFlow(newFakeContactRepo())

	_, err := flow.CreateContact(context.Background(), &dto.CreateContactRequest{
		Name:        "Maria",
		PhoneNumber: "11999990000",
	}, nil)
	require.NoError(t, err)

	// Same number in a different format still collides
	_, err = flow.CreateContact(context.Background(), &dto.CreateContactRequest{
		Name:        "Outra Maria",
		PhoneNumber: "+55 (11) 99999-0000",
	}, nil)
	assert.True(t, IsContactAlreadyExists(err))
}

func TestCreateContactKeepsVariables(t *testing.T) {
	flow := testContactFlow(newFakeContactRepo())

	resp, err := flow.CreateContact(context.Background(), &dto.CreateContactRequest{
		Name:        "Maria",
		PhoneNumber: "11999990000",
		Variables:   map[string]string{"cidade": "Campinas"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Campinas", resp.Variables["cidade"])
}

func TestUpdateContact(t *testing.T) {
	repo := newFakeContactRepo()
	flow := testContactFlow(repo)

	created, err := flow.CreateContact(context.Background(), &dto.CreateContactRequest{
		Name:        "Maria",
		PhoneNumber: "11999990000",
	}, nil)
	require.NoError(t, err)

	updated, err := flow.UpdateContact(context.Background(), &dto.UpdateContactRequest{
		ID:          created.ID,
		PhoneNumber: utils.ToPtr("(21) 98888-7777"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "5521988887777", updated.PhoneNumber)
	assert.Equal(t, "Maria", updated.Name)
}

func TestGetContactNotFound(t *testing.T) {
	flow := testContactFlow(newFakeContactRepo())

	_, err := flow.GetContact(context.Background(), 404)
	assert.True(t, IsContactNotFound(err))
}

func TestListContacts(t *testing.T) {
	flow := testContactFlow(newFakeContactRepo())

	for _, phone := range []string{"11999990001", "11999990002"} {
		_, err := flow.CreateContact(context.Background(), &dto.CreateContactRequest{Name: "x", PhoneNumber: phone}, nil)
		require.NoError(t, err)
	}

	resp, err := flow.ListContacts(context.Background(), &dto.ListContactsRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Contacts, 2)
	assert.Equal(t, int64(2), resp.Total)
}
