package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
	apptesting "github.com/revendapro/zap-dispatcher/testing"
)

// These tests need a reachable PostgreSQL (TEST_DB_* env) and are skipped
// otherwise.
func setupDB(t *testing.T) (*apptesting.TestDB, *apptesting.TestFixtures) {
	t.Helper()
	testDB, err := apptesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("teardown: %v", err)
		}
	})
	return testDB, apptesting.NewTestFixtures(testDB)
}

func TestConnectionRepositoryRecordSent(t *testing.T) {
	testDB, fixtures := setupDB(t)
	repo := repository.NewConnectionRepository(testDB.DB)
	ctx := context.Background()

	connection, err := fixtures.CreateTestConnection(models.ConnectionStatusConnected)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.RecordSent(ctx, connection.ID, now))
	require.NoError(t, repo.RecordSent(ctx, connection.ID, now))

	fresh, err := repo.ByID(ctx, connection.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.SentToday)

	// A send on the next calendar day resets the counter to 1.
	nextDay := now.Add(24 * time.Hour)
	require.NoError(t, repo.RecordSent(ctx, connection.ID, nextDay))

	fresh, err = repo.ByID(ctx, connection.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.SentToday)
}

func TestConnectionRepositoryByPhoneNumber(t *testing.T) {
	testDB, fixtures := setupDB(t)
	repo := repository.NewConnectionRepository(testDB.DB)
	ctx := context.Background()

	connection, err := fixtures.CreateTestConnection(models.ConnectionStatusDisconnected)
	require.NoError(t, err)

	found, err := repo.ByPhoneNumber(ctx, connection.PhoneNumber)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, connection.ID, found.ID)

	missing, err := repo.ByPhoneNumber(ctx, "550000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSentMessageRepositoryStatusProgression(t *testing.T) {
	testDB, fixtures := setupDB(t)
	repo := repository.NewSentMessageRepository(testDB.DB)
	ctx := context.Background()

	connection, err := fixtures.CreateTestConnection(models.ConnectionStatusConnected)
	require.NoError(t, err)
	message, err := fixtures.CreateTestSentMessage(connection, models.MessageStatusPending)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, message.TrackingID, models.MessageStatusDelivered, ""))

	// A late "sent" receipt must not regress a delivered message.
	require.NoError(t, repo.UpdateStatus(ctx, message.TrackingID, models.MessageStatusSent, ""))

	fresh, err := repo.ByTrackingID(ctx, message.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, fresh.Status)
}

func TestSentMessageRepositoryLinkProviderID(t *testing.T) {
	testDB, fixtures := setupDB(t)
	repo := repository.NewSentMessageRepository(testDB.DB)
	ctx := context.Background()

	connection, err := fixtures.CreateTestConnection(models.ConnectionStatusConnected)
	require.NoError(t, err)
	message, err := fixtures.CreateTestSentMessage(connection, models.MessageStatusPending)
	require.NoError(t, err)

	require.NoError(t, repo.LinkProviderID(ctx, message.TrackingID, "WA-PROVIDER-1"))

	old, err := repo.ByTrackingID(ctx, message.TrackingID)
	require.NoError(t, err)
	assert.Nil(t, old)

	linked, err := repo.ByTrackingID(ctx, "WA-PROVIDER-1")
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, models.MessageStatusSent, linked.Status)
}

func TestCampaignRepositoryListDue(t *testing.T) {
	testDB, fixtures := setupDB(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	connection, err := fixtures.CreateTestConnection(models.ConnectionStatusConnected)
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate()
	require.NoError(t, err)
	contact, err := fixtures.CreateTestContact()
	require.NoError(t, err)

	due, err := fixtures.CreateTestCampaign(connection, template, []*models.Contact{contact})
	require.NoError(t, err)

	future := time.Now().UTC().Add(time.Hour)
	notYet, err := fixtures.CreateTestCampaign(connection, template, []*models.Contact{contact})
	require.NoError(t, err)
	notYet.ScheduledAt = &future
	require.NoError(t, repo.Update(ctx, notYet))

	campaigns, err := repo.ListDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, due.ID, campaigns[0].ID)
}

func TestCampaignRepositoryIncrementCounter(t *testing.T) {
	testDB, fixtures := setupDB(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	connection, err := fixtures.CreateTestConnection(models.ConnectionStatusConnected)
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate()
	require.NoError(t, err)
	contact, err := fixtures.CreateTestContact()
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(connection, template, []*models.Contact{contact})
	require.NoError(t, err)

	require.NoError(t, repo.IncrementCounter(ctx, campaign.ID, "sent_messages", 1))
	require.NoError(t, repo.IncrementCounter(ctx, campaign.ID, "delivered_messages", 1))

	fresh, err := repo.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.SentMessages)
	assert.Equal(t, 1, fresh.DeliveredMessages)
}
