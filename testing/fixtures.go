// Package testing provides test utilities and database setup for testing the dispatcher service
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

func randomPhone() string {
	return fmt.Sprintf("5511%08d", rand.Intn(100000000))
}

// CreateTestConnection creates a connection row with a unique phone number
func (tf *TestFixtures) CreateTestConnection(status models.ConnectionStatus) (*models.Connection, error) {
	connection := &models.Connection{
		Name:        fmt.Sprintf("Test Connection %s", uuid.NewString()[:8]),
		PhoneNumber: randomPhone(),
		Status:      status,
		DailyLimit:  100,
	}

	if err := tf.DB.DB.Create(connection).Error; err != nil {
		return nil, fmt.Errorf("failed to create test connection: %w", err)
	}

	return connection, nil
}

// CreateTestTemplate creates a text template with placeholder content
func (tf *TestFixtures) CreateTestTemplate() (*models.Template, error) {
	template := &models.Template{
		Name:    fmt.Sprintf("Test Template %s", uuid.NewString()[:8]),
		Content: "Ola {{nome}}, tudo bem?",
	}

	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}

	return template, nil
}

// CreateTestContact creates a contact with a unique phone number and one variable
func (tf *TestFixtures) CreateTestContact() (*models.Contact, error) {
	contact := &models.Contact{
		Name:        "Maria Silva",
		PhoneNumber: randomPhone(),
		Variables:   models.ContactVariables{"cidade": "Sao Paulo"},
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}

	return contact, nil
}

// CreateTestCampaign creates a scheduled campaign over the given contacts
func (tf *TestFixtures) CreateTestCampaign(connection *models.Connection, template *models.Template, contacts []*models.Contact) (*models.Campaign, error) {
	contactIDs := make(pq.Int64Array, 0, len(contacts))
	for _, contact := range contacts {
		contactIDs = append(contactIDs, int64(contact.ID))
	}

	scheduledAt := utils.UTCNow().Add(-time.Minute)
	campaign := &models.Campaign{
		Name:          fmt.Sprintf("Test Campaign %s", uuid.NewString()[:8]),
		TemplateID:    template.ID,
		ConnectionID:  connection.ID,
		Status:        models.CampaignStatusScheduled,
		ContactIDs:    contactIDs,
		TotalMessages: len(contactIDs),
		ScheduledAt:   &scheduledAt,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestSentMessage creates a sent message row for the given connection
func (tf *TestFixtures) CreateTestSentMessage(connection *models.Connection, status models.MessageStatus) (*models.SentMessage, error) {
	message := &models.SentMessage{
		ConnectionID: connection.ID,
		Recipient:    randomPhone(),
		Kind:         models.MediaTypeText,
		Body:         "hello",
		TrackingID:   uuid.NewString(),
		Status:       status,
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test sent message: %w", err)
	}

	return message, nil
}
