package scheduler

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revendapro/zap-dispatcher/app/dispatcher"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/utils"
)

func testEngine(t *testing.T) *CampaignEngine {
	t.Helper()
	return NewCampaignEngine(nil, nil, nil, nil, nil, nil, time.Minute,
		config.CampaignConfig{DefaultMinIntervalSeconds: 1, DefaultMaxIntervalSeconds: 3},
		config.LoggingConfig{Dir: t.TempDir()},
	)
}

func TestBuildMessageTextTemplate(t *testing.T) {
	e := testEngine(t)
	template := &models.Template{Content: "Olá {{nome}}"}
	contact := &models.Contact{Name: "Maria", PhoneNumber: "11999990000"}

	msg := e.buildMessage(template, contact)
	assert.Equal(t, models.MediaTypeText, msg.Kind)
	assert.Equal(t, "Olá Maria", msg.Body)
	assert.Equal(t, "11999990000", msg.To)
	assert.Empty(t, msg.Media)
}

func TestBuildMessageDecodesDataURL(t *testing.T) {
	e := testEngine(t)
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	template := &models.Template{
		Content:   "confira {{nome}}",
		MediaType: utils.ToPtr(models.MediaTypeImage),
		MediaRef:  &ref,
		MediaMime: utils.ToPtr("image/png"),
		FileName:  utils.ToPtr("oferta.png"),
	}
	contact := &models.Contact{Name: "João", PhoneNumber: "11999990000"}

	msg := e.buildMessage(template, contact)
	assert.Equal(t, models.MediaTypeImage, msg.Kind)
	assert.Equal(t, "confira João", msg.Body)
	assert.Equal(t, payload, msg.Media)
	assert.Equal(t, "image/png", msg.MimeType)
	assert.Equal(t, "oferta.png", msg.FileName)
}

func TestBuildMessageAudioDropsCaption(t *testing.T) {
	e := testEngine(t)
	ref := "/var/media/audio.ogg"
	template := &models.Template{
		Content:   "isto vira legenda",
		MediaType: utils.ToPtr(models.MediaTypeAudio),
		MediaRef:  &ref,
	}
	contact := &models.Contact{Name: "Ana", PhoneNumber: "11999990000"}

	msg := e.buildMessage(template, contact)
	assert.Equal(t, models.MediaTypeAudio, msg.Kind)
	assert.Empty(t, msg.Body)
	assert.Equal(t, ref, msg.MediaRef)
}

func TestBuildMessageTextTypedMediaBecomesImage(t *testing.T) {
	e := testEngine(t)
	ref := "https://cdn.example.com/banner.png"
	template := &models.Template{
		Content:   "confira {{nome}}",
		MediaType: utils.ToPtr(models.MediaTypeText),
		MediaRef:  &ref,
	}
	contact := &models.Contact{Name: "Rui", PhoneNumber: "11999990000"}

	msg := e.buildMessage(template, contact)
	assert.Equal(t, models.MediaTypeImage, msg.Kind)
	assert.Equal(t, "confira Rui", msg.Body)
	assert.Equal(t, ref, msg.MediaRef)
}

func TestBuildMessageMissingMediaDegradesToText(t *testing.T) {
	e := testEngine(t)
	template := &models.Template{
		Content:   "Olá {{nome}}",
		MediaType: utils.ToPtr(models.MediaTypeImage),
	}
	contact := &models.Contact{Name: "Bia", PhoneNumber: "11999990000"}

	msg := e.buildMessage(template, contact)
	assert.Equal(t, models.MediaTypeText, msg.Kind)
	assert.Equal(t, "Olá Bia", msg.Body)
}

func TestRegistrySenderUnknownConnection(t *testing.T) {
	sender := &RegistrySender{Registry: dispatcher.NewRegistry()}
	_, err := sender.Send(context.Background(), 42, dispatcher.OutboundMessage{
		To:   "11999990000",
		Kind: models.MediaTypeText,
		Body: "oi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection 42")
}

func TestEngineCancelUnknownCampaign(t *testing.T) {
	e := testEngine(t)
	assert.False(t, e.Cancel(99))
}
