// Package scheduler
package scheduler

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/app/dispatcher"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
	"github.com/revendapro/zap-dispatcher/utils"
)

// MessageSender is the minimal sending interface the engine needs. It is
// extracted from the connection registry to keep the engine easy to test.
type MessageSender interface {
	Send(ctx context.Context, connectionID uint, msg dispatcher.OutboundMessage) (string, error)
}

// RegistrySender sends through the live connection handles.
type RegistrySender struct {
	Registry *dispatcher.Registry
}

func (r *RegistrySender) Send(ctx context.Context, connectionID uint, msg dispatcher.OutboundMessage) (string, error) {
	handle := r.Registry.Get(connectionID)
	if handle == nil {
		return "", fmt.Errorf("no registered handle for connection %d", connectionID)
	}
	return handle.Send(ctx, msg)
}

// CampaignEngine periodically picks up due campaigns and walks their contact
// lists, sending one rendered message per contact with randomized pacing.
type CampaignEngine struct {
	campaignRepo repository.CampaignRepository
	templateRepo repository.TemplateRepository
	contactRepo  repository.ContactRepository
	sentRepo     repository.SentMessageRepository
	sender       MessageSender
	db           *gorm.DB
	logger       *log.Logger
	interval     time.Duration
	cfg          config.CampaignConfig

	mu      sync.Mutex
	running map[uint]context.CancelFunc
}

func NewCampaignEngine(
	campaignRepo repository.CampaignRepository,
	templateRepo repository.TemplateRepository,
	contactRepo repository.ContactRepository,
	sentRepo repository.SentMessageRepository,
	sender MessageSender,
	db *gorm.DB,
	interval time.Duration,
	cfg config.CampaignConfig,
	logCfg config.LoggingConfig,
) *CampaignEngine {
	if interval <= 0 {
		interval = time.Minute
	}

	e := &CampaignEngine{
		campaignRepo: campaignRepo,
		templateRepo: templateRepo,
		contactRepo:  contactRepo,
		sentRepo:     sentRepo,
		sender:       sender,
		db:           db,
		interval:     interval,
		cfg:          cfg,
		running:      make(map[uint]context.CancelFunc),
	}
	e.initLogger(logCfg)
	return e
}

// initLogger writes engine logs to stdout and a size-rotated file.
func (e *CampaignEngine) initLogger(cfg config.LoggingConfig) {
	dir := cfg.Dir
	if dir == "" {
		dir = "data"
	}
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "campaign_engine.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	e.logger = log.New(mw, "engine ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the engine loop in a background goroutine and returns a stop
// function.
func (e *CampaignEngine) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		e.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (e *CampaignEngine) runOnce(ctx context.Context) {
	due, err := e.campaignRepo.ListDue(ctx, 50)
	if err != nil {
		e.logger.Printf("engine: list due campaigns failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	e.logger.Printf("engine: %d campaigns due", len(due))

	for _, camp := range due {
		c := camp
		if e.isRunning(c.ID) {
			continue
		}
		go func() {
			if err := e.Run(ctx, &c); err != nil {
				e.logger.Printf("engine: campaign id=%d failed: %v", c.ID, err)
			}
		}()
	}
}

func (e *CampaignEngine) isRunning(campaignID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[campaignID]
	return ok
}

func (e *CampaignEngine) track(campaignID uint, cancel context.CancelFunc) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.running[campaignID]; ok {
		return false
	}
	e.running[campaignID] = cancel
	return true
}

func (e *CampaignEngine) untrack(campaignID uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, campaignID)
}

// Cancel stops an in-flight campaign loop. The campaign status change is the
// caller's responsibility; the loop notices the cancellation before the next
// contact.
func (e *CampaignEngine) Cancel(campaignID uint) bool {
	e.mu.Lock()
	cancel, ok := e.running[campaignID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Run executes one campaign from start to finish. It is exported so a flow
// can start a draft campaign immediately instead of waiting for the ticker.
func (e *CampaignEngine) Run(parent context.Context, campaign *models.Campaign) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	if !e.track(campaign.ID, cancel) {
		return fmt.Errorf("campaign %d is already running", campaign.ID)
	}
	defer e.untrack(campaign.ID)

	if !campaign.CanTransitionTo(models.CampaignStatusInProgress) {
		return fmt.Errorf("campaign %d cannot start from status %s", campaign.ID, campaign.Status)
	}

	template, err := e.templateRepo.ByID(ctx, campaign.TemplateID)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	if template == nil {
		return fmt.Errorf("template %d not found", campaign.TemplateID)
	}

	contacts, err := e.contactRepo.ListByIDs(ctx, campaign.ContactIDs)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}

	campaign.Status = models.CampaignStatusInProgress
	campaign.StartedAt = utils.UTCNowPtr()
	campaign.TotalMessages = len(contacts)
	if err := e.campaignRepo.Update(ctx, campaign); err != nil {
		return fmt.Errorf("mark in progress: %w", err)
	}
	e.logger.Printf("engine: campaign id=%d started contacts=%d", campaign.ID, len(contacts))

	for i, contact := range contacts {
		select {
		case <-ctx.Done():
			e.logger.Printf("engine: campaign id=%d canceled after %d contacts", campaign.ID, i)
			return e.finish(campaign, models.CampaignStatusCanceled)
		default:
		}

		// Every send waits out the pacing delay first, the initial one
		// included, so the outbound rate never spikes.
		if err := e.pace(ctx, campaign); err != nil {
			e.logger.Printf("engine: campaign id=%d canceled while pacing", campaign.ID)
			return e.finish(campaign, models.CampaignStatusCanceled)
		}

		if err := e.sendToContact(ctx, campaign, template, &contact); err != nil {
			// One bad contact must not kill the campaign.
			e.logger.Printf("engine: campaign id=%d contact id=%d send failed: %v", campaign.ID, contact.ID, err)
		}
	}

	e.logger.Printf("engine: campaign id=%d completed", campaign.ID)
	return e.finish(campaign, models.CampaignStatusCompleted)
}

func (e *CampaignEngine) finish(campaign *models.Campaign, status models.CampaignStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fresh, err := e.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("campaign %d vanished", campaign.ID)
	}
	if !fresh.CanTransitionTo(status) {
		// Already canceled or completed elsewhere.
		return nil
	}
	fresh.Status = status
	fresh.CompletedAt = utils.UTCNowPtr()
	return e.campaignRepo.Update(ctx, fresh)
}

// pace sleeps a uniform random interval between the campaign bounds, waking
// up early on cancellation.
func (e *CampaignEngine) pace(ctx context.Context, campaign *models.Campaign) error {
	minSeconds := campaign.MinIntervalSeconds
	maxSeconds := campaign.MaxIntervalSeconds
	if minSeconds <= 0 {
		minSeconds = e.cfg.DefaultMinIntervalSeconds
	}
	if maxSeconds <= 0 {
		maxSeconds = e.cfg.DefaultMaxIntervalSeconds
	}
	delay := pacingDelay(minSeconds, maxSeconds)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *CampaignEngine) sendToContact(ctx context.Context, campaign *models.Campaign, template *models.Template, contact *models.Contact) error {
	msg := e.buildMessage(template, contact)

	trackingID, sendErr := e.sender.Send(ctx, campaign.ConnectionID, msg)

	campaignID := campaign.ID
	contactID := contact.ID
	record := &models.SentMessage{
		ConnectionID: campaign.ConnectionID,
		CampaignID:   &campaignID,
		ContactID:    &contactID,
		Recipient:    contact.PhoneNumber,
		Kind:         msg.Kind,
		Body:         msg.Body,
	}

	counter := "sent_messages"
	switch {
	case sendErr != nil && trackingID == "":
		record.TrackingID = fmt.Sprintf("failed-%d-%d-%d", campaign.ID, contact.ID, time.Now().UnixNano())
		record.Status = models.MessageStatusFailed
		record.FailReason = utils.ToPtr(sendErr.Error())
		counter = "failed_messages"
	default:
		// A tracking id alongside a send error means the handle kept the
		// message queued for retry; record it like any other queued send.
		record.TrackingID = trackingID
		record.Status = models.MessageStatusPending
		if sendErr == nil && !strings.HasPrefix(trackingID, dispatcher.QueuedIDPrefix) {
			record.Status = models.MessageStatusSent
		}
	}

	if err := repository.WithTransaction(ctx, e.db, func(txCtx context.Context) error {
		if err := e.sentRepo.Save(txCtx, record); err != nil {
			return err
		}
		return e.campaignRepo.IncrementCounter(txCtx, campaign.ID, counter, 1)
	}); err != nil {
		return fmt.Errorf("persist sent message: %w", err)
	}

	now := time.Now().UTC()
	contact.LastMessageAt = &now
	if err := e.contactRepo.Update(ctx, contact); err != nil {
		e.logger.Printf("engine: update contact id=%d failed: %v", contact.ID, err)
	}

	return sendErr
}

// buildMessage renders the template for one contact. A media template whose
// attachment is missing degrades to a plain text message.
func (e *CampaignEngine) buildMessage(template *models.Template, contact *models.Contact) dispatcher.OutboundMessage {
	body := RenderTemplate(template.Content, contact.TemplateVars())

	msg := dispatcher.OutboundMessage{
		To:   contact.PhoneNumber,
		Kind: models.MediaTypeText,
		Body: body,
	}
	if !template.HasMedia() {
		return msg
	}

	msg.Kind = *template.MediaType
	if msg.Kind == models.MediaTypeText {
		// A text-typed template with an attachment is inconsistent data;
		// treat the attachment as an image.
		msg.Kind = models.MediaTypeImage
	}
	if template.MediaMime != nil {
		msg.MimeType = *template.MediaMime
	}
	if template.FileName != nil {
		msg.FileName = *template.FileName
	}
	if msg.Kind == models.MediaTypeAudio {
		// Audio messages carry no caption.
		msg.Body = ""
	}

	ref := *template.MediaRef
	if strings.HasPrefix(ref, "data:") {
		if idx := strings.Index(ref, ";base64,"); idx >= 0 {
			if decoded, err := base64.StdEncoding.DecodeString(ref[idx+len(";base64,"):]); err == nil {
				msg.Media = decoded
				return msg
			}
		}
	}
	msg.MediaRef = ref
	return msg
}
