package dispatcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	qrCode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/utils"
)

// DirectTransportConfig wires a DirectTransport to one connection and its
// session store on disk.
type DirectTransportConfig struct {
	ConnectionID uint
	PhoneNumber  string
	CountryCode  string
	StoreDir     string
	Events       EventSink
	// OnState receives transport up/down notifications; usually the owning
	// handle's HandleTransportState.
	OnState func(connected bool)
}

// DirectTransport drives an embedded whatsmeow client with a per-connection
// sqlite session store.
type DirectTransport struct {
	cfg DirectTransportConfig

	mu     sync.Mutex
	client *whatsmeow.Client
}

func NewDirectTransport(cfg DirectTransportConfig) *DirectTransport {
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	return &DirectTransport{cfg: cfg}
}

func (d *DirectTransport) Mode() TransportMode { return TransportModeDirect }

func (d *DirectTransport) storePath() string {
	return filepath.Join(d.cfg.StoreDir, fmt.Sprintf("connection-%d.db", d.cfg.ConnectionID))
}

func (d *DirectTransport) getClient() *whatsmeow.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client
}

// Connect opens the session store, builds the client and establishes the
// session. When no credentials are stored yet it emits QR codes through the
// event sink and blocks until pairing succeeds, fails or ctx expires.
func (d *DirectTransport) Connect(ctx context.Context) error {
	d.mu.Lock()
	if d.client != nil && d.client.IsConnected() {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if err := os.MkdirAll(d.cfg.StoreDir, 0o755); err != nil {
		return fmt.Errorf("create session store dir: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite3", "file:"+d.storePath()+"?_foreign_keys=on", nil)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	client.EnableAutoReconnect = false
	client.AddEventHandler(d.handleEvent)

	d.mu.Lock()
	d.client = client
	d.mu.Unlock()

	if client.Store.ID == nil {
		return d.pair(ctx, client)
	}

	return client.Connect()
}

// pair runs the QR pairing flow for a device without stored credentials.
func (d *DirectTransport) pair(ctx context.Context, client *whatsmeow.Client) error {
	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("open qr channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect for pairing: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ErrPairingTimeout
		case evt, ok := <-qrChan:
			if !ok {
				return ErrPairingTimeout
			}
			switch evt.Event {
			case "code":
				png, err := qrCode.Encode(evt.Code, qrCode.Medium, 256)
				if err != nil {
					return fmt.Errorf("encode qr code: %w", err)
				}
				dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
				d.cfg.Events.OnQRCode(d.cfg.ConnectionID, dataURL)
			case whatsmeow.QRChannelSuccess.Event:
				d.cfg.Events.OnPaired(d.cfg.ConnectionID, d.cfg.PhoneNumber)
				return nil
			case whatsmeow.QRChannelTimeout.Event:
				return ErrPairingTimeout
			case "error":
				if evt.Error != nil {
					return evt.Error
				}
				return errors.New("qr pairing failed")
			}
		}
	}
}

func (d *DirectTransport) Disconnect(ctx context.Context) error {
	client := d.getClient()
	if client == nil {
		return nil
	}
	client.Disconnect()
	return nil
}

func (d *DirectTransport) Connected() bool {
	client := d.getClient()
	return client != nil && client.IsConnected() && client.IsLoggedIn()
}

// Logout drops the stored credentials so the next connect pairs again.
func (d *DirectTransport) Logout(ctx context.Context) error {
	client := d.getClient()
	if client == nil {
		return ErrNotConnected
	}
	if err := client.Logout(ctx); err != nil {
		client.Disconnect()
		if client.Store != nil {
			return client.Store.Delete(ctx)
		}
		return err
	}
	return nil
}

func (d *DirectTransport) handleEvent(evt any) {
	switch e := evt.(type) {
	case *events.Connected:
		if d.cfg.OnState != nil {
			d.cfg.OnState(true)
		}
	case *events.Disconnected:
		if d.cfg.OnState != nil {
			d.cfg.OnState(false)
		}
	case *events.LoggedOut:
		if client := d.getClient(); client != nil {
			client.Disconnect()
		}
		if d.cfg.OnState != nil {
			d.cfg.OnState(false)
		}
	case *events.Message:
		if e.Info.IsFromMe {
			return
		}
		d.cfg.Events.OnMessageReceived(d.cfg.ConnectionID, e.Info.Sender.User, e.Info.Timestamp)
	case *events.Receipt:
		// Delivery receipts carry ack level 2, read receipts level 3.
		code := 2
		if e.Type == events.ReceiptTypeRead || e.Type == events.ReceiptTypeReadSelf {
			code = 3
		}
		status := models.MapAckCode(code)
		for _, msgID := range e.MessageIDs {
			d.cfg.Events.OnMessageStatus(d.cfg.ConnectionID, string(msgID), status, "")
		}
	}
}

// recipientJID resolves the destination phone number to a verified JID.
func (d *DirectTransport) recipientJID(ctx context.Context, client *whatsmeow.Client, phone string) (types.JID, error) {
	number := utils.CanonicalNumber(phone, d.cfg.CountryCode)
	infos, err := client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return types.EmptyJID, fmt.Errorf("verify recipient: %w", err)
	}
	if len(infos) == 0 || !infos[0].IsIn {
		return types.EmptyJID, ErrNumberNotFound
	}
	return infos[0].JID, nil
}

func (d *DirectTransport) SendMessage(ctx context.Context, msg OutboundMessage) (string, error) {
	client := d.getClient()
	if client == nil || !client.IsConnected() {
		return "", ErrNotConnected
	}

	jid, err := d.recipientJID(ctx, client, msg.To)
	if err != nil {
		return "", err
	}

	content, err := d.buildContent(ctx, client, msg)
	if err != nil {
		return "", err
	}

	extra := whatsmeow.SendRequestExtra{ID: client.GenerateMessageID()}
	if _, err := client.SendMessage(ctx, jid, content, extra); err != nil {
		return "", err
	}
	return string(extra.ID), nil
}

func (d *DirectTransport) buildContent(ctx context.Context, client *whatsmeow.Client, msg OutboundMessage) (*waE2E.Message, error) {
	if msg.Kind == models.MediaTypeText || msg.Kind == "" {
		return &waE2E.Message{Conversation: proto.String(msg.Body)}, nil
	}

	media := msg.Media
	if len(media) == 0 {
		data, err := os.ReadFile(msg.MediaRef)
		if err != nil {
			return nil, fmt.Errorf("read media: %w", err)
		}
		media = data
	}

	switch msg.Kind {
	case models.MediaTypeImage:
		uploaded, err := client.Upload(ctx, media, whatsmeow.MediaImage)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		return &waE2E.Message{
			ImageMessage: &waE2E.ImageMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(msg.MimeType),
				Caption:       proto.String(msg.Body),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	case models.MediaTypeVideo:
		uploaded, err := client.Upload(ctx, media, whatsmeow.MediaVideo)
		if err != nil {
			return nil, fmt.Errorf("upload video: %w", err)
		}
		return &waE2E.Message{
			VideoMessage: &waE2E.VideoMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(msg.MimeType),
				Caption:       proto.String(msg.Body),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	case models.MediaTypeAudio:
		uploaded, err := client.Upload(ctx, media, whatsmeow.MediaAudio)
		if err != nil {
			return nil, fmt.Errorf("upload audio: %w", err)
		}
		// Audio messages carry no caption.
		return &waE2E.Message{
			AudioMessage: &waE2E.AudioMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(msg.MimeType),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	case models.MediaTypeDocument:
		uploaded, err := client.Upload(ctx, media, whatsmeow.MediaDocument)
		if err != nil {
			return nil, fmt.Errorf("upload document: %w", err)
		}
		return &waE2E.Message{
			DocumentMessage: &waE2E.DocumentMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(msg.MimeType),
				FileName:      proto.String(msg.FileName),
				Caption:       proto.String(msg.Body),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	default:
		return nil, ErrUnknownMediaKind
	}
}

func (d *DirectTransport) CheckNumber(ctx context.Context, phone string) (bool, error) {
	client := d.getClient()
	if client == nil || !client.IsConnected() {
		return false, ErrNotConnected
	}
	number := utils.CanonicalNumber(phone, d.cfg.CountryCode)
	infos, err := client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return false, err
	}
	return len(infos) > 0 && infos[0].IsIn, nil
}
