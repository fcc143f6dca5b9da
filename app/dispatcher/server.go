package dispatcher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/utils"
)

// ServerTransportConfig wires a ServerTransport to an external HTTP gateway.
type ServerTransportConfig struct {
	ConnectionID  uint
	SessionName   string
	PhoneNumber   string
	CountryCode   string
	NetworkSuffix string
	BaseURL       string
	Token         string
	Timeout       time.Duration
	// Pairing is confirmed by polling the session status this many times,
	// waiting PollInterval between polls.
	PollAttempts int
	PollInterval time.Duration
	Events       EventSink
	OnState      func(connected bool)
}

// ServerTransport delegates delivery to a WPPConnect-style HTTP gateway.
// Inbound messages and receipts reach this process through the gateway's
// webhook, not through this transport, so it only emits lifecycle and
// pairing events.
type ServerTransport struct {
	cfg    ServerTransportConfig
	client *http.Client

	mu        sync.Mutex
	connected bool
}

func NewServerTransport(cfg ServerTransportConfig) *ServerTransport {
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 30
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &ServerTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *ServerTransport) Mode() TransportMode { return TransportModeServer }

func (s *ServerTransport) setConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()
	if changed && s.cfg.OnState != nil {
		s.cfg.OnState(connected)
	}
}

func (s *ServerTransport) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type serverResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	QRCode   string          `json:"qrcode,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

type serverSendResponse struct {
	ID string `json:"id"`
}

type serverNumberStatus struct {
	NumberExists bool `json:"numberExists"`
}

func (s *ServerTransport) sessionURL(path string) string {
	return fmt.Sprintf("%s/api/%s/%s", s.cfg.BaseURL, s.cfg.SessionName, path)
}

func (s *ServerTransport) do(ctx context.Context, method, url string, reqBody any) (*serverResponse, error) {
	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway http status %d for %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed serverResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return &parsed, nil
}

// Connect starts the gateway session and polls its status until the session
// reports connected. QR codes returned while pairing are forwarded to the
// event sink.
func (s *ServerTransport) Connect(ctx context.Context) error {
	started, err := s.do(ctx, http.MethodPost, s.sessionURL("start-session"), map[string]any{
		"waitQrCode": false,
	})
	if err != nil {
		return err
	}
	if started.QRCode != "" {
		s.cfg.Events.OnQRCode(s.cfg.ConnectionID, started.QRCode)
	}

	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		status, err := s.do(ctx, http.MethodGet, s.sessionURL("status-session"), nil)
		if err != nil {
			return err
		}
		switch status.Status {
		case "CONNECTED":
			s.setConnected(true)
			s.cfg.Events.OnPaired(s.cfg.ConnectionID, s.cfg.PhoneNumber)
			return nil
		case "QRCODE":
			if status.QRCode != "" {
				s.cfg.Events.OnQRCode(s.cfg.ConnectionID, status.QRCode)
			}
		case "CLOSED", "DISCONNECTED":
			return ErrNotConnected
		}

		select {
		case <-ctx.Done():
			return ErrPairingTimeout
		case <-time.After(s.cfg.PollInterval):
		}
	}
	return ErrPairingTimeout
}

func (s *ServerTransport) Disconnect(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPost, s.sessionURL("close-session"), nil)
	s.setConnected(false)
	return err
}

// Logout closes the session and discards its credentials on the gateway.
func (s *ServerTransport) Logout(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPost, s.sessionURL("logout-session"), nil)
	s.setConnected(false)
	return err
}

func (s *ServerTransport) address(phone string) string {
	return utils.CanonicalAddress(phone, s.cfg.CountryCode, s.cfg.NetworkSuffix)
}

func (s *ServerTransport) SendMessage(ctx context.Context, msg OutboundMessage) (string, error) {
	if !s.Connected() {
		return "", ErrNotConnected
	}

	var (
		resp *serverResponse
		err  error
	)
	switch msg.Kind {
	case models.MediaTypeText, "":
		resp, err = s.do(ctx, http.MethodPost, s.sessionURL("send-message"), map[string]any{
			"phone":   s.address(msg.To),
			"message": msg.Body,
		})
	case models.MediaTypeImage:
		encoded, encErr := s.mediaBase64(msg)
		if encErr != nil {
			return "", encErr
		}
		resp, err = s.do(ctx, http.MethodPost, s.sessionURL("send-image"), map[string]any{
			"phone":    s.address(msg.To),
			"base64":   encoded,
			"caption":  msg.Body,
			"filename": msg.FileName,
		})
	case models.MediaTypeAudio:
		encoded, encErr := s.mediaBase64(msg)
		if encErr != nil {
			return "", encErr
		}
		resp, err = s.do(ctx, http.MethodPost, s.sessionURL("send-voice-base64"), map[string]any{
			"phone":     s.address(msg.To),
			"base64Ptt": encoded,
			"isGroup":   false,
		})
	case models.MediaTypeVideo, models.MediaTypeDocument:
		encoded, encErr := s.mediaBase64(msg)
		if encErr != nil {
			return "", encErr
		}
		resp, err = s.do(ctx, http.MethodPost, s.sessionURL("send-file-base64"), map[string]any{
			"phone":    s.address(msg.To),
			"base64":   encoded,
			"caption":  msg.Body,
			"filename": msg.FileName,
		})
	default:
		return "", ErrUnknownMediaKind
	}
	if err != nil {
		return "", err
	}

	var sent serverSendResponse
	if len(resp.Response) > 0 {
		if err := json.Unmarshal(resp.Response, &sent); err != nil {
			// Some gateway builds wrap the result in an array.
			var many []serverSendResponse
			if err := json.Unmarshal(resp.Response, &many); err == nil && len(many) > 0 {
				sent = many[0]
			}
		}
	}
	if sent.ID == "" {
		return "", fmt.Errorf("gateway accepted the message but returned no id")
	}
	return sent.ID, nil
}

// mediaBase64 encodes the message media, loading it from MediaRef when the
// raw bytes were not provided. A data URL prefix is added so the gateway can
// detect the mime type.
func (s *ServerTransport) mediaBase64(msg OutboundMessage) (string, error) {
	media := msg.Media
	if len(media) == 0 {
		data, err := os.ReadFile(msg.MediaRef)
		if err != nil {
			return "", fmt.Errorf("read media: %w", err)
		}
		media = data
	}
	mime := msg.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(media), nil
}

func (s *ServerTransport) CheckNumber(ctx context.Context, phone string) (bool, error) {
	if !s.Connected() {
		return false, ErrNotConnected
	}
	number := utils.CanonicalNumber(phone, s.cfg.CountryCode)
	resp, err := s.do(ctx, http.MethodGet, s.sessionURL("check-number-status/"+number), nil)
	if err != nil {
		return false, err
	}
	var status serverNumberStatus
	if len(resp.Response) > 0 {
		if err := json.Unmarshal(resp.Response, &status); err != nil {
			return false, fmt.Errorf("failed to decode number status: %w", err)
		}
	}
	return status.NumberExists, nil
}
