package dispatcher

import "context"

// TransportMode selects how messages reach WhatsApp.
type TransportMode string

const (
	// TransportModeAuto tries the HTTP gateway first and falls back to the
	// embedded client when the gateway is unavailable.
	TransportModeAuto TransportMode = "auto"
	// TransportModeDirect uses the embedded whatsmeow client.
	TransportModeDirect TransportMode = "direct"
	// TransportModeServer delegates to an external WPPConnect-style gateway.
	TransportModeServer TransportMode = "server"
)

func (m TransportMode) Valid() bool {
	switch m {
	case TransportModeAuto, TransportModeDirect, TransportModeServer:
		return true
	}
	return false
}

// Transport is a single concrete delivery channel for one connection.
type Transport interface {
	// Mode identifies the transport. Never returns TransportModeAuto.
	Mode() TransportMode
	// Connect establishes the session, driving pairing when the session has
	// no stored credentials. Blocks until connected, paired or failed.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool
	// SendMessage delivers one message and returns the provider message id.
	SendMessage(ctx context.Context, msg OutboundMessage) (string, error)
	// CheckNumber reports whether the phone number has a WhatsApp account.
	CheckNumber(ctx context.Context, phone string) (bool, error)
}
