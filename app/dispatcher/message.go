package dispatcher

import (
	"strings"

	"github.com/revendapro/zap-dispatcher/models"
)

// OutboundMessage is a single message handed to a transport for delivery.
// To holds the raw phone number; transports canonicalize it before sending.
type OutboundMessage struct {
	To       string
	Kind     models.MediaType
	Body     string
	Media    []byte
	MediaRef string
	MimeType string
	FileName string
}

func (m OutboundMessage) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrEmptyRecipient
	}
	switch m.Kind {
	case models.MediaTypeText, "":
		if strings.TrimSpace(m.Body) == "" {
			return ErrEmptyMessage
		}
	case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeDocument, models.MediaTypeAudio:
		if len(m.Media) == 0 && strings.TrimSpace(m.MediaRef) == "" {
			return ErrMissingMedia
		}
	default:
		return ErrUnknownMediaKind
	}
	return nil
}

// HasCaption reports whether the message kind carries a text caption.
// Audio messages never do.
func (m OutboundMessage) HasCaption() bool {
	switch m.Kind {
	case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeDocument:
		return m.Body != ""
	default:
		return false
	}
}
