package dispatcher

import "errors"

var (
	ErrNotConnected     = errors.New("connection is not established")
	ErrConnecting       = errors.New("connection attempt already in progress")
	ErrQuotaExceeded    = errors.New("daily message quota exceeded")
	ErrPairingTimeout   = errors.New("pairing was not confirmed in time")
	ErrNumberNotFound   = errors.New("recipient is not registered on whatsapp")
	ErrEmptyMessage     = errors.New("message has no content")
	ErrEmptyRecipient   = errors.New("message has no recipient")
	ErrMissingMedia     = errors.New("media message has no media reference")
	ErrHandleClosed     = errors.New("connection handle is closed")
	ErrReconnectFailed  = errors.New("reconnect attempts exhausted")
	ErrUnknownTransport = errors.New("unknown transport mode")
	ErrUnknownMediaKind = errors.New("unknown media kind")
)
