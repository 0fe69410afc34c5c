package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Envelope
	ErrFormat         = fmt.Errorf("malformed envelope")
	ErrAuthentication = fmt.Errorf("envelope authentication failed")

	// Relay
	ErrProtocol       = fmt.Errorf("payload violates relay protocol")
	ErrInvalidPayload = fmt.Errorf("payload cannot be decoded")
	ErrBusClosed      = fmt.Errorf("bus closed")

	// Collaborators
	ErrClassifier      = fmt.Errorf("classifier unavailable")
	ErrImageNotFound   = fmt.Errorf("image not found")
	ErrUnsupportedPair = fmt.Errorf("unsupported language pair")

	ErrConfiguration = fmt.Errorf("invalid configuration")
)
