// Package domain contains core concepts of the chat relay.
// This file defines the payload carried inside every envelope.
package domain

import (
	"chat-relay/errors"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Payload is the plaintext relayed over the bus, one per envelope.
// ID is the idempotency key stamped by the gateway; peers that don't know
// about it simply leave it empty.
type Payload struct {
	ID     string `json:"id,omitempty"`
	RoomID RoomID `json:"room_id"`
	Text   string `json:"text"`
}

// NewPayload builds a payload with a fresh idempotency key.
func NewPayload(roomID RoomID, text string) Payload {
	return Payload{ID: uuid.NewString(), RoomID: roomID, Text: text}
}

// Reply keeps the room and derives a new key so the response is tracked
// independently of the request.
func (p Payload) Reply(text string) Payload {
	return Payload{ID: uuid.NewString(), RoomID: p.RoomID, Text: text}
}

func (p Payload) Validate() error {
	if p.RoomID.IsZero() {
		return fmt.Errorf("%w: room_id is required", errors.ErrProtocol)
	}
	return nil
}

func (p Payload) Marshal() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParsePayload decodes and validates a plaintext payload.
func ParsePayload(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
