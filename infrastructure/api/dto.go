package api

import (
	"bytes"
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"strings"
)

// flexibleID accepts a JSON number or string, as clients send both.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

type moderateRequest struct {
	Content   string     `json:"content" validate:"max=100000"`
	ImageRef  string     `json:"image_ref"`
	ImagePath string     `json:"image_path"`
	ImageURL  string     `json:"image_url"`
	UserID    flexibleID `json:"user_id"`
	UserType  string     `json:"user_type" validate:"max=64"`
	RoomID    flexibleID `json:"room_id"`
}

// toDomain resolves the image reference: image_ref, then image_path, then image_url.
func (r moderateRequest) toDomain() domain.ModerationRequest {
	ref := r.ImageRef
	if ref == "" {
		ref = r.ImagePath
	}
	if ref == "" {
		ref = r.ImageURL
	}
	return domain.ModerationRequest{
		Content:  r.Content,
		ImageRef: strings.TrimSpace(ref),
		UserID:   string(r.UserID),
		UserType: r.UserType,
		RoomID:   domain.RoomID(r.RoomID),
	}
}

type translateRequest struct {
	Text        *string  `json:"text" validate:"required"`
	SourceLang  string   `json:"source_lang"`
	TargetLangs []string `json:"target_langs" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
