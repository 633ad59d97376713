// internal/models/notification.go
package models

import "time"

const (
	ChannelEmail = "email"
	ChannelSNS   = "sns"

	DeliverySent     = "sent"
	DeliveryFailed   = "failed"
	DeliveryDisabled = "disabled"
)

// Notification records one delivery attempt of a survey invitation.
type Notification struct {
	PermohonanID int64      `json:"permohonan_id"`
	Recipient    string     `json:"recipient,omitempty"`
	Channel      string     `json:"channel"`
	Status       string     `json:"status"`
	MessageID    string     `json:"message_id,omitempty"`
	Subject      string     `json:"subject"`
	Body         string     `json:"-"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
}
