// internal/common/aws/notifier.go
package aws

import (
	"context"
	"strconv"
	"time"

	"jelita/internal/common/config"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/models"
)

// Notifier delivers notifications over SES e-mail and SNS. A channel without
// a client reports DeliveryDisabled instead of failing.
type Notifier struct {
	email  *SESClient
	topic  *SNSClient
	logger logger.Logger
	now    func() time.Time
}

func NewNotifier(email *SESClient, topic *SNSClient, log logger.Logger) *Notifier {
	return &Notifier{email: email, topic: topic, logger: log, now: time.Now}
}

// NewNotifierFromConfig builds only the channels enabled in cfg.
func NewNotifierFromConfig(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := NewNotifier(nil, nil, log)
	if cfg.AWS.SES.Enabled {
		c, err := NewSESClient(ctx, cfg.AWS.Region, cfg.AWS.SES.FromEmail)
		if err != nil {
			return nil, err
		}
		n.email = c
	}
	if cfg.AWS.SNS.Enabled && cfg.AWS.SNS.TopicARN != "" {
		c, err := NewSNSClient(ctx, cfg.AWS.Region, cfg.AWS.SNS.TopicARN)
		if err != nil {
			return nil, err
		}
		n.topic = c
	}
	return n, nil
}

// Deliver attempts n once and returns it with Status, MessageID and SentAt filled.
func (n *Notifier) Deliver(ctx context.Context, note models.Notification) (models.Notification, error) {
	var (
		id  string
		err error
	)
	switch note.Channel {
	case models.ChannelEmail:
		if n.email == nil || note.Recipient == "" {
			note.Status = models.DeliveryDisabled
			return note, nil
		}
		id, err = n.email.SendText(ctx, note.Recipient, note.Subject, note.Body)
	case models.ChannelSNS:
		if n.topic == nil {
			note.Status = models.DeliveryDisabled
			return note, nil
		}
		id, err = n.topic.Publish(ctx, note.Subject, note.Body, map[string]string{
			"permohonan_id": strconv.FormatInt(note.PermohonanID, 10),
		})
	default:
		note.Status = models.DeliveryDisabled
		return note, nil
	}

	if err != nil {
		note.Status = models.DeliveryFailed
		return note, apperrors.NewNotificationSendFailedError(note.Channel, err)
	}

	sentAt := n.now()
	note.Status = models.DeliverySent
	note.MessageID = id
	note.SentAt = &sentAt
	n.logger.Info("notification delivered", map[string]interface{}{
		"channel":      note.Channel,
		"permohonanId": note.PermohonanID,
		"messageId":    id,
	})
	return note, nil
}
