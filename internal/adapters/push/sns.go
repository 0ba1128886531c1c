package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"vaquita/internal/adapters/awsclient"
	"vaquita/internal/domain"
)

// SenderConfig selects the push provider.
type SenderConfig struct {
	Provider string
	AWS      awsclient.Config
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSender returns a PushSender. Provider "sns" publishes to SNS platform
// endpoints; "noop" or unknown only logs.
func NewSender(config SenderConfig, logger *slog.Logger) domain.PushSender {
	switch config.Provider {
	case "sns":
		return &snsSender{client: sns.NewFromConfig(config.AWS.AWS()), logger: logger}
	case "noop":
		return &noopSender{logger: logger}
	default:
		logger.Warn("unknown push provider, using noop", "provider", config.Provider)
		return &noopSender{logger: logger}
	}
}

type snsSender struct {
	client snsAPI
	logger *slog.Logger
}

// Send publishes n to the endpoint ARN using per-platform payloads.
func (s *snsSender) Send(ctx context.Context, endpoint string, n domain.Notification) error {
	message, err := platformMessage(n)
	if err != nil {
		return err
	}
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(endpoint),
		Message:          aws.String(message),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return fmt.Errorf("failed to publish push via SNS: %w", err)
	}
	s.logger.DebugContext(ctx, "push published via SNS", "message_id", aws.ToString(out.MessageId))
	return nil
}

type fcmPayload struct {
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data map[string]string `json:"data,omitempty"`
}

type apnsPayload struct {
	APS struct {
		Alert struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"alert"`
	} `json:"aps"`
	Data map[string]string `json:"data,omitempty"`
}

// platformMessage builds the SNS "json" message structure: each platform key
// carries its own payload encoded as a string.
func platformMessage(n domain.Notification) (string, error) {
	var fcm fcmPayload
	fcm.Notification.Title = n.Title
	fcm.Notification.Body = n.Body
	fcm.Data = n.Data

	var apns apnsPayload
	apns.APS.Alert.Title = n.Title
	apns.APS.Alert.Body = n.Body
	apns.Data = n.Data

	gcmJSON, err := json.Marshal(fcm)
	if err != nil {
		return "", err
	}
	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", err
	}
	message, err := json.Marshal(map[string]string{
		"default":      n.Body,
		"GCM":          string(gcmJSON),
		"APNS":         string(apnsJSON),
		"APNS_SANDBOX": string(apnsJSON),
	})
	if err != nil {
		return "", err
	}
	return string(message), nil
}

type noopSender struct {
	logger *slog.Logger
}

func (n *noopSender) Send(ctx context.Context, endpoint string, notification domain.Notification) error {
	n.logger.InfoContext(ctx, "push would be sent (noop)", "endpoint", endpoint, "title", notification.Title)
	return nil
}
