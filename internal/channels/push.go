// internal/channels/push.go
package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"reminder-engine/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// PushSender delivers mobile push through Amazon SNS platform endpoints.
// The recipient is the device's endpoint ARN.
type PushSender struct {
	client SNSAPI
}

func NewPushSender(client SNSAPI) *PushSender {
	return &PushSender{client: client}
}

func (s *PushSender) Channel() string { return models.ChannelPush }

func (s *PushSender) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"title":   subject,
		"message": body,
	})
	if err != nil {
		return "", fmt.Errorf("marshal push payload: %w", err)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(recipient),
		Message:   aws.String(string(payload)),
	})
	if err != nil {
		return "", classifySNSError(err)
	}
	return aws.ToString(out.MessageId), nil
}
