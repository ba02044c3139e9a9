// internal/channels/sms.go
package channels

import (
	"context"
	"errors"

	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the slice of the SNS client the SMS and push senders use.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender delivers SMS through Amazon SNS. The recipient is an E.164
// phone number.
type SMSSender struct {
	client   SNSAPI
	senderID string
}

func NewSMSSender(client SNSAPI, senderID string) *SMSSender {
	return &SMSSender{client: client, senderID: senderID}
}

func (s *SMSSender) Channel() string { return models.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(body),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", classifySNSError(err)
	}
	return aws.ToString(out.MessageId), nil
}

// classifySNSError splits SNS failures into permanent parameter/endpoint
// problems and retryable transport errors.
func classifySNSError(err error) error {
	var invalidParam *types.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return engineerrors.NewSendRejectedError(err.Error())
	}
	var invalidValue *types.InvalidParameterValueException
	if errors.As(err, &invalidValue) {
		return engineerrors.NewSendRejectedError(err.Error())
	}
	var disabled *types.EndpointDisabledException
	if errors.As(err, &disabled) {
		return engineerrors.NewSendRejectedError(err.Error())
	}
	var throttled *types.ThrottledException
	if errors.As(err, &throttled) {
		return engineerrors.NewSendThrottledError(err.Error())
	}
	return engineerrors.NewSendFailedError(err.Error())
}
