// internal/channels/email.go
package channels

import (
	"context"
	"errors"

	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the slice of the SES client the email sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender delivers email through Amazon SES.
type EmailSender struct {
	client    SESAPI
	fromEmail string
}

func NewEmailSender(client SESAPI, fromEmail string) *EmailSender {
	return &EmailSender{client: client, fromEmail: fromEmail}
}

func (s *EmailSender) Channel() string { return models.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return "", classifySESError(err)
	}
	return aws.ToString(out.MessageId), nil
}

// classifySESError splits SES failures into permanent rejections and
// retryable transport errors.
func classifySESError(err error) error {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return engineerrors.NewSendRejectedError(err.Error())
	}
	var notVerified *types.MailFromDomainNotVerifiedException
	if errors.As(err, &notVerified) {
		return engineerrors.NewSendRejectedError(err.Error())
	}
	return engineerrors.NewSendFailedError(err.Error())
}
