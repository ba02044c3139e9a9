// internal/channels/whatsapp.go
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	engineerrors "reminder-engine/internal/common/errors"
	internalhttp "reminder-engine/internal/common/http"
	"reminder-engine/internal/models"
)

// WhatsAppSender delivers WhatsApp messages through a hosted Business API
// gateway. The recipient is an E.164 phone number.
type WhatsAppSender struct {
	client   *internalhttp.Client
	baseURL  string
	apiToken string
}

func NewWhatsAppSender(client *internalhttp.Client, baseURL, apiToken string) *WhatsAppSender {
	return &WhatsAppSender{client: client, baseURL: baseURL, apiToken: apiToken}
}

func (s *WhatsAppSender) Channel() string { return models.ChannelWhatsApp }

type whatsappRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

type whatsappResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *WhatsAppSender) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	reqBody := whatsappRequest{To: recipient, Type: "text"}
	reqBody.Text.Body = body

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.client.DoWithContext(ctx, req)
	if err != nil {
		return "", engineerrors.NewSendFailedError(err.Error())
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var parsed whatsappResponse
	_ = json.Unmarshal(respBytes, &parsed)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(parsed.Messages) > 0 {
			return parsed.Messages[0].ID, nil
		}
		return "", nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", engineerrors.NewSendThrottledError(gatewayDetail(resp.StatusCode, parsed))
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return "", engineerrors.NewSendFailedError(gatewayDetail(resp.StatusCode, parsed))
	default:
		// Remaining 4xx: bad recipient, unregistered number, bad token.
		return "", engineerrors.NewSendRejectedError(gatewayDetail(resp.StatusCode, parsed))
	}
}

func gatewayDetail(status int, parsed whatsappResponse) string {
	if parsed.Error.Message != "" {
		return fmt.Sprintf("gateway status %d: %s", status, parsed.Error.Message)
	}
	return fmt.Sprintf("gateway status %d", status)
}
