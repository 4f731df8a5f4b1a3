package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	resendDefaultEndpoint = "https://api.resend.com"
	resendSendPath        = "/emails"
)

// Resend implements the Provider interface for the Resend REST API.
type Resend struct {
	apiKey   string
	endpoint string
	client   HTTPClient
}

// NewResend creates a Resend provider from the given configuration.
func NewResend(cfg Config, client HTTPClient) *Resend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = resendDefaultEndpoint
	}
	return &Resend{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		client:   client,
	}
}

func (r *Resend) GetName() string { return "resend" }

// Send delivers a message via the Resend /emails API. The provider message
// ID comes from the "id" field of the JSON response body.
func (r *Resend) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	payload := r.buildPayload(msg)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("resend: marshal request: %w", err)
	}

	resp, err := r.client.Do(ctx, &HTTPRequest{
		Method: "POST",
		URL:    r.endpoint + resendSendPath,
		Headers: map[string]string{
			"Authorization": "Bearer " + r.apiKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("resend: send request: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var result resendSendResponse
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			return nil, fmt.Errorf("resend: decode response: %w", err)
		}
		return &DeliveryResult{
			ProviderMessageID: result.ID,
			Timestamp:         time.Now(),
		}, nil
	}

	return nil, ClassifyHTTPError("resend", resp.StatusCode, string(resp.Body))
}

// resendPayload matches the Resend send-email JSON schema.
type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Tags    []resendTag `json:"tags,omitempty"`
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

func (r *Resend) buildPayload(msg *Message) resendPayload {
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	payload := resendPayload{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
		ReplyTo: msg.ReplyTo,
	}

	for _, tag := range msg.Tags {
		payload.Tags = append(payload.Tags, resendTag{Name: "tag", Value: tag})
	}

	return payload
}
