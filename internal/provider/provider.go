package provider

import (
	"context"
	"time"
)

// Provider defines the interface for sending email through a vendor API.
type Provider interface {
	// Send delivers a message through the vendor and returns a delivery result.
	Send(ctx context.Context, msg *Message) (*DeliveryResult, error)
	// GetName returns the provider's identifier (e.g., "sendgrid", "resend").
	GetName() string
}

// HTTPClient abstracts HTTP operations for testability. The context bounds
// the request; the dispatcher passes its per-send deadline through here.
type HTTPClient interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// HTTPRequest represents an outgoing HTTP request.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse represents an HTTP response from a vendor API.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Message is the canonical send request, independent of any vendor schema.
type Message struct {
	ID       string
	TenantID string
	From     string
	FromName string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
	Tags     []string
}

// DeliveryResult contains the outcome of an accepted send.
type DeliveryResult struct {
	// ProviderMessageID is the vendor-assigned identifier used to correlate
	// later webhook events back to the queue item.
	ProviderMessageID string
	Timestamp         time.Time
}
