package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	doFn    func(req *HTTPRequest) (*HTTPResponse, error)
	lastReq *HTTPRequest
}

func (m *mockHTTPClient) Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	m.lastReq = req
	if m.doFn != nil {
		return m.doFn(req)
	}
	return &HTTPResponse{StatusCode: 200}, nil
}

func TestSendGrid_buildPayload(t *testing.T) {
	sg := &SendGrid{}
	msg := &Message{
		From:     "noreply@acme.example",
		FromName: "Acme",
		To:       "a@example.com",
		Subject:  "Test",
		TextBody: "text part",
		HTMLBody: "<h1>Hello</h1>",
		ReplyTo:  "support@acme.example",
		Tags:     []string{"invoice"},
	}

	payload := sg.buildPayload(msg)

	if len(payload.Personalizations) != 1 || len(payload.Personalizations[0].To) != 1 {
		t.Fatalf("expected one personalization with one recipient, got %+v", payload.Personalizations)
	}
	if payload.Personalizations[0].To[0].Email != "a@example.com" {
		t.Errorf("unexpected recipient: %s", payload.Personalizations[0].To[0].Email)
	}
	if len(payload.Content) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(payload.Content))
	}
	// text/plain must come before text/html.
	if payload.Content[0].Type != "text/plain" || payload.Content[1].Type != "text/html" {
		t.Errorf("unexpected content ordering: %s, %s", payload.Content[0].Type, payload.Content[1].Type)
	}
	if payload.From.Name != "Acme" {
		t.Errorf("expected from name Acme, got %s", payload.From.Name)
	}
	if payload.ReplyTo == nil || payload.ReplyTo.Email != "support@acme.example" {
		t.Errorf("unexpected reply_to: %+v", payload.ReplyTo)
	}
	if len(payload.Categories) != 1 || payload.Categories[0] != "invoice" {
		t.Errorf("unexpected categories: %v", payload.Categories)
	}
}

func TestSendGrid_buildPayload_TextOnly(t *testing.T) {
	sg := &SendGrid{}
	payload := sg.buildPayload(&Message{
		From:     "noreply@acme.example",
		To:       "a@example.com",
		Subject:  "Hi",
		TextBody: "body",
	})

	if len(payload.Content) != 1 {
		t.Fatalf("expected 1 content part, got %d", len(payload.Content))
	}
	if payload.Content[0].Type != "text/plain" || payload.Content[0].Value != "body" {
		t.Errorf("unexpected content: %+v", payload.Content[0])
	}
	if payload.ReplyTo != nil {
		t.Errorf("expected nil reply_to, got %+v", payload.ReplyTo)
	}
}

func TestSendGrid_Send_Success(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(req *HTTPRequest) (*HTTPResponse, error) {
			return &HTTPResponse{
				StatusCode: 202,
				Headers:    map[string]string{"X-Message-Id": "sg-msg-42"},
			}, nil
		},
	}
	sg := NewSendGrid(Config{Name: "sendgrid", APIKey: "key"}, client)

	result, err := sg.Send(context.Background(), &Message{
		From: "noreply@acme.example", To: "a@example.com", Subject: "Hi", TextBody: "body",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProviderMessageID != "sg-msg-42" {
		t.Errorf("expected provider message ID sg-msg-42, got %s", result.ProviderMessageID)
	}

	if client.lastReq.URL != sendgridDefaultEndpoint+sendgridSendPath {
		t.Errorf("unexpected request URL: %s", client.lastReq.URL)
	}
	if client.lastReq.Headers["Authorization"] != "Bearer key" {
		t.Errorf("unexpected auth header: %s", client.lastReq.Headers["Authorization"])
	}

	var payload sendgridPayload
	if err := json.Unmarshal(client.lastReq.Body, &payload); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if payload.Subject != "Hi" {
		t.Errorf("expected subject Hi, got %s", payload.Subject)
	}
}

func TestSendGrid_Send_RateLimited(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(req *HTTPRequest) (*HTTPResponse, error) {
			return &HTTPResponse{StatusCode: 429, Body: []byte("too many requests")}, nil
		},
	}
	sg := NewSendGrid(Config{Name: "sendgrid", APIKey: "key"}, client)

	_, err := sg.Send(context.Background(), &Message{From: "f@x.com", To: "t@x.com", Subject: "s", TextBody: "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if pe.Kind != ErrorKindRateLimited {
		t.Errorf("expected rate_limited, got %s", pe.Kind)
	}
}

func TestSendGrid_Send_ServerError(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(req *HTTPRequest) (*HTTPResponse, error) {
			return &HTTPResponse{StatusCode: 500, Body: []byte("internal error")}, nil
		},
	}
	sg := NewSendGrid(Config{Name: "sendgrid", APIKey: "key"}, client)

	_, err := sg.Send(context.Background(), &Message{From: "f@x.com", To: "t@x.com", Subject: "s", TextBody: "b"})
	if Classify(err) != ErrorKindTransient {
		t.Errorf("expected transient classification, got %s", Classify(err))
	}
}

func TestSendGrid_Send_NetworkErrorIsTransient(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(req *HTTPRequest) (*HTTPResponse, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	sg := NewSendGrid(Config{Name: "sendgrid", APIKey: "key"}, client)

	_, err := sg.Send(context.Background(), &Message{From: "f@x.com", To: "t@x.com", Subject: "s", TextBody: "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err) != ErrorKindTransient {
		t.Errorf("expected transient classification, got %s", Classify(err))
	}
}
