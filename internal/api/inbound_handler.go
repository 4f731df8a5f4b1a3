package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/fieldops/mailroom/internal/inbound"
	"github.com/fieldops/mailroom/internal/logger"
)

const maxInboundBodySize = 32 << 20 // 32 MiB

// InboundHandler receives inbound email posted by the mail ingress.
// Both multipart form posts (SendGrid inbound parse style) and JSON
// bodies are accepted.
type InboundHandler struct {
	service *inbound.Service
}

func NewInboundHandler(service *inbound.Service) *InboundHandler {
	return &InboundHandler{service: service}
}

// Receive handles POST /api/v1/inbound.
func (h *InboundHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var msg *inbound.Message
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		msg, err = parseMultipartInbound(r)
	} else {
		msg, err = parseJSONInbound(r)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid inbound payload")
		return
	}

	stored, err := h.service.Receive(r.Context(), msg)
	if err != nil {
		switch {
		case errors.Is(err, inbound.ErrUnknownDomain):
			respondError(w, http.StatusNotFound, "no tenant for recipient domain")
		case errors.Is(err, inbound.ErrMissingFields):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Msg("inbound receive failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": stored.ID.String()})
}

func parseJSONInbound(r *http.Request) (*inbound.Message, error) {
	var body struct {
		To          string            `json:"to"`
		From        string            `json:"from"`
		Subject     string            `json:"subject"`
		HTML        string            `json:"html"`
		Text        string            `json:"text"`
		Headers     map[string]string `json:"headers"`
		Attachments []struct {
			Filename string `json:"filename"`
			Content  []byte `json:"content"`
		} `json:"attachments"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxInboundBodySize))
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}

	msg := &inbound.Message{
		To:      body.To,
		From:    body.From,
		Subject: body.Subject,
		HTML:    body.HTML,
		Text:    body.Text,
		Headers: body.Headers,
	}
	for _, att := range body.Attachments {
		msg.Attachments = append(msg.Attachments, inbound.Attachment{
			Filename: att.Filename,
			Content:  att.Content,
		})
	}
	return msg, nil
}

func parseMultipartInbound(r *http.Request) (*inbound.Message, error) {
	if err := r.ParseMultipartForm(maxInboundBodySize); err != nil {
		return nil, err
	}

	msg := &inbound.Message{
		To:      r.FormValue("to"),
		From:    r.FormValue("from"),
		Subject: r.FormValue("subject"),
		HTML:    r.FormValue("html"),
		Text:    r.FormValue("text"),
	}
	if raw := r.FormValue("headers"); raw != "" {
		headers := make(map[string]string)
		if err := json.Unmarshal([]byte(raw), &headers); err == nil {
			msg.Headers = headers
		}
	}
	if r.MultipartForm != nil {
		for _, files := range r.MultipartForm.File {
			for _, fh := range files {
				att, err := readAttachment(fh)
				if err != nil {
					continue
				}
				msg.Attachments = append(msg.Attachments, att)
			}
		}
	}
	return msg, nil
}

func readAttachment(fh *multipart.FileHeader) (inbound.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return inbound.Attachment{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return inbound.Attachment{}, err
	}
	return inbound.Attachment{Filename: fh.Filename, Content: content}, nil
}
