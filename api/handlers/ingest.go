package handlers

import (
	"bytes"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/gin-gonic/gin"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/internal/enum"
	appErrors "github.com/makedealcrm/dealstack/internal/errors"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/services/ingestion"
)

const maxRawEmailSize = 25 << 20 // 25 MB

type IngestHandler struct {
	orchestrator *ingestion.Orchestrator
}

func NewIngestHandler(orchestrator *ingestion.Orchestrator) *IngestHandler {
	return &IngestHandler{orchestrator: orchestrator}
}

// IngestEmail accepts an inbound email and runs it through the
// pipeline. Raw MIME is accepted as message/rfc822, anything else is
// treated as the JSON form.
func (h *IngestHandler) IngestEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "IngestHandler.IngestEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		email, err := h.parseRequest(c)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tracing.TagMessageId(span, email.MessageID)

		if email.FromAddress != "" {
			validation := mailvalidate.ValidateEmailSyntax(email.FromAddress)
			if !validation.IsValid {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sender address"})
				return
			}
		}

		result, err := h.orchestrator.ProcessEmail(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, appErrors.ErrMissingMessageID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if result == nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    err.Error(),
				"outcome":  result.Outcome,
				"attempts": result.Attempts,
			})
			return
		}

		status := http.StatusOK
		if result.Outcome == enum.OutcomeCreated {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"outcome":           result.Outcome,
			"dealId":            result.DealID,
			"dealName":          result.DealName,
			"threadId":          result.ThreadID,
			"contactIds":        result.ContactIDs,
			"attachmentsLinked": result.AttachmentsLinked,
			"attempts":          result.Attempts,
			"skipReason":        result.SkipReason,
		})
	}
}

func (h *IngestHandler) parseRequest(c *gin.Context) (*dto.InboundEmail, error) {
	contentType := c.ContentType()
	if contentType == "message/rfc822" {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRawEmailSize))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read request body")
		}
		return parseRawEmail(raw)
	}

	var email dto.InboundEmail
	if err := c.BindJSON(&email); err != nil {
		return nil, errors.Wrap(err, "failed to parse email payload")
	}
	if email.Type == "" {
		email.Type = enum.EmailInbound
	}
	return &email, nil
}

// parseRawEmail converts a raw MIME message into the pipeline's
// normalized form
func parseRawEmail(raw []byte) (*dto.InboundEmail, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse MIME message")
	}

	email := &dto.InboundEmail{
		MessageID: envelope.GetHeader("Message-Id"),
		Subject:   envelope.GetHeader("Subject"),
		BodyText:  envelope.Text,
		BodyHTML:  envelope.HTML,
		InReplyTo: envelope.GetHeader("In-Reply-To"),
		Type:      enum.EmailInbound,
	}

	if references := envelope.GetHeader("References"); references != "" {
		email.References = strings.Fields(references)
	}

	if from, err := envelope.AddressList("From"); err == nil && len(from) > 0 {
		email.FromName = from[0].Name
		email.FromAddress = from[0].Address
	}
	if to, err := envelope.AddressList("To"); err == nil {
		for _, address := range to {
			email.To = append(email.To, address.Address)
		}
	}
	if cc, err := envelope.AddressList("Cc"); err == nil {
		for _, address := range cc {
			email.Cc = append(email.Cc, address.Address)
		}
	}
	if bcc, err := envelope.AddressList("Bcc"); err == nil {
		for _, address := range bcc {
			email.Bcc = append(email.Bcc, address.Address)
		}
	}

	if date, err := mail.ParseDate(envelope.GetHeader("Date")); err == nil {
		sentAt := date.UTC()
		email.SentAt = &sentAt
	}

	for _, attachment := range envelope.Attachments {
		email.Attachments = append(email.Attachments, dto.InboundAttachment{
			Filename:    attachment.FileName,
			ContentType: attachment.ContentType,
			Size:        int64(len(attachment.Content)),
		})
	}

	return email, nil
}
