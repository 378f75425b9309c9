package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/gin-gonic/gin"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/metrics"
	"github.com/driversheet/mailworker/internal/repository"
	"github.com/driversheet/mailworker/internal/tracing"
)

const (
	SignatureHeader      = "X-Signature"
	EventInvoicePaid     = "invoice.paid"
	maxWebhookBodyBytes  = 1 << 20
	webhookStatusOK      = "ok"
	webhookStatusIgnored = "ignored"
	webhookStatusDenied  = "denied"
	webhookStatusInvalid = "invalid"
	webhookStatusFailed  = "failed"
)

type LemonHandler struct {
	repositories *repository.Repositories
	secret       string
	log          logger.Logger
}

func NewLemonHandler(repos *repository.Repositories, secret string, log logger.Logger) *LemonHandler {
	return &LemonHandler{
		repositories: repos,
		secret:       secret,
		log:          log,
	}
}

// Webhook receives payment notifications. The body must be signed with the shared secret;
// an unconfigured secret rejects everything.
func (h *LemonHandler) Webhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "LemonHandler.Webhook", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
		if err != nil {
			tracing.TraceErr(span, err)
			metrics.PaymentWebhooksTotal.WithLabelValues("", webhookStatusInvalid).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		signature := strings.TrimSpace(c.GetHeader(SignatureHeader))
		if signature == "" || !h.validSignature(body, signature) {
			metrics.PaymentWebhooksTotal.WithLabelValues("", webhookStatusDenied).Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		if !utf8.Valid(body) {
			metrics.PaymentWebhooksTotal.WithLabelValues("", webhookStatusInvalid).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "body is not valid UTF-8"})
			return
		}

		var payload dto.LemonWebhook
		if err := json.Unmarshal(body, &payload); err != nil {
			tracing.TraceErr(span, err)
			metrics.PaymentWebhooksTotal.WithLabelValues("", webhookStatusInvalid).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		event := payload.Meta.EventName
		span.LogFields(tracingLog.String("event", event))

		if event != EventInvoicePaid {
			h.log.Warnf("Ignoring payment webhook event %q", event)
			metrics.PaymentWebhooksTotal.WithLabelValues(event, webhookStatusIgnored).Inc()
			c.JSON(http.StatusOK, gin.H{"status": webhookStatusIgnored})
			return
		}

		email := payload.Data.Attributes.CustomerEmail
		if validation := mailvalidate.ValidateEmailSyntax(email); validation.IsValid {
			email = validation.CleanEmail
		}

		updated, err := h.repositories.TenantRepository.MarkPaidByEmail(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to mark %s as paid: %v", email, err)
			metrics.PaymentWebhooksTotal.WithLabelValues(event, webhookStatusFailed).Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
			return
		}
		if updated == 0 {
			h.log.Warnf("Payment received for unknown customer %s", email)
		} else {
			h.log.Infof("Marked %d tenant(s) with email %s as paid", updated, email)
		}

		metrics.PaymentWebhooksTotal.WithLabelValues(event, webhookStatusOK).Inc()
		c.JSON(http.StatusOK, gin.H{"status": webhookStatusOK})
	}
}

func (h *LemonHandler) validSignature(body []byte, signature string) bool {
	if h.secret == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
