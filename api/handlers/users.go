package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/gin-gonic/gin"

	custom_err "github.com/driversheet/mailworker/api/errors"
	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/internal/alias"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/repository"
	"github.com/driversheet/mailworker/internal/tracing"
	"github.com/driversheet/mailworker/internal/utils"
	"github.com/driversheet/mailworker/services/sheets"
)

const recentLogsLimit = 30

type UsersHandler struct {
	repositories *repository.Repositories
	mailDomain   string
	paymentURL   string
}

func NewUsersHandler(repos *repository.Repositories, mailDomain, paymentURL string) *UsersHandler {
	return &UsersHandler{
		repositories: repos,
		mailDomain:   mailDomain,
		paymentURL:   paymentURL,
	}
}

// Upsert registers a tenant on first sign-in and updates its email or sheet afterwards.
func (h *UsersHandler) Upsert() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "UsersHandler.Upsert", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var input dto.TenantUpsert
		if err := c.ShouldBindJSON(&input); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if fieldErrors := h.validateUpsert(&input); fieldErrors != nil {
			tracing.TraceErr(span, fieldErrors)
			c.JSON(http.StatusBadRequest, gin.H{"error": fieldErrors.Error(), "fields": fieldErrors.Fields()})
			return
		}

		tenant, err := h.repositories.TenantRepository.Upsert(ctx, input)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save user"})
			return
		}
		tracing.TagTenant(span, strconv.FormatInt(tenant.ID, 10))

		c.JSON(http.StatusOK, h.toResponse(tenant))
	}
}

func (h *UsersHandler) validateUpsert(input *dto.TenantUpsert) *custom_err.FieldErrors {
	validationErrors := custom_err.NewFieldErrors()

	if strings.TrimSpace(input.GoogleID) == "" {
		validationErrors.Add("googleId", "googleId is required")
	}
	input.GoogleID = strings.TrimSpace(input.GoogleID)

	validation := mailvalidate.ValidateEmailSyntax(input.Email)
	if !validation.IsValid {
		validationErrors.Add("email", "email address is not valid")
	} else {
		input.Email = validation.CleanEmail
	}

	if input.SheetID != nil {
		sheetID := sheets.NormalizeSheetID(*input.SheetID)
		if sheetID == "" {
			input.SheetID = nil
		} else {
			input.SheetID = &sheetID
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// ListLogs returns the most recent parsed reports of a tenant. Once the trial has run out
// an unpaid tenant gets 402 instead.
func (h *UsersHandler) ListLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "UsersHandler.ListLogs", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		tenant, err := h.repositories.TenantRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
		if tenant == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		tracing.TagTenant(span, strconv.FormatInt(tenant.ID, 10))

		if !tenant.Paid && tenant.TrialExpired(utils.Now()) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":           "trial expired",
				"lemonPaymentUrl": h.paymentURL,
			})
			return
		}

		records, err := h.repositories.LogRecordRepository.ListRecentByTenant(ctx, tenant.ID, recentLogsLimit)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load logs"})
			return
		}

		response := make([]dto.LogEntryResponse, 0, len(records))
		for _, record := range records {
			response = append(response, dto.LogEntryResponse{
				ID:        record.ID,
				UserID:    record.TenantID,
				OrderDate: record.OrderDate.Format(dto.OrderDateLayout),
				Gross:     record.Gross,
				Tips:      record.Tips,
				Mileage:   record.Mileage,
				ParsedAt:  record.ParsedAt,
			})
		}

		c.JSON(http.StatusOK, response)
	}
}

func (h *UsersHandler) toResponse(tenant *models.Tenant) dto.TenantResponse {
	return dto.TenantResponse{
		ID:              tenant.ID,
		GoogleID:        tenant.GoogleID,
		Email:           tenant.Email,
		SheetID:         tenant.SheetID,
		ForwardAddress:  alias.Address(tenant.AliasKey, h.mailDomain),
		Paid:            tenant.Paid,
		Created:         tenant.CreatedAt,
		TrialExpired:    !tenant.Paid && tenant.TrialExpired(utils.Now()),
		LemonPaymentURL: h.paymentURL,
	}
}
