package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/services/importer"
	"statement-reconciliation-backend/internal/services/matching"
	service "statement-reconciliation-backend/internal/services/reconciliation"
	"statement-reconciliation-backend/pkg/logger"
)

// ActorHeader carries the id of the user acting on the API.
const ActorHeader = "X-Actor-ID"

const dateLayout = "2006-01-02"

type ReconciliationHandler struct {
	service *service.ReconciliationService
	log     logger.Logger
}

func NewReconciliationHandler(s *service.ReconciliationService, log logger.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, log: log.WithComponent("http")}
}

func (h *ReconciliationHandler) ListBankAccounts(c *gin.Context) {
	accounts, err := h.service.ListBankAccounts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": accounts})
}

func (h *ReconciliationHandler) CreateBankAccount(c *gin.Context) {
	var payload service.NewBankAccount
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondError(c, apperrors.Validation("invalid payload"))
		return
	}
	payload.Actor = actor(c)

	acc, err := h.service.CreateBankAccount(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

// ImportStatement takes a multipart upload: file, bank_code, bank_account_id and an optional
// period_start/period_end pair (YYYY-MM-DD).
func (h *ReconciliationHandler) ImportStatement(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.respondError(c, apperrors.Validation("file required"))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, apperrors.Validation("cannot read uploaded file"))
		return
	}

	accountID, err := uuid.Parse(c.PostForm("bank_account_id"))
	if err != nil {
		h.respondError(c, apperrors.Validation("invalid bank_account_id"))
		return
	}

	period, err := formPeriod(c.PostForm("period_start"), c.PostForm("period_end"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.service.ImportStatement(c.Request.Context(), importer.Request{
		FileBytes:      body,
		Filename:       header.Filename,
		BankCode:       c.PostForm("bank_code"),
		BankAccountID:  accountID,
		DeclaredPeriod: period,
		Actor:          actor(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ReconciliationHandler) GetImport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	imp, err := h.service.GetImport(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

func (h *ReconciliationHandler) GetImportStats(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.service.ImportStats(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	filter := service.TransactionFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Cursor: c.Query("cursor"),
	}

	var err error
	if filter.ImportID, err = queryUUID(c, "import_id"); err != nil {
		h.respondError(c, err)
		return
	}
	if filter.BankAccountID, err = queryUUID(c, "bank_account_id"); err != nil {
		h.respondError(c, err)
		return
	}
	if filter.DateFrom, err = queryDate(c, "date_from"); err != nil {
		h.respondError(c, err)
		return
	}
	if filter.DateTo, err = queryDate(c, "date_to"); err != nil {
		h.respondError(c, err)
		return
	}
	if raw := c.Query("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil {
			h.respondError(c, apperrors.Validation("invalid limit"))
			return
		}
	}

	page, err := h.service.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	matches, err := h.service.ListMatches(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": matches})
}

// SuggestMatches runs the matcher. An empty body means every unmatched incoming transaction.
func (h *ReconciliationHandler) SuggestMatches(c *gin.Context) {
	var filter matching.BatchFilter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&filter); err != nil && err != io.EOF {
			h.respondError(c, apperrors.Validation("invalid payload"))
			return
		}
	}

	suggestions, err := h.service.SuggestMatches(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": suggestions})
}

func (h *ReconciliationHandler) RecordSuggestion(c *gin.Context) {
	var req service.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.Validation("invalid payload"))
		return
	}
	req.Actor = actor(c)

	m, err := h.service.RecordSuggestion(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *ReconciliationHandler) ConfirmMatch(c *gin.Context) {
	var req service.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.Validation("invalid payload"))
		return
	}
	req.Actor = actor(c)

	id, err := h.service.ConfirmMatch(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_id": id, "status": "confirmed"})
}

func (h *ReconciliationHandler) RejectMatch(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	matchID, err := h.service.RejectMatch(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_id": matchID, "status": "rejected"})
}

// SearchInvoices backs manual matching: q matches number or customer, amount is exact,
// status is a comma separated list.
func (h *ReconciliationHandler) SearchInvoices(c *gin.Context) {
	amount := decimal.Zero
	if raw := c.Query("amount"); raw != "" {
		var err error
		if amount, err = decimal.NewFromString(raw); err != nil {
			h.respondError(c, apperrors.Validation("invalid amount"))
			return
		}
	}
	var statuses []string
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}

	invoices, err := h.service.SearchInvoices(c.Request.Context(), c.Query("q"), amount, statuses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": invoices})
}

func (h *ReconciliationHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondError(c, apperrors.Validation("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// respondError writes {code, message}. Internal causes are logged, never returned.
func (h *ReconciliationHandler) respondError(c *gin.Context, err error) {
	appErr := apperrors.WrapIfNeeded(err, c.FullPath())
	if appErr.Category == apperrors.CategoryInternal {
		h.log.WithError(err).WithFields(logger.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Errorf("request failed")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

func actor(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(ActorHeader))
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation("invalid %s", name)
	}
	return &id, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, apperrors.Validation("%s must be YYYY-MM-DD", name)
	}
	return &d, nil
}

func formPeriod(start, end string) (*importer.Period, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, apperrors.Validation("period_start and period_end go together")
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, apperrors.Validation("period_start must be YYYY-MM-DD")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, apperrors.Validation("period_end must be YYYY-MM-DD")
	}
	return &importer.Period{Start: s, End: e}, nil
}
