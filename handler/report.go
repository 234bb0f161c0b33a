package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/isaackogan/YorkUChats/captcha"
	"github.com/isaackogan/YorkUChats/middleware"
	"github.com/isaackogan/YorkUChats/model"
	"github.com/isaackogan/YorkUChats/store"

	"github.com/rs/zerolog/log"
)

// ReportHandler handles moderation report intake
type ReportHandler struct {
	store     *store.Store
	captcha   captcha.Verifier
	opTimeout time.Duration
}

// NewReportHandler creates a new report handler
func NewReportHandler(st *store.Store, gate captcha.Verifier, opTimeout time.Duration) *ReportHandler {
	return &ReportHandler{
		store:     st,
		captcha:   gate,
		opTimeout: opTimeout,
	}
}

// SubmitReport handles POST /report
// @Summary Report a link
// @Description Files a moderation report against a link. The submitter's network origin is captured server-side, never from the body.
// @Tags Reports
// @Accept json
// @Produce json
// @Success 201 {object} model.Report "Report filed"
// @Failure 400 {object} ErrorResponse "Missing fields or captcha failed"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /report [post]
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	var input struct {
		LinkID       string `json:"link_id"`
		Reason       string `json:"reason"`
		CaptchaToken string `json:"captchaToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	input.LinkID = strings.TrimSpace(input.LinkID)
	input.Reason = strings.TrimSpace(input.Reason)
	if input.LinkID == "" || input.Reason == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingFields, "link_id and reason are required")
		return
	}

	if !checkCaptcha(ctx, h.captcha, input.CaptchaToken, r) {
		SendJSONError(w, http.StatusBadRequest, errCaptchaFailed, "")
		return
	}

	report := model.Report{
		LinkID: input.LinkID,
		Reason: input.Reason,
		Origin: middleware.ClientIP(r),
	}

	created, err := h.store.SubmitReport(ctx, report)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store report")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to submit report"), "")
		return
	}

	log.Info().
		Str("report_id", created.ID).
		Str("link_id", created.LinkID).
		Str("origin", created.Origin).
		Msg("Report filed")

	SendJSONSuccess(w, http.StatusCreated, created)
}
