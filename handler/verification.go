package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/isaackogan/YorkUChats/captcha"
	"github.com/isaackogan/YorkUChats/email"
	"github.com/isaackogan/YorkUChats/utils"
	"github.com/isaackogan/YorkUChats/verify"

	"github.com/rs/zerolog/log"
)

// VerificationHandler handles verification code issuance
type VerificationHandler struct {
	verifier  *verify.Service
	captcha   captcha.Verifier
	cooldown  time.Duration
	opTimeout time.Duration
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(verifier *verify.Service, gate captcha.Verifier, cooldown, opTimeout time.Duration) *VerificationHandler {
	return &VerificationHandler{
		verifier:  verifier,
		captcha:   gate,
		cooldown:  cooldown,
		opTimeout: opTimeout,
	}
}

// CreateVerification handles POST /verify/create
// @Summary Request a verification code
// @Description Issues and emails a one-time code for the given address. A repeat request inside the resend cooldown is an idempotent no-op so refreshing cannot invalidate a code already received.
// @Tags Verification
// @Accept json
// @Produce json
// @Success 201 {object} map[string]string "Code issued (or already live)"
// @Failure 400 {object} ErrorResponse "Missing fields or captcha failed"
// @Failure 422 {object} ErrorResponse "Invalid email address"
// @Failure 500 {object} ErrorResponse "Delivery failure"
// @Router /verify/create [post]
func (h *VerificationHandler) CreateVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	var input struct {
		Username     string `json:"username"`
		CaptchaToken string `json:"captchaToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if input.Username == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingFields, "username is required")
		return
	}

	if !checkCaptcha(ctx, h.captcha, input.CaptchaToken, r) {
		SendJSONError(w, http.StatusBadRequest, errCaptchaFailed, "")
		return
	}

	identity, err := utils.ValidateEmail(input.Username)
	if err != nil {
		SendJSONError(w, http.StatusUnprocessableEntity, err, "username must be a valid email address")
		return
	}

	// Inside the resend cooldown the stored code stays valid and no new
	// email goes out; refreshing must not invalidate a code the user
	// already received.
	if age, ok := h.verifier.IssuanceAge(identity); ok && age < h.cooldown {
		log.Info().Str("identity", identity).Dur("age", age).Msg("Verification code still live, not reissuing")
		SendJSONSuccess(w, http.StatusCreated, map[string]string{
			"message": "A verification code was already sent. Please check your email.",
		})
		return
	}

	code, err := h.verifier.IssueCode(identity)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue verification code")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to issue verification code"), "")
		return
	}

	// A failed delivery discards the record; otherwise the caller's retry
	// would hit the resend cooldown for a code that never arrived.
	switch h.verifier.Deliver(identity, code) {
	case email.DeliveryInvalidAddress:
		h.verifier.Discard(identity)
		SendJSONError(w, http.StatusUnprocessableEntity, utils.ErrInvalidEmail, "")
		return
	case email.DeliveryProviderFailure:
		h.verifier.Discard(identity)
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to deliver verification code"), "")
		return
	}

	SendJSONSuccess(w, http.StatusCreated, map[string]string{
		"message": "Verification code sent. Please check your email.",
	})
}
