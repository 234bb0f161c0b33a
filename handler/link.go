package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/isaackogan/YorkUChats/cache"
	"github.com/isaackogan/YorkUChats/captcha"
	"github.com/isaackogan/YorkUChats/model"
	"github.com/isaackogan/YorkUChats/store"
	"github.com/isaackogan/YorkUChats/utils"
	"github.com/isaackogan/YorkUChats/verify"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

var (
	errNoLiveCode   = errors.New("no live verification code for this address")
	errCodeMismatch = errors.New("verification code mismatch")
)

// LinkHandler handles link creation and click counting
type LinkHandler struct {
	store     *store.Store
	cache     *cache.Cache
	verifier  *verify.Service
	captcha   captcha.Verifier
	opTimeout time.Duration
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(st *store.Store, cacheClient *cache.Cache, verifier *verify.Service, gate captcha.Verifier, opTimeout time.Duration) *LinkHandler {
	return &LinkHandler{
		store:     st,
		cache:     cacheClient,
		verifier:  verifier,
		captcha:   gate,
		opTimeout: opTimeout,
	}
}

// CreateLink handles POST /courses/{code}/sections/{section}/link
// @Summary Create a link
// @Description Adds a link to a section. Requires a live email verification code for the submitting address; a successful submission consumes the code.
// @Tags Links
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param section path string true "Section name"
// @Success 201 {object} model.Link "Link created"
// @Failure 400 {object} ErrorResponse "Missing fields, bad URL or captcha failed"
// @Failure 401 {object} ErrorResponse "Verification code mismatch"
// @Failure 404 {object} ErrorResponse "Course or section not found"
// @Failure 409 {object} ErrorResponse "URL already exists in section"
// @Failure 410 {object} ErrorResponse "No live verification code for this address"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /courses/{code}/sections/{section}/link [post]
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	vars := mux.Vars(r)
	code := strings.ToUpper(strings.TrimSpace(vars["code"]))
	sectionName := vars["section"]

	var input struct {
		Type         string   `json:"type"`
		URL          string   `json:"url"`
		Terms        []string `json:"terms"`
		Username     string   `json:"username"`
		Code         string   `json:"code"`
		CaptchaToken string   `json:"captchaToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	input.Type = strings.TrimSpace(input.Type)
	input.Code = strings.TrimSpace(input.Code)
	if input.Type == "" || input.URL == "" || input.Username == "" || input.Code == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingFields, "type, url, username and code are required")
		return
	}

	if err := utils.ValidateURL(input.URL); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	}

	if !checkCaptcha(ctx, h.captcha, input.CaptchaToken, r) {
		SendJSONError(w, http.StatusBadRequest, errCaptchaFailed, "")
		return
	}

	identity, err := utils.ValidateEmail(input.Username)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "username must be a valid email address")
		return
	}

	if !h.verifier.HasLiveCode(identity) {
		SendJSONError(w, http.StatusGone, errNoLiveCode, "Request a new verification code and try again")
		return
	}

	if !h.verifier.VerifyCode(identity, input.Code) {
		SendJSONError(w, http.StatusUnauthorized, errCodeMismatch, "")
		return
	}

	link := model.Link{
		Type:  input.Type,
		URL:   input.URL,
		Terms: input.Terms,
	}

	created, err := h.store.CreateLink(ctx, code, sectionName, link)
	switch err {
	case nil:
	case store.ErrCourseNotFound, store.ErrSectionNotFound:
		SendJSONError(w, http.StatusNotFound, err, "")
		return
	case store.ErrDuplicateURL:
		SendJSONError(w, http.StatusConflict, err, "This URL already exists in the section")
		return
	default:
		log.Error().Err(err).Str("code", code).Str("section", sectionName).Msg("Failed to create link")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to create link"), "")
		return
	}

	h.cache.InvalidateCourse(code)

	log.Info().
		Str("code", code).
		Str("section", sectionName).
		Str("url", created.URL).
		Str("link_id", created.ID).
		Msg("Link created")

	SendJSONSuccess(w, http.StatusCreated, created)
}

// ClickLink handles POST /courses/{code}/sections/{section}/link/click
// @Summary Record a link click
// @Description Atomically increments a link's click counter. A miss at any level is a silent no-op; the response is 201 either way.
// @Tags Links
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param section path string true "Section name"
// @Success 201 {object} map[string]string "Click recorded"
// @Failure 400 {object} ErrorResponse "Missing url"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /courses/{code}/sections/{section}/link/click [post]
func (h *LinkHandler) ClickLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	vars := mux.Vars(r)
	code := strings.ToUpper(strings.TrimSpace(vars["code"]))
	sectionName := vars["section"]

	var input struct {
		URL string `json:"url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if input.URL == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingFields, "url is required")
		return
	}

	if err := h.store.IncrementLinkClicks(ctx, code, sectionName, input.URL); err != nil {
		log.Error().Err(err).Str("code", code).Str("section", sectionName).Msg("Failed to record click")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to record click"), "")
		return
	}

	h.cache.InvalidateCourse(code)

	SendJSONSuccess(w, http.StatusCreated, map[string]string{"status": "recorded"})
}
