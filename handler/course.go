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
	"github.com/isaackogan/YorkUChats/middleware"
	"github.com/isaackogan/YorkUChats/model"
	"github.com/isaackogan/YorkUChats/store"
	"github.com/isaackogan/YorkUChats/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

var (
	errMissingFields = errors.New("required fields are missing")
	errCaptchaFailed = errors.New("captcha verification failed")
)

// CourseHandler handles course and section operations
type CourseHandler struct {
	store     *store.Store
	cache     *cache.Cache
	captcha   captcha.Verifier
	opTimeout time.Duration
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(st *store.Store, cacheClient *cache.Cache, gate captcha.Verifier, opTimeout time.Duration) *CourseHandler {
	return &CourseHandler{
		store:     st,
		cache:     cacheClient,
		captcha:   gate,
		opTimeout: opTimeout,
	}
}

// checkCaptcha verifies the client token; any failure fails the request.
func checkCaptcha(ctx context.Context, gate captcha.Verifier, token string, r *http.Request) bool {
	ok, err := gate.Verify(ctx, token, middleware.ClientIP(r))
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Captcha provider call failed")
		return false
	}
	return ok
}

// courseCodeVar extracts and normalizes the course code path variable.
func courseCodeVar(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["code"]))
}

// Liveness handles GET /
// @Summary Liveness check
// @Tags System
// @Produce plain
// @Success 200 {string} string "OK"
// @Router / [get]
func (h *CourseHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Course Links API is up.\n"))
}

// CreateCourse handles POST /courses
// @Summary Create a course
// @Description Creates a course; its code is derived from faculty+subject+number+credits (uppercased, trimmed) and must be unique.
// @Tags Courses
// @Accept json
// @Produce json
// @Success 201 {object} model.Course "Course created"
// @Failure 400 {object} ErrorResponse "Missing fields or captcha failed"
// @Failure 409 {object} ErrorResponse "Course already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	var input struct {
		Name         string `json:"name"`
		Subject      string `json:"subject"`
		Number       string `json:"number"`
		Faculty      string `json:"faculty"`
		Credits      string `json:"credits"`
		CaptchaToken string `json:"captchaToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || strings.TrimSpace(input.Subject) == "" ||
		strings.TrimSpace(input.Number) == "" || strings.TrimSpace(input.Faculty) == "" ||
		strings.TrimSpace(input.Credits) == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingFields, "name, subject, number, faculty and credits are required")
		return
	}

	if !checkCaptcha(ctx, h.captcha, input.CaptchaToken, r) {
		SendJSONError(w, http.StatusBadRequest, errCaptchaFailed, "")
		return
	}

	course := model.Course{
		Code:    utils.DeriveCourseCode(input.Faculty, input.Subject, input.Number, input.Credits),
		Name:    input.Name,
		Faculty: strings.TrimSpace(input.Faculty),
		Subject: strings.TrimSpace(input.Subject),
		Number:  strings.TrimSpace(input.Number),
		Credits: strings.TrimSpace(input.Credits),
	}

	created, err := h.store.CreateCourse(ctx, course)
	if err == store.ErrCourseExists {
		SendJSONError(w, http.StatusConflict, err, "A course with this code already exists")
		return
	} else if err != nil {
		log.Error().Err(err).Str("code", course.Code).Msg("Failed to create course")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to create course"), "")
		return
	}

	log.Info().
		Str("code", created.Code).
		Str("name", created.Name).
		Msg("Course created")

	SendJSONSuccess(w, http.StatusCreated, created)
}

// CreateSection handles POST /courses/{code}/sections
// @Summary Create a section
// @Description Appends a named section to a course. Section names are case-sensitive and unique within their course.
// @Tags Courses
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Success 201 {object} map[string]string "Section created"
// @Failure 400 {object} ErrorResponse "Missing fields or captcha failed"
// @Failure 404 {object} ErrorResponse "Course not found"
// @Failure 409 {object} ErrorResponse "Section already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /courses/{code}/sections [post]
func (h *CourseHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	code := courseCodeVar(r)

	var input struct {
		Name         string `json:"name"`
		CaptchaToken string `json:"captchaToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	// Section names are case-sensitive, only surrounding whitespace goes
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingFields, "name is required")
		return
	}

	if !checkCaptcha(ctx, h.captcha, input.CaptchaToken, r) {
		SendJSONError(w, http.StatusBadRequest, errCaptchaFailed, "")
		return
	}

	err := h.store.CreateSection(ctx, code, input.Name)
	if err == store.ErrCourseNotFound {
		SendJSONError(w, http.StatusNotFound, err, "")
		return
	} else if err == store.ErrSectionExists {
		SendJSONError(w, http.StatusConflict, err, "A section with this name already exists")
		return
	} else if err != nil {
		log.Error().Err(err).Str("code", code).Str("section", input.Name).Msg("Failed to create section")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to create section"), "")
		return
	}

	h.cache.InvalidateCourse(code)

	log.Info().
		Str("code", code).
		Str("section", input.Name).
		Msg("Section created")

	SendJSONSuccess(w, http.StatusCreated, map[string]string{
		"course":  code,
		"section": input.Name,
	})
}

// ListCourses handles GET /courses
// @Summary List courses
// @Description Lists courses, optionally filtered by faculty, subject or a free-text query.
// @Tags Courses
// @Produce json
// @Param faculty query string false "Faculty filter"
// @Param subject query string false "Subject filter"
// @Param q query string false "Free-text filter against name and code"
// @Success 200 {array} model.Course
// @Failure 500 {object} ErrorResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	query := r.URL.Query()
	courses, err := h.store.ListCourses(ctx, query.Get("faculty"), query.Get("subject"), query.Get("q"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list courses")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to list courses"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, courses)
}

// GetCourse handles GET /courses/{code}
// @Summary Get a course
// @Tags Courses
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} model.Course
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /courses/{code} [get]
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	code := courseCodeVar(r)

	if course, found := h.cache.GetCourse(code); found {
		log.Debug().Str("code", code).Msg("Course cache hit")
		SendJSONSuccess(w, http.StatusOK, course)
		return
	}

	course, err := h.store.GetCourse(ctx, code)
	if err == store.ErrCourseNotFound {
		SendJSONError(w, http.StatusNotFound, err, "")
		return
	} else if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to fetch course")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to fetch course"), "")
		return
	}

	h.cache.SetCourse(course)
	SendJSONSuccess(w, http.StatusOK, course)
}

// GlobalStats handles GET /stats
// @Summary Directory-wide totals
// @Tags Stats
// @Produce json
// @Success 200 {object} store.Stats
// @Failure 500 {object} ErrorResponse
// @Router /stats [get]
func (h *CourseHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	stats, err := h.store.GlobalStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute stats")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to compute stats"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, stats)
}

// CourseStats handles GET /courses/{code}/stats
// @Summary Per-link click counts for one course
// @Tags Stats
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {array} store.LinkStats
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /courses/{code}/stats [get]
func (h *CourseHandler) CourseStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	code := courseCodeVar(r)

	stats, err := h.store.CourseStats(ctx, code)
	if err == store.ErrCourseNotFound {
		SendJSONError(w, http.StatusNotFound, err, "")
		return
	} else if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to compute course stats")
		SendJSONError(w, http.StatusInternalServerError, errors.New("failed to compute course stats"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, stats)
}
