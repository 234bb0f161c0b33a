package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/isaackogan/YorkUChats/config"

	"github.com/rs/zerolog/log"
)

// Verifier checks a client-supplied captcha token against the provider.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// verifyResponse is the provider's siteverify response shape.
type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Gate verifies tokens against an hCaptcha-compatible siteverify endpoint.
// When disabled (no secret configured) every token passes, which keeps local
// development working without provider credentials.
type Gate struct {
	secret     string
	verifyURL  string
	enabled    bool
	httpClient *http.Client
}

// NewGate creates a captcha gate from configuration
func NewGate(cfg config.CaptchaConfig) *Gate {
	return &Gate{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		enabled:   cfg.Enabled && cfg.Secret != "",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Verify checks the token with the provider. A missing token fails without a
// network call. Provider errors are returned to the caller, not retried.
func (g *Gate) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if !g.enabled {
		log.Debug().Msg("Captcha verification disabled - allowing request")
		return true, nil
	}

	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", g.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Captcha provider request failed")
		return false, err
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Error().Err(err).Msg("Failed to decode captcha provider response")
		return false, err
	}

	if !result.Success {
		log.Warn().
			Strs("error_codes", result.ErrorCodes).
			Str("remote_ip", remoteIP).
			Msg("Captcha verification rejected")
	}

	return result.Success, nil
}
