package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isaackogan/YorkUChats/config"
)

func TestVerify_Disabled(t *testing.T) {
	gate := NewGate(config.CaptchaConfig{Enabled: false})

	ok, err := gate.Verify(context.Background(), "", "198.51.100.1")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Disabled gate should allow every request")
	}
}

func TestVerify_MissingToken(t *testing.T) {
	gate := NewGate(config.CaptchaConfig{Enabled: true, Secret: "secret", VerifyURL: "http://unused"})

	ok, err := gate.Verify(context.Background(), "", "198.51.100.1")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("Missing token must fail without a provider call")
	}
}

func TestVerify_ProviderResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"Success", `{"success": true}`, true},
		{"Rejected", `{"success": false, "error-codes": ["invalid-input-response"]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSecret, gotToken string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				gotSecret = r.Form.Get("secret")
				gotToken = r.Form.Get("response")
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			gate := NewGate(config.CaptchaConfig{Enabled: true, Secret: "test-secret", VerifyURL: srv.URL})

			ok, err := gate.Verify(context.Background(), "client-token", "198.51.100.1")
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Verify() = %v, want %v", ok, tt.want)
			}
			if gotSecret != "test-secret" || gotToken != "client-token" {
				t.Errorf("Provider received secret=%q token=%q", gotSecret, gotToken)
			}
		})
	}
}

func TestVerify_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	gate := NewGate(config.CaptchaConfig{Enabled: true, Secret: "test-secret", VerifyURL: srv.URL})

	ok, err := gate.Verify(context.Background(), "client-token", "198.51.100.1")
	if err == nil {
		t.Error("Unreachable provider should surface an error")
	}
	if ok {
		t.Error("Unreachable provider must not pass verification")
	}
}
