package verify

import (
	"sync"
	"testing"
	"time"

	"github.com/isaackogan/YorkUChats/email"
)

// captureSender records delivered codes instead of sending email
type captureSender struct {
	mu      sync.Mutex
	sent    []string
	outcome email.DeliveryOutcome
}

func (c *captureSender) SendCode(toEmail, code string) email.DeliveryOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, code)
	return c.outcome
}

func TestIssueAndVerify_SingleUse(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	code, err := svc.IssueCode("student@my.yorku.ca")
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("Code length = %d, want 6", len(code))
	}

	if !svc.HasLiveCode("student@my.yorku.ca") {
		t.Error("HasLiveCode should be true after issuance")
	}

	if !svc.VerifyCode("student@my.yorku.ca", code) {
		t.Error("VerifyCode with correct code should succeed")
	}

	// Success consumes the record
	if svc.HasLiveCode("student@my.yorku.ca") {
		t.Error("Record should be consumed after successful verification")
	}
	if svc.VerifyCode("student@my.yorku.ca", code) {
		t.Error("Second verification with same code should fail")
	}
}

func TestVerifyCode_WrongCodeDoesNotConsume(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	code, err := svc.IssueCode("student@my.yorku.ca")
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}

	if svc.VerifyCode("student@my.yorku.ca", "000000") && code != "000000" {
		t.Error("Wrong code should not verify")
	}
	if !svc.HasLiveCode("student@my.yorku.ca") {
		t.Error("Failed verification must not consume the record")
	}
	if !svc.VerifyCode("student@my.yorku.ca", code) {
		t.Error("Original code should still verify after a failed attempt")
	}
}

func TestVerifyCode_UnknownIdentity(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	if svc.VerifyCode("nobody@my.yorku.ca", "123456") {
		t.Error("Verification without a record should fail")
	}
	if svc.HasLiveCode("nobody@my.yorku.ca") {
		t.Error("HasLiveCode without a record should be false")
	}
	if _, ok := svc.IssuanceAge("nobody@my.yorku.ca"); ok {
		t.Error("IssuanceAge without a record should report absent")
	}
}

func TestExpiry(t *testing.T) {
	svc := NewService(30*time.Millisecond, &captureSender{})

	code, err := svc.IssueCode("student@my.yorku.ca")
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if svc.HasLiveCode("student@my.yorku.ca") {
		t.Error("HasLiveCode should be false after expiry")
	}
	if svc.VerifyCode("student@my.yorku.ca", code) {
		t.Error("Expired code should not verify")
	}
	if _, ok := svc.IssuanceAge("student@my.yorku.ca"); ok {
		t.Error("IssuanceAge should report absent after expiry")
	}
}

func TestIssuanceAge(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	if _, err := svc.IssueCode("student@my.yorku.ca"); err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}

	age, ok := svc.IssuanceAge("student@my.yorku.ca")
	if !ok {
		t.Fatal("IssuanceAge should report a live record")
	}
	if age < 0 || age > time.Minute {
		t.Errorf("Unreasonable issuance age %v", age)
	}
}

func TestIssueCode_OverwritesExisting(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	first, err := svc.IssueCode("student@my.yorku.ca")
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}
	second, err := svc.IssueCode("student@my.yorku.ca")
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}

	if first != second && svc.VerifyCode("student@my.yorku.ca", first) {
		t.Error("Old code should be invalid after reissue")
	}
	if !svc.VerifyCode("student@my.yorku.ca", second) {
		t.Error("Latest code should verify")
	}
}

func TestDeliver(t *testing.T) {
	sender := &captureSender{outcome: email.DeliveryAccepted}
	svc := NewService(15*time.Minute, sender)

	if got := svc.Deliver("student@my.yorku.ca", "123456"); got != email.DeliveryAccepted {
		t.Errorf("Deliver = %v, want accepted", got)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "123456" {
		t.Errorf("Sender received %v", sender.sent)
	}

	sender.outcome = email.DeliveryProviderFailure
	if got := svc.Deliver("student@my.yorku.ca", "123456"); got != email.DeliveryProviderFailure {
		t.Errorf("Deliver = %v, want provider failure", got)
	}
}

func TestDiscard(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	code, err := svc.IssueCode("student@my.yorku.ca")
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}

	svc.Discard("student@my.yorku.ca")

	if svc.HasLiveCode("student@my.yorku.ca") {
		t.Error("Discard should drop the record")
	}
	if svc.VerifyCode("student@my.yorku.ca", code) {
		t.Error("Discarded code should not verify")
	}

	// Discarding an absent identity is a no-op
	svc.Discard("nobody@my.yorku.ca")
}

func TestReset(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	if _, err := svc.IssueCode("student@my.yorku.ca"); err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}
	svc.Reset()
	if svc.HasLiveCode("student@my.yorku.ca") {
		t.Error("Reset should drop all records")
	}
}

func TestConcurrentIssuance_SameIdentity(t *testing.T) {
	svc := NewService(15*time.Minute, &captureSender{})

	const n = 8
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := svc.IssueCode("student@my.yorku.ca")
			if err != nil {
				t.Errorf("IssueCode failed: %v", err)
				return
			}
			codes[i] = code
		}(i)
	}
	wg.Wait()

	// Exactly one of the issued codes is live, whichever wrote last
	verified := 0
	for _, code := range codes {
		if code != "" && svc.VerifyCode("student@my.yorku.ca", code) {
			verified++
		}
	}
	if verified != 1 {
		t.Errorf("Expected exactly 1 verifiable code, got %d", verified)
	}
}
