package verify

import (
	"sync"
	"time"

	"github.com/isaackogan/YorkUChats/email"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// record is one live verification entry. Only the bcrypt hash of the code is
// kept; the plaintext exists solely in the issuance response path.
type record struct {
	codeHash []byte
	issuedAt time.Time
}

// Service owns the per-identity verification state machine:
// no record -> issued -> verified (record consumed) or expired.
//
// State is process-local and mutex-serialized so two near-simultaneous
// issuance or verification calls for the same identity cannot interleave.
type Service struct {
	mu      sync.Mutex
	records map[string]record
	ttl     time.Duration
	sender  email.Sender
}

// NewService creates a verification service with the given code validity
// window. Codes are delivered through sender.
func NewService(ttl time.Duration, sender email.Sender) *Service {
	return &Service{
		records: make(map[string]record),
		ttl:     ttl,
		sender:  sender,
	}
}

// HasLiveCode reports whether identity has a code inside its validity window.
func (s *Service) HasLiveCode(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.liveRecordLocked(identity)
	return ok
}

// IssuanceAge returns the time since the last issuance for identity. The
// second return is false when no live record exists.
func (s *Service) IssuanceAge(identity string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveRecordLocked(identity)
	if !ok {
		return 0, false
	}
	return time.Since(rec.issuedAt), true
}

// IssueCode generates a fresh code for identity, replacing any existing
// record. Callers enforce the resend cooldown via IssuanceAge before calling.
func (s *Service) IssueCode(identity string) (string, error) {
	code, err := email.GenerateCode()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.records[identity] = record{codeHash: hash, issuedAt: time.Now()}

	log.Info().Str("identity", identity).Msg("Verification code issued")
	return code, nil
}

// VerifyCode checks suppliedCode against the live record for identity.
// A successful check consumes the record (codes are single-use); a failed
// check leaves it untouched.
func (s *Service) VerifyCode(identity, suppliedCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveRecordLocked(identity)
	if !ok {
		return false
	}

	if bcrypt.CompareHashAndPassword(rec.codeHash, []byte(suppliedCode)) != nil {
		return false
	}

	delete(s.records, identity)
	log.Info().Str("identity", identity).Msg("Verification code accepted")
	return true
}

// Deliver dispatches code to identity through the configured sender.
func (s *Service) Deliver(identity, code string) email.DeliveryOutcome {
	return s.sender.SendCode(identity, code)
}

// Discard drops identity's record, if any. Callers use this when code
// delivery fails so the next request reissues instead of hitting the resend
// cooldown for a code that never arrived.
func (s *Service) Discard(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identity)
}

// Reset clears all verification state. Test lifecycle only.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]record)
}

// liveRecordLocked returns the record for identity if it is inside its
// validity window, dropping it when expired. Caller holds s.mu.
func (s *Service) liveRecordLocked(identity string) (record, bool) {
	rec, ok := s.records[identity]
	if !ok {
		return record{}, false
	}
	if time.Since(rec.issuedAt) > s.ttl {
		delete(s.records, identity)
		return record{}, false
	}
	return rec, true
}

// sweepLocked drops every expired record. Caller holds s.mu.
func (s *Service) sweepLocked() {
	for identity, rec := range s.records {
		if time.Since(rec.issuedAt) > s.ttl {
			delete(s.records, identity)
		}
	}
}
