package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/officevote/internal/models"
)

const (
	codeDigits      = 6
	maxCodeAttempts = 5
	resendInterval  = 30 * time.Second
)

var (
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrCodeExpired     = errors.New("verification code expired, please request a new one")
	ErrTooManyAttempts = errors.New("too many wrong codes, please request a new one")
	ErrCodeThrottled   = errors.New("a code was sent moments ago, please wait before requesting another")
)

// Challenge identifies a code sent to a voter's phone.
type Challenge struct {
	ID        string
	ExpiresAt time.Time
}

type pendingCode struct {
	electionID string
	voter      models.Voter
	hash       []byte
	issued     time.Time
	expires    time.Time
	attempts   int
}

// PhoneVerifier sends one-time login codes and checks them. Only a bcrypt
// hash of each code is kept, in memory, next to the voter it was sent for.
// A code is single use and at most one is pending per voter.
type PhoneVerifier struct {
	sender CodeSender
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingCode
}

// NewPhoneVerifier creates a PhoneVerifier whose codes are valid for ttl.
func NewPhoneVerifier(sender CodeSender, ttl time.Duration) *PhoneVerifier {
	return &PhoneVerifier{
		sender:  sender,
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]*pendingCode),
	}
}

// Issue sends a fresh code to voter's phone, replacing any code still pending
// for them. Returns ErrCodeThrottled if the previous code is too recent.
func (v *PhoneVerifier) Issue(ctx context.Context, electionID string, voter models.Voter) (Challenge, error) {
	now := v.now()

	v.mu.Lock()
	v.sweep(now)
	for id, p := range v.pending {
		if p.electionID == electionID && p.voter.ID == voter.ID {
			if now.Sub(p.issued) < resendInterval {
				v.mu.Unlock()
				return Challenge{}, ErrCodeThrottled
			}
			delete(v.pending, id)
		}
	}
	v.mu.Unlock()

	code, err := newCode()
	if err != nil {
		return Challenge{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to hash code: %w", err)
	}
	if err := v.sender.SendCode(ctx, voter.Phone, code); err != nil {
		return Challenge{}, fmt.Errorf("failed to send code: %w", err)
	}

	c := Challenge{ID: uuid.New().String(), ExpiresAt: now.Add(v.ttl)}
	v.mu.Lock()
	v.pending[c.ID] = &pendingCode{
		electionID: electionID,
		voter:      voter,
		hash:       hash,
		issued:     now,
		expires:    c.ExpiresAt,
	}
	v.mu.Unlock()
	return c, nil
}

// Verify checks code against challenge id and returns the election and voter
// it was issued for. A matching code is consumed. After too many wrong codes
// the challenge is dropped.
func (v *PhoneVerifier) Verify(id, code string) (string, models.Voter, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.pending[id]
	if !ok || v.now().After(p.expires) {
		delete(v.pending, id)
		return "", models.Voter{}, ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword(p.hash, []byte(code)); err != nil {
		p.attempts++
		if p.attempts >= maxCodeAttempts {
			delete(v.pending, id)
			return "", models.Voter{}, ErrTooManyAttempts
		}
		return "", models.Voter{}, ErrCodeMismatch
	}
	delete(v.pending, id)
	return p.electionID, p.voter, nil
}

// Pending returns the number of codes awaiting confirmation.
func (v *PhoneVerifier) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sweep(v.now())
	return len(v.pending)
}

// sweep must be called with v.mu held.
func (v *PhoneVerifier) sweep(now time.Time) {
	for id, p := range v.pending {
		if now.After(p.expires) {
			delete(v.pending, id)
		}
	}
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
