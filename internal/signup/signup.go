// Package signup implements the email-capture side channel: normalized,
// validated addresses go into a durable signup store, and a successful
// insert triggers a welcome email out of band.
package signup

import (
	"context"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrInvalidEmail is returned when the submitted address fails
	// validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrAlreadyRegistered is returned for a duplicate submission.
	ErrAlreadyRegistered = errors.New("email already registered")
)

// Repository defines durable persistence for signups. Insert must return
// ErrAlreadyRegistered on a duplicate address.
type Repository interface {
	Insert(ctx context.Context, email string) error
	Exists(ctx context.Context, email string) (bool, error)
	ListEmails(ctx context.Context) ([]string, error)
}

// Mailer sends the welcome notification for a new signup.
type Mailer interface {
	SendWelcome(ctx context.Context, email string) error
}

// Filter sizing: comfortably above any realistic subscriber count for a
// single storefront drop.
const (
	filterCapacity = 1_000_000
	filterFPR      = 0.001
)

// Service validates and records signups.
//
// A bloom filter fronts the store as a cheap already-registered prefilter: a
// miss proves the address is new to this process, a hit still confirms
// against the store because of false positives and writes from other
// replicas.
type Service struct {
	repo     Repository
	mailer   Mailer
	validate *validator.Validate
	lg       *zap.Logger

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewService creates a signup Service.
func NewService(repo Repository, mailer Mailer, lg *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		mailer:   mailer,
		validate: validator.New(),
		lg:       lg,
		seen:     bloom.NewWithEstimates(filterCapacity, filterFPR),
	}
}

// WarmFilter seeds the prefilter from the store. Run once at startup; a
// failure only costs prefilter effectiveness, not correctness.
func (s *Service) WarmFilter(ctx context.Context) error {
	emails, err := s.repo.ListEmails(ctx)
	if err != nil {
		return errors.Wrap(err, "list signups")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, email := range emails {
		s.seen.AddString(email)
	}
	return nil
}

// Signup normalizes and validates the address, inserts it, and kicks off the
// welcome email. Duplicates fail with ErrAlreadyRegistered, malformed
// addresses with ErrInvalidEmail. The welcome email is sent asynchronously
// and its failure is logged, never surfaced to the subscriber.
func (s *Service) Signup(ctx context.Context, email string) error {
	email = Normalize(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}

	// Prefilter hit means "possibly registered": confirm with a read before
	// attempting the insert. A miss proves the address is new to this
	// filter, so the common fresh-signup path skips the extra query.
	if s.maybeSeen(email) {
		exists, err := s.repo.Exists(ctx, email)
		if err != nil {
			return errors.Wrap(err, "check signup")
		}
		if exists {
			return ErrAlreadyRegistered
		}
	}

	if err := s.repo.Insert(ctx, email); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			s.remember(email)
			return ErrAlreadyRegistered
		}
		return errors.Wrap(err, "insert signup")
	}
	s.remember(email)

	go s.sendWelcome(email)
	return nil
}

// sendWelcome delivers the notification email on its own context so it is
// not cancelled when the originating request finishes.
func (s *Service) sendWelcome(email string) {
	if err := s.mailer.SendWelcome(context.Background(), email); err != nil {
		s.lg.Error("send welcome email", zap.String("email", email), zap.Error(err))
	}
}

func (s *Service) maybeSeen(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.TestString(email)
}

func (s *Service) remember(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen.AddString(email)
}

// Normalize lowercases and trims an address. Applied before validation and
// storage so lookups are case-insensitive.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
