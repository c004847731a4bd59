package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrNoSession          = repository.ErrNoSession
)

const (
	adminEmail    = "admin@oil.com"
	adminPassword = "admin123"

	DefaultLatency = time.Second
)

// Admin is the single built-in administrator.
var Admin = domain.AuthUser{
	ID:    "admin-1",
	Name:  "Admin User",
	Email: adminEmail,
	Role:  domain.RoleAdmin,
}

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/auth")

type CustomerRepository interface {
	Load(ctx context.Context) ([]domain.Customer, error)
	Save(ctx context.Context, customers []domain.Customer) error
}

type SessionStore interface {
	GetCurrentUser(ctx context.Context) (domain.AuthUser, error)
	SetCurrentUser(ctx context.Context, user domain.AuthUser) error
	ClearCurrentUser(ctx context.Context) error
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

type Option func(*Session)

// WithLatency sets the artificial delay applied to login and register.
func WithLatency(d time.Duration) Option {
	return func(s *Session) {
		s.latency = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is a mock login: credentials are compared in plain text and the
// logged-in user is kept in the store so every process sees the same session.
type Session struct {
	customers CustomerRepository
	sessions  SessionStore
	latency   time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

func NewSession(customers CustomerRepository, sessions SessionStore, opts ...Option) *Session {
	s := &Session{
		customers: customers,
		sessions:  sessions,
		latency:   DefaultLatency,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Login(ctx context.Context, email, password string, role domain.Role) (domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "auth.Login", trace.WithAttributes(attribute.String("auth.role", string(role))))
	defer span.End()

	if err := s.wait(ctx); err != nil {
		return domain.AuthUser{}, err
	}

	user, err := s.authenticate(ctx, email, password, role)
	if err != nil {
		log.Info().Ctx(ctx).Str("email", email).Str("role", string(role)).Msg("login rejected")
		return domain.AuthUser{}, err
	}

	if err := s.sessions.SetCurrentUser(ctx, user); err != nil {
		return domain.AuthUser{}, fmt.Errorf("failed to save session: %w", err)
	}
	log.Info().Ctx(ctx).Str("user_id", user.ID).Str("role", string(user.Role)).Msg("logged in")
	return user, nil
}

func (s *Session) authenticate(ctx context.Context, email, password string, role domain.Role) (domain.AuthUser, error) {
	switch role {
	case domain.RoleAdmin:
		if email == adminEmail && password == adminPassword {
			return Admin, nil
		}
		return domain.AuthUser{}, ErrInvalidCredentials
	case domain.RoleCustomer:
		customers, err := s.customers.Load(ctx)
		if err != nil {
			return domain.AuthUser{}, fmt.Errorf("failed to load customers: %w", err)
		}
		for _, c := range customers {
			if c.Email == email && c.Password == password {
				return domain.AuthUser{ID: c.ID, Name: c.Name, Email: c.Email, Role: domain.RoleCustomer}, nil
			}
		}
	}
	return domain.AuthUser{}, ErrInvalidCredentials
}

// Register creates a customer account. It does not log the customer in.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	if err := s.wait(ctx); err != nil {
		return domain.Customer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customers, err := s.customers.Load(ctx)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("failed to load customers: %w", err)
	}
	for _, c := range customers {
		if c.Email == req.Email {
			return domain.Customer{}, ErrEmailExists
		}
	}

	customer := domain.Customer{
		ID:           "customer-" + uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		Address:      req.Address,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.customers.Save(ctx, append(customers, customer)); err != nil {
		return domain.Customer{}, fmt.Errorf("failed to save customers: %w", err)
	}

	span.SetAttributes(attribute.String("customer.id", customer.ID))
	log.Info().Ctx(ctx).Str("customer_id", customer.ID).Msg("customer registered")
	return customer, nil
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.sessions.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *Session) CurrentUser(ctx context.Context) (domain.AuthUser, error) {
	return s.sessions.GetCurrentUser(ctx)
}

func (s *Session) Customers(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.customers.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	return customers, nil
}

// SearchCustomers matches term against name or email, ignoring case.
func (s *Session) SearchCustomers(ctx context.Context, term string) ([]domain.Customer, error) {
	customers, err := s.Customers(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return customers, nil
	}
	matched := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(strings.ToLower(c.Email), needle) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (s *Session) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
