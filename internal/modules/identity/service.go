// README: Registration and password login on top of the account service.
package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"moto/internal/apperr"
	"moto/internal/modules/account"
	"moto/internal/types"
)

const minPasswordLen = 6

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid credentials")
	ErrLoginDisabled      = apperr.Precondition("password login is disabled")
)

// Accounts is the slice of account.Service identity needs.
type Accounts interface {
	RegisterRider(ctx context.Context, cmd account.RegisterRiderCommand) (*account.Rider, error)
	RegisterDriver(ctx context.Context, cmd account.RegisterDriverCommand) (*account.Driver, error)
	FindRiderByEmail(ctx context.Context, email string) (*account.Rider, error)
	FindDriverByEmail(ctx context.Context, email string) (*account.Driver, error)
}

// Session is the result of a successful registration or login. Token is empty
// when the service has no issuer configured.
type Session struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Principal types.Principal `json:"-"`
	Account   any             `json:"account"`
}

type Service struct {
	accounts Accounts
	issuer   *JWTIssuer
	cost     int
}

// NewService builds the service; issuer may be nil, which disables login.
func NewService(accounts Accounts, issuer *JWTIssuer) *Service {
	return &Service{accounts: accounts, issuer: issuer, cost: bcrypt.DefaultCost}
}

type RegisterRiderInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type RegisterDriverInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Password      string `json:"password"`
	BikeModel     string `json:"bike_model"`
	LicensePlate  string `json:"license_plate"`
	LicenseNumber string `json:"license_number"`
}

func (s *Service) RegisterRider(ctx context.Context, in RegisterRiderInput) (*Session, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	r, err := s.accounts.RegisterRider(ctx, account.RegisterRiderCommand{
		Name: in.Name, Email: in.Email, Phone: in.Phone, PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	return s.session(types.RiderPrincipal(r.ID), r)
}

func (s *Service) RegisterDriver(ctx context.Context, in RegisterDriverInput) (*Session, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	d, err := s.accounts.RegisterDriver(ctx, account.RegisterDriverCommand{
		Name: in.Name, Email: in.Email, Phone: in.Phone, PasswordHash: hash,
		BikeModel: in.BikeModel, LicensePlate: in.LicensePlate, LicenseNumber: in.LicenseNumber,
	})
	if err != nil {
		return nil, err
	}
	return s.session(types.DriverPrincipal(d.ID), d)
}

// Login checks the password for an account of the given role. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, role types.Role, email, password string) (*Session, error) {
	if s.issuer == nil {
		return nil, ErrLoginDisabled
	}
	var (
		p    types.Principal
		hash string
		acct any
	)
	switch role {
	case types.RoleRider:
		r, err := s.accounts.FindRiderByEmail(ctx, email)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		p, hash, acct = types.RiderPrincipal(r.ID), r.PasswordHash, r
	case types.RoleDriver:
		d, err := s.accounts.FindDriverByEmail(ctx, email)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		p, hash, acct = types.DriverPrincipal(d.ID), d.PasswordHash, d
	default:
		return nil, apperr.Validation("unknown role")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(p, acct)
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", apperr.Validation("password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *Service) session(p types.Principal, acct any) (*Session, error) {
	out := &Session{Principal: p, Account: acct}
	if s.issuer == nil {
		return out, nil
	}
	token, exp, err := s.issuer.Issue(p)
	if err != nil {
		return nil, err
	}
	out.Token, out.ExpiresAt = token, &exp
	return out, nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrInvalidCredentials
	}
	return err
}
