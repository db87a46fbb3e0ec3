package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrRegistration       = errors.New("registration rejected")
)

const (
	MsgBadCredentials   = "Invalid username or password."
	MsgLoginUnavailable = "Login is temporarily unavailable."
	MsgPasswordMismatch = "Passwords do not match."
	MsgRegistered       = "User created successfully! Please log in."
	MsgRegisterFailed   = "Error creating user."
)

// registrationFields is the order in which backend field errors are shown.
var registrationFields = []string{"username", "email", "confirm_password", "non_field_errors", "message"}

type Backend interface {
	IssueToken(ctx context.Context, username, password string) (models.TokenPair, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) error
}

type Session interface {
	Login(ctx context.Context, access, refresh string) (string, error)
}

type Service struct {
	API Backend
}

// Login exchanges credentials for a token pair and stores it. It returns
// the page to navigate to.
func (s *Service) Login(ctx context.Context, sess Session, username, password string) (string, error) {
	log := logging.FromContext(ctx).With("handler", "login", "username", username)

	pair, err := s.API.IssueToken(ctx, strings.TrimSpace(username), password)
	if err != nil {
		log.Warn("login_failed", "error", err)
		if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, apiclient.ErrValidation) {
			return "", fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return "", fmt.Errorf("issue token: %w", err)
	}
	if pair.Access == "" {
		log.Warn("login_failed", "error", "empty access token")
		return "", ErrInvalidCredentials
	}

	next, err := sess.Login(ctx, pair.Access, pair.Refresh)
	if err != nil {
		log.Error("session_store_failed", "error", err)
		return "", fmt.Errorf("store session: %w", err)
	}
	log.Info("login_succeeded")
	return next, nil
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register checks the password confirmation locally before calling the
// backend. The returned message is meant for the user in every case.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if in.Password != in.ConfirmPassword {
		return MsgPasswordMismatch, ErrPasswordMismatch
	}

	err := s.API.Register(ctx, apiclient.RegisterRequest{
		Username:        strings.TrimSpace(in.Username),
		Email:           strings.TrimSpace(in.Email),
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("register_failed", "username", in.Username, "error", err)
		return RegistrationMessage(err), fmt.Errorf("%w: %w", ErrRegistration, err)
	}
	return MsgRegistered, nil
}

// RegistrationMessage picks the first backend field error in display order,
// falling back to a generic message.
func RegistrationMessage(err error) string {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return MsgRegisterFailed
	}
	for _, f := range registrationFields {
		if msg, ok := apiErr.Field(f); ok {
			return msg
		}
	}
	return MsgRegisterFailed
}
