package services

import (
	"fmt"
	"sync"

	"github.com/localnerve/authorizer-go"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/utils"
)

// SessionUser is the identity behind a validated session
type SessionUser struct {
	ID    string
	Email string
}

// SessionValidator validates management API session cookies
type SessionValidator interface {
	// ValidateSession checks cookie for roles. origin is the scheme and host
	// the request arrived on, used as the Authorizer redirect URL.
	ValidateSession(cookie string, roles []string, origin string) (*SessionUser, error)
}

// AuthorizerValidator validates sessions against the Authorizer service.
// The client is created on first use.
type AuthorizerValidator struct {
	cfg *config.Config

	once    sync.Once
	client  *authorizer.AuthorizerClient
	initErr error
}

// NewAuthorizerValidator creates a validator for the configured Authorizer
func NewAuthorizerValidator(cfg *config.Config) *AuthorizerValidator {
	return &AuthorizerValidator{cfg: cfg}
}

// Initialized returns true if the Authorizer client is initialized
func (a *AuthorizerValidator) Initialized() bool {
	return a.client != nil
}

// init initializes the Authorizer client once
func (a *AuthorizerValidator) init(origin string) error {
	a.once.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(a.cfg.AuthzURL); err != nil {
			a.initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		log.WithFields(log.Fields{
			"authorizerURL": a.cfg.AuthzURL,
			"clientID":      a.cfg.AuthzClientID,
			"redirectURL":   origin,
		}).Info("Initializing Authorizer")

		client, err := authorizer.NewAuthorizerClient(a.cfg.AuthzClientID, a.cfg.AuthzURL, origin, nil)
		if err != nil {
			a.initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		a.client = client
	})

	return a.initErr
}

// ValidateSession validates a session cookie for the given roles
func (a *AuthorizerValidator) ValidateSession(cookie string, roles []string, origin string) (*SessionUser, error) {
	if err := a.init(origin); err != nil {
		return nil, err
	}

	// Convert roles to []*string
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := a.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}

	if res == nil || !res.IsValid || res.User == nil {
		return nil, fmt.Errorf("session is not valid")
	}

	return &SessionUser{
		ID:    res.User.ID,
		Email: res.User.Email,
	}, nil
}
