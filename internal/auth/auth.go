package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog/log"
)

var ErrEmptyIDToken = errors.New("id token is empty")

// User is the signed-in user as seen by the page.
type User struct {
	UID   string
	Email string
}

// Provider resolves the currently signed-in user.
type Provider interface {
	// CurrentUser returns nil when nobody is signed in.
	CurrentUser(ctx context.Context) *User
}

// Session is a Provider holding a user set directly.
type Session struct {
	mu   sync.RWMutex
	user *User
}

func NewSession(user *User) *Session {
	return &Session{user: user}
}

func (s *Session) CurrentUser(ctx context.Context) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) SignIn(user *User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

func (s *Session) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// IDTokenVerifier is satisfied by *firebase auth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseProvider keeps a Firebase ID token and verifies it every time the
// current user is asked for, so an expired or revoked sign-in reads as signed out.
type FirebaseProvider struct {
	verifier IDTokenVerifier
	
	mu      sync.RWMutex
	idToken string
}

func NewFirebaseProvider(verifier IDTokenVerifier) *FirebaseProvider {
	return &FirebaseProvider{verifier: verifier}
}

// SignIn verifies idToken and keeps it for later lookups.
func (p *FirebaseProvider) SignIn(ctx context.Context, idToken string) (*User, error) {
	if idToken == "" {
		return nil, ErrEmptyIDToken
	}
	
	user, err := p.verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	
	p.mu.Lock()
	p.idToken = idToken
	p.mu.Unlock()
	
	log.Info().Str("uid", user.UID).Msg("user signed in")
	return user, nil
}

func (p *FirebaseProvider) SignOut() {
	p.mu.Lock()
	p.idToken = ""
	p.mu.Unlock()
}

func (p *FirebaseProvider) CurrentUser(ctx context.Context) *User {
	p.mu.RLock()
	idToken := p.idToken
	p.mu.RUnlock()
	
	if idToken == "" {
		return nil
	}
	
	user, err := p.verify(ctx, idToken)
	if err != nil {
		log.Warn().Err(err).Msg("stored id token is no longer valid")
		return nil
	}
	return user
}

func (p *FirebaseProvider) verify(ctx context.Context, idToken string) (*User, error) {
	token, err := p.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}
	
	user := &User{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		user.Email = email
	}
	return user, nil
}
