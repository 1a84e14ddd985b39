// Package session owns the client session: the user identity and bearer
// tokens. The store has exactly two states, Anonymous and Authenticated,
// with transitions only via Login/Register/LoginWithGoogle/Logout or an
// authorization failure reported by the transport.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vpetrenko/tracklet/internal/client/api"
	"github.com/vpetrenko/tracklet/internal/client/models"
	"github.com/vpetrenko/tracklet/internal/client/repositories/metadata"
	"github.com/vpetrenko/tracklet/internal/dbx"
	"github.com/vpetrenko/tracklet/internal/logging"
)

// State is the session state machine position.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Durable storage keys for the persisted session triple.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// Store holds the current session in memory and mirrors it into durable
// local storage so it survives restarts. It implements api.TokenSource:
// outbound calls read the token at call time, and an authorization failure
// drives a forced logout rather than a retry.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	client  api.Client
	log     logging.Logger
	current models.Session
}

// NewStore returns an anonymous store backed by the given local database.
// Call SetClient before using the credential exchanges; the setter exists
// because the HTTP client needs the store as its token source.
func NewStore(db *sql.DB, log logging.Logger) *Store {
	return &Store{db: db, log: log.With("component", "session")}
}

// SetClient binds the API client used for credential exchanges.
func (s *Store) SetClient(c api.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

func (s *Store) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

// Restore loads the persisted session, if any, into memory. It runs
// synchronously at startup, before anything issues protected calls. A
// persisted access token whose exp claim is already in the past is treated
// as no session at all and the stale triple is cleared.
func (s *Store) Restore(ctx context.Context) error {
	repo := s.repo()

	access, err := repo.Get(ctx, keyAccessToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if len(access) == 0 {
		return nil
	}

	if tokenExpired(string(access)) {
		s.log.Info(ctx, "persisted token expired, discarding session")
		return repo.Clear(ctx)
	}

	refresh, err := repo.Get(ctx, keyRefreshToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	rawUser, err := repo.Get(ctx, keyUser)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		// The triple is persisted together; a broken user record means
		// the stored state cannot be trusted.
		s.log.Warn(ctx, "persisted user record unreadable, discarding session", "error", err)
		return repo.Clear(ctx)
	}

	s.mu.Lock()
	s.current = models.Session{User: &user, AccessToken: string(access), RefreshToken: string(refresh)}
	s.mu.Unlock()

	s.log.Info(ctx, "session restored", "user", user.Username)
	return nil
}

// tokenExpired inspects the exp claim without verifying the signature: the
// client has no key material and only needs to classify a stored token as
// known-expired. Opaque (non-JWT) tokens are assumed live until the backend
// says otherwise.
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// Login exchanges credentials for a session. On success the triple is
// applied atomically; on any failure the prior session is left untouched.
func (s *Store) Login(ctx context.Context, username, password string) error {
	sess, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return s.apply(ctx, sess)
}

// LoginWithGoogle exchanges a third-party identity token for a session via
// the backend. Same atomicity and error contract as Login.
func (s *Store) LoginWithGoogle(ctx context.Context, credential string) error {
	sess, err := s.client.LoginWithGoogle(ctx, credential)
	if err != nil {
		return err
	}
	return s.apply(ctx, sess)
}

// Register creates an account and logs in with the resulting session.
// api.ErrConflict signals the identity already exists.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	sess, err := s.client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	return s.apply(ctx, sess)
}

// apply persists the triple in one transaction and only then replaces the
// in-memory session, so a partially-applied session is never observable.
func (s *Store) apply(ctx context.Context, sess models.Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("serialize user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, []byte(sess.AccessToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyRefreshToken, []byte(sess.RefreshToken)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, rawUser)
	})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.current = sess
	s.log.Info(ctx, "session established", "user", sess.User.Username)
	return nil
}

// Logout clears the in-memory and persisted session unconditionally. It is
// idempotent: logging out while anonymous is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.AccessToken == "" {
		return nil
	}

	s.current = models.Session{}
	if err := s.repo().Clear(ctx); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	s.log.Info(ctx, "logged out")
	return nil
}

// AccessToken implements api.TokenSource.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.AccessToken
}

// AuthFailed implements api.TokenSource: the backend rejected the token, so
// the session transitions to Anonymous. Expiry is a forced logout, never a
// retry.
func (s *Store) AuthFailed(ctx context.Context) {
	if err := s.Logout(ctx); err != nil {
		s.log.Error(ctx, "failed to clear session after auth failure", "error", err)
	}
}

// State returns the current state machine position.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.AccessToken == "" {
		return StateAnonymous
	}
	return StateAuthenticated
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// User returns the authenticated identity, or nil when anonymous.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.User == nil {
		return nil
	}
	u := *s.current.User
	return &u
}
