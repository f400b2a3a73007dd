// Package services contains application services for the auditkeeper client.
// This file defines the authentication service: online/offline login,
// register, logout and housekeeping of the local (offline) auth metadata.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/client/repositories/cache"
	"github.com/dmitrijs2005/auditkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/auditkeeper/internal/cryptox"
	"github.com/dmitrijs2005/auditkeeper/internal/dbx"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

// ErrInvalidCredentials is returned when an offline password check fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server, start a session and
//     persist what offline login needs.
//   - OfflineLogin: verify credentials against locally cached data and
//     restore the cached session.
//   - Register: create a new user on the server.
//   - Logout: end the session and wipe local auth data and cached records.
//   - Ping: check server liveness.
type AuthService interface {
	OnlineLogin(ctx context.Context, username string, password []byte) (*identity.User, error)
	OfflineLogin(ctx context.Context, username string, password []byte) (*identity.User, error)
	Register(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	client  client.Client
	db      *sql.DB
	session *identity.Session
	log     logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client,
// local database and session.
func NewAuthService(c client.Client, db *sql.DB, session *identity.Session, log logging.Logger) AuthService {
	return &authService{client: c, db: db, session: session, log: log.With("module", "auth")}
}

func (a *authService) metadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// OfflineLogin derives the master key from the password and the locally
// stored salt and checks it against the cached verifier. On success the
// cached access token is put back into the session; it may have expired, in
// which case remote calls fail as unauthenticated and the app runs from
// cache. Missing local data yields client.ErrLocalDataNotAvailable.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) (*identity.User, error) {
	repo := a.metadataRepo()

	saved, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read offline data: %w", err)
	}
	savedUsername, ok := saved[metadata.KeyUsername]
	if !ok || saved[metadata.KeySalt] == nil || saved[metadata.KeyVerifier] == nil {
		return nil, client.ErrLocalDataNotAvailable
	}
	if string(savedUsername) != username {
		return nil, ErrInvalidCredentials
	}

	key := cryptox.DeriveMasterKey(password, saved[metadata.KeySalt])
	defer cryptox.Wipe(key)
	if !cryptox.VerifierMatches(saved[metadata.KeyVerifier], cryptox.MakeVerifier(key)) {
		return nil, ErrInvalidCredentials
	}

	user := identity.User{
		ID:    string(saved[metadata.KeyUserID]),
		Name:  username,
		Token: identity.Token{AccessToken: string(saved[metadata.KeyToken])},
	}
	a.session.SetUser(user)
	a.log.Info(ctx, "offline login", "user", username)
	return &user, nil
}

// OnlineLogin authenticates against the server, starts the session and
// saves username, salt, verifier, user id and token for offline use.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) (*identity.User, error) {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)
	cryptox.Wipe(key)

	res, err := a.client.Login(ctx, username, verifier)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	user := identity.User{ID: res.UserID, Name: username, Token: identity.Token{AccessToken: res.AccessToken}}

	if err := a.saveOfflineData(ctx, user, salt, verifier); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}
	a.session.SetUser(user)
	a.log.Info(ctx, "online login", "user", username)
	return &user, nil
}

func (a *authService) saveOfflineData(ctx context.Context, user identity.User, salt, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		values := map[string][]byte{
			metadata.KeyUsername: []byte(user.Name),
			metadata.KeySalt:     salt,
			metadata.KeyVerifier: verifier,
			metadata.KeyUserID:   []byte(user.ID),
			metadata.KeyToken:    []byte(user.Token.AccessToken),
		}
		for k, v := range values {
			if err := repo.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Register creates a new account on the server. The password never leaves
// the device; only a random salt and the derived verifier are sent.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := cryptox.GenerateSalt(cryptox.SaltSize)
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)
	cryptox.Wipe(key)

	if err := a.client.Register(ctx, username, salt, verifier); err != nil {
		return err
	}
	return nil
}

// Logout ends the session and wipes offline auth data together with the
// cached collections so the next user starts clean.
func (a *authService) Logout(ctx context.Context) error {
	a.session.Clear()
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return cache.NewSQLiteStore(tx).Clear(ctx)
	})
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
