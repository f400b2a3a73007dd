package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a user name and password and creates the account on
// the server. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for credentials and authenticates.
//
// The method first attempts an online login. If the server cannot be
// reached (errors.Is(err, client.ErrSyncFailure)) it falls back to the
// credentials cached by the last online login. On success the previous
// session's data is restored from the cache and, when online, reconciled
// with the server.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	online := true
	_, err = a.authService.OnlineLogin(ctx, userName, password)
	if errors.Is(err, client.ErrSyncFailure) {
		a.log.Warn(ctx, "server unavailable, trying offline login", "error", err)
		online = false
		_, err = a.authService.OfflineLogin(ctx, userName, password)
	}
	if err != nil {
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	a.userName = userName
	if online {
		a.engine.SetOnline(true)
		fmt.Fprintln(a.out, "Logged in.")
	} else {
		fmt.Fprintln(a.out, "Logged in offline; changes will sync when the server is back.")
	}
	a.engine.Resume(ctx)
	return nil
}

// Logout waits for pending pushes, then clears the session together with
// the cached credentials and records.
func (a *App) Logout(ctx context.Context) error {
	a.engine.Wait()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.engine.Reset()
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
