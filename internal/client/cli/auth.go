package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/vpetrenko/tracklet/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, email, and password and attempts to
// create an account. On success the store holds the new session, so the
// user is logged in immediately. The password bytes are wiped before
// returning.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.store.Register(ctx, username, email, string(password)); err != nil {
		return err
	}

	fmt.Println("Registered and logged in.")
	return nil
}

// Login prompts for credentials and authenticates. On failure the previous
// session, if any, is left untouched by the store. The password bytes are
// wiped before returning.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.store.Login(ctx, username, string(password)); err != nil {
		return err
	}

	fmt.Println("Logged in.")
	return nil
}

// GoogleLogin exchanges a Google identity credential for a session. The
// credential is obtained out of band (the backend's google-login endpoint
// verifies it with the provider).
func (a *App) GoogleLogin(ctx context.Context, credential string) error {
	if credential == "" {
		return fmt.Errorf("usage: google <credential>")
	}
	if err := a.store.LoginWithGoogle(ctx, credential); err != nil {
		return err
	}
	fmt.Println("Logged in.")
	return nil
}

// Logout drops the in-memory and persisted session. Safe to call when
// already logged out.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
