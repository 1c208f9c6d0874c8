// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - signup, login, logout and whoami.
//
// Examples:
//   docchat signup --email me@example.com --username me
//   docchat login --email me@example.com
//   echo "$PASSWORD" | docchat login --email me@example.com
//   docchat whoami --remote

package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/model"
)

// HandleLogin signs in with --email (prompted if missing) and a password
// read without echo.
func HandleLogin(app *App, args Args) error {
	p := NewArgParser(args.Raw)
	return interactiveLogin(app, p.Flag("email"))
}

func interactiveLogin(app *App, email string) error {
	in := bufio.NewReader(app.In)
	var err error
	if email == "" {
		email, err = promptInput(in, app.ErrOut, "Email: ")
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	if email == "" {
		return usageErr("login", "an email is required", "docchat login --email ADDR")
	}
	password, err := promptPassword(in, app.terminalIn(), app.ErrOut, "Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if err := app.SignIn(context.Background(), email, password); err != nil {
		return err
	}
	user, _ := app.Auth.User()
	fmt.Fprintln(app.ErrOut, RenderStatus(true, "Signed in as "+displayUser(user)))
	return nil
}

// HandleSignup creates an account from --email and --username (prompted if
// missing) and a password read without echo, then saves the new token.
func HandleSignup(app *App, args Args) error {
	p := NewArgParser(args.Raw)
	in := bufio.NewReader(app.In)

	data := api.SignupData{Email: p.Flag("email"), Username: p.Flag("username")}
	var err error
	if data.Email == "" {
		if data.Email, err = promptInput(in, app.ErrOut, "Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	if data.Username == "" {
		if data.Username, err = promptInput(in, app.ErrOut, "Username: "); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	if data.Email == "" || data.Username == "" {
		return usageErr("signup", "an email and a username are required", "docchat signup --email ADDR --username NAME")
	}
	if data.Password, err = promptPassword(in, app.terminalIn(), app.ErrOut, "Password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if data.Password == "" {
		return usageErr("signup", "a password is required", "docchat signup --email ADDR --username NAME")
	}

	if err := app.SignUp(context.Background(), data); err != nil {
		return err
	}
	user, _ := app.Auth.User()
	if args.JSON {
		return NewJSONResponse("signup", map[string]interface{}{"user": user}).Fprint(app.Out)
	}
	fmt.Fprintln(app.ErrOut, RenderStatus(true, "Account created, signed in as "+displayUser(user)))
	return nil
}

// HandleLogout forgets saved credentials.
func HandleLogout(app *App, args Args) error {
	app.Auth.Clear()
	app.Client.InvalidateDocuments()
	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"signed_out": true}).Fprint(app.Out)
	}
	if !args.Quiet {
		fmt.Fprintln(app.Out, "Signed out.")
	}
	return nil
}

// whoamiResult is the --json payload for whoami.
type whoamiResult struct {
	User     model.User `json:"user"`
	Verified bool       `json:"verified"`
	Override bool       `json:"token_from_environment"`
}

// HandleWhoami shows the saved user. With --remote the token is checked
// against the service; a rejected token is cleared.
func HandleWhoami(app *App, args Args) error {
	if err := app.RequireAuth(); err != nil {
		return err
	}
	p := NewArgParser(args.Raw, "remote")

	user, _ := app.Auth.User()
	verified := false
	if p.BoolFlag("remote") {
		res := app.Client.Me(context.Background())
		if res.AuthExpired {
			app.Auth.Clear()
			return ErrNotSignedIn
		}
		if !res.OK() {
			return res.Err
		}
		user, verified = res.Value, true
	}

	if args.JSON {
		return NewJSONResponse("whoami", whoamiResult{User: user, Verified: verified, Override: app.Auth.HasOverride()}).Fprint(app.Out)
	}
	fmt.Fprintln(app.Out, RenderField("User", displayUser(user)))
	if user.ID != "" {
		fmt.Fprintln(app.Out, RenderField("ID", user.ID))
	}
	if app.Auth.HasOverride() {
		fmt.Fprintln(app.Out, RenderField("Token", "from DOCCHAT_TOKEN"))
	}
	if verified {
		fmt.Fprintln(app.Out, RenderStatus(true, "token accepted by "+app.Client.BaseURL()))
	}
	return nil
}

func displayUser(u model.User) string {
	switch {
	case u.Username != "" && u.Email != "":
		return u.Username + " <" + u.Email + ">"
	case u.Email != "":
		return u.Email
	case u.Username != "":
		return u.Username
	default:
		return "(unknown user)"
	}
}
