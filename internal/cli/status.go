// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Service, account and storage status.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/docchat/internal/model"
)

// statusTimeout bounds the service probes.
const statusTimeout = 10 * time.Second

// StatusReport is the --json payload for status.
type StatusReport struct {
	APIURL       string `json:"api_url"`
	SignedIn     bool   `json:"signed_in"`
	User         string `json:"user,omitempty"`
	TokenValid   *bool  `json:"token_valid,omitempty"`
	ServiceError string `json:"service_error,omitempty"`

	Documents        *int `json:"documents,omitempty"`
	IndexedDocuments *int `json:"indexed_documents,omitempty"`

	StorageBackend string `json:"storage_backend"`
	DataDir        string `json:"data_dir"`
	Turns          int    `json:"turns"`
	ConversationID string `json:"conversation_id,omitempty"`
	ConfigPath     string `json:"config_path,omitempty"`
	LogFile        string `json:"log_file,omitempty"`
}

// CollectStatus probes the service (when signed in) and reads local state.
func CollectStatus(ctx context.Context, app *App) StatusReport {
	conv := app.History.Load()
	r := StatusReport{
		APIURL:         app.Client.BaseURL(),
		SignedIn:       app.Auth.IsAuthenticated(),
		StorageBackend: app.Config.Storage.Backend,
		DataDir:        app.Config.Storage.DataDir,
		Turns:          conv.Len(),
		ConversationID: conv.ConversationID(),
		ConfigPath:     app.ConfigPath,
		LogFile:        app.Config.Log.File,
	}
	if u, ok := app.Auth.User(); ok {
		r.User = displayUser(u)
	}
	if !r.SignedIn {
		return r
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	res := app.Client.ListDocuments(ctx)
	valid := !res.AuthExpired
	r.TokenValid = &valid
	if !res.OK() {
		r.ServiceError = res.Err.Error()
		return r
	}
	total, indexed := len(res.Value), model.CountIndexed(res.Value)
	r.Documents, r.IndexedDocuments = &total, &indexed
	return r
}

// HandleStatus prints the status report.
func HandleStatus(app *App, args Args) error {
	r := CollectStatus(context.Background(), app)
	if args.JSON {
		return NewJSONResponse("status", r).Fprint(app.Out)
	}

	out := app.Out
	fmt.Fprintln(out, TitleStyle.Render("docchat status"))

	fmt.Fprintln(out, SectionStyle.Render("Service"))
	fmt.Fprintln(out, RenderField("URL", r.APIURL))
	switch {
	case !r.SignedIn:
		fmt.Fprintln(out, RenderField("Account", WarningStyle.Render("not signed in")))
	case r.TokenValid != nil && !*r.TokenValid:
		fmt.Fprintln(out, RenderField("Account", ErrorStyle.Render("session expired, run docchat login")))
	default:
		fmt.Fprintln(out, RenderField("Account", r.User))
	}
	if r.ServiceError != "" {
		fmt.Fprintln(out, RenderStatus(false, r.ServiceError))
	}
	if r.Documents != nil {
		fmt.Fprintln(out, RenderField("Documents", fmt.Sprintf("%d of %d indexed", *r.IndexedDocuments, *r.Documents)))
	}

	fmt.Fprintln(out, SectionStyle.Render("Local"))
	fmt.Fprintln(out, RenderField("Storage", r.StorageBackend+" ("+r.DataDir+")"))
	fmt.Fprintln(out, RenderField("Conversation", fmt.Sprintf("%d turns", r.Turns)))
	if r.ConversationID != "" {
		fmt.Fprintln(out, RenderField("Server ID", r.ConversationID))
	}
	if r.ConfigPath != "" {
		fmt.Fprintln(out, RenderField("Config", r.ConfigPath))
	}
	if r.LogFile != "" {
		fmt.Fprintln(out, RenderField("Log", r.LogFile))
	}
	return nil
}
