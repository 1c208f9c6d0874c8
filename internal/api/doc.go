// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the document-chat service.
//
// Every call returns a Result that is exactly one of ok, auth-expired or
// failed. A 401 never triggers side effects inside the client; callers decide
// what an expired credential means for them.
//
// # Key Types
//
//   - Client: Chat, document and auth endpoints with bearer authentication
//   - Result: Tagged outcome of one call
//   - Error: Non-2xx response carrying the server's detail message
//   - ChatResponse: Answer, cited sources and conversation id
//
// # Usage
//
//	client := api.New(cfg.API.BaseURL, api.WithTokenSource(authStore))
//	res := client.Ask(ctx, "What is in plan.pdf?", "")
//	switch {
//	case res.OK():
//	    fmt.Println(res.Value.Answer)
//	case res.AuthExpired:
//	    // prompt for login
//	default:
//	    fmt.Println(api.Detail(res.Err))
//	}
package api
