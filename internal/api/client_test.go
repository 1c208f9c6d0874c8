// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, opts...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// CHAT
// =============================================================================

func TestAsk_Success(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Write([]byte(`{
			"answer": "The kitchen is in the north wing.",
			"sources": [{"document_id": "d1", "filename": "plan.pdf", "chunk_index": 2, "relevance_score": 0.87}],
			"conversation_id": "c-1",
			"chat_context_used": false
		}`))
	}, WithTokenSource(StaticToken("tok")))

	res := client.Ask(context.Background(), "Where is the kitchen?", "")
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, "The kitchen is in the north wing.", res.Value.Answer)
	require.Len(t, res.Value.Sources, 1)
	assert.Equal(t, "plan.pdf", res.Value.Sources[0].Filename)
	assert.Equal(t, 2, res.Value.Sources[0].ChunkIndex)
	assert.InDelta(t, 0.87, res.Value.Sources[0].RelevanceScore, 1e-9)
	assert.Equal(t, "c-1", res.Value.ConversationID)

	assert.Equal(t, "Where is the kitchen?", got["query"])
	assert.Contains(t, got, "conversation_id")
	assert.Nil(t, got["conversation_id"], "empty conversation id is sent as null")
}

func TestAsk_SendsConversationID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ConversationID)
		assert.Equal(t, "c-7", *req.ConversationID)
		w.Write([]byte(`{"answer": "ok", "sources": [], "conversation_id": null}`))
	})

	res := client.Ask(context.Background(), "q", "c-7")
	require.True(t, res.OK())
	assert.Empty(t, res.Value.ConversationID)
	assert.Empty(t, res.Value.Sources)
}

func TestAsk_ErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Vector store unavailable"})
	})

	res := client.Ask(context.Background(), "q", "")
	assert.False(t, res.OK())
	assert.False(t, res.AuthExpired)
	assert.Equal(t, "Vector store unavailable", Detail(res.Err))

	var apiErr *Error
	require.ErrorAs(t, res.Err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestAsk_ValidationDetailList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": [{"loc": ["body", "query"], "msg": "field required"}]}`))
	})

	res := client.Ask(context.Background(), "q", "")
	assert.Equal(t, "field required", Detail(res.Err))
}

func TestAsk_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})

	res := client.Ask(context.Background(), "q", "")
	assert.False(t, res.OK())
	assert.True(t, res.AuthExpired)
	assert.ErrorIs(t, res.Err, ErrAuthExpired)
	assert.Equal(t, "Could not validate credentials", Detail(res.Err))
}

func TestAsk_MalformedResponse(t *testing.T) {
	tests := map[string]string{
		"not json":       "<html>oops</html>",
		"missing answer": `{"sources": []}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			res := client.Ask(context.Background(), "q", "")
			assert.False(t, res.OK())
			assert.False(t, res.AuthExpired)
			assert.ErrorIs(t, res.Err, ErrMalformedResponse)
			assert.Empty(t, Detail(res.Err))
		})
	}
}

func TestAsk_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := New(url).Ask(context.Background(), "q", "")
	assert.False(t, res.OK())
	assert.False(t, res.AuthExpired)
	assert.Error(t, res.Err)
}

func TestAsk_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	res := client.Ask(context.Background(), "q", "")
	assert.Error(t, res.Err)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

const documentsJSON = `[
	{"id": "d1", "user_id": "u1", "filename": "plan.pdf", "file_size": 2048, "mime_type": "application/pdf",
	 "vector_collection_id": "user_u1", "processing_status": "completed", "processing_error": null,
	 "task_id": null, "uploaded_at": "2025-01-02T03:04:05.123456"},
	{"id": "d2", "user_id": "u1", "filename": "notes.txt", "file_size": 10, "mime_type": null,
	 "vector_collection_id": null, "processing_status": "processing", "processing_error": null,
	 "task_id": "t1", "uploaded_at": "2025-01-02T03:04:06Z"}
]`

func TestListDocuments_DecodesAndCaches(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/upload/", r.URL.Path)
		w.Write([]byte(documentsJSON))
	})

	res := client.ListDocuments(context.Background())
	require.True(t, res.OK(), "err: %v", res.Err)
	require.Len(t, res.Value, 2)

	d1 := res.Value[0]
	assert.True(t, d1.Indexed())
	assert.Equal(t, "application/pdf", d1.MimeType)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), d1.UploadedAt)
	assert.False(t, res.Value[1].Indexed())
	assert.Equal(t, "processing", res.Value[1].ProcessingStatus)

	again := client.ListDocuments(context.Background())
	require.True(t, again.OK())
	assert.Len(t, again.Value, 2)
	assert.EqualValues(t, 1, calls.Load(), "second listing should come from cache")

	client.InvalidateDocuments()
	client.ListDocuments(context.Background())
	assert.EqualValues(t, 2, calls.Load())
}

func TestListDocuments_CacheDisabled(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}, WithDocumentCacheTTL(0))

	client.ListDocuments(context.Background())
	client.ListDocuments(context.Background())
	assert.EqualValues(t, 2, calls.Load())
}

func TestUploadDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "plan.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.7", string(data))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "d9", "filename": "plan.pdf", "file_size": 8, "vector_collection_id": null,
			"processing_status": "pending", "uploaded_at": "2025-01-02T03:04:05"}`))
	})

	res := client.UploadDocument(context.Background(), "/tmp/x/plan.pdf", strings.NewReader("%PDF-1.7"))
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, "d9", res.Value.ID)
	assert.Equal(t, "pending", res.Value.ProcessingStatus)
}

func TestUploadDocument_RejectedType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "File type not supported"})
	})
	res := client.UploadDocument(context.Background(), "a.exe", strings.NewReader("MZ"))
	assert.Equal(t, "File type not supported", Detail(res.Err))
}

func TestDeleteDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/upload/d1":
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Document not found"})
		}
	})

	assert.True(t, client.DeleteDocument(context.Background(), "d1").OK())

	res := client.DeleteDocument(context.Background(), "missing")
	assert.ErrorIs(t, res.Err, ErrNotFound)
	assert.Equal(t, "Document not found", Detail(res.Err))
}

// =============================================================================
// AUTH
// =============================================================================

func TestSignInAndMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			var creds Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds.Password != "hunter2" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
				return
			}
			w.Write([]byte(`{"access_token": "jwt", "token_type": "bearer",
				"user": {"id": "u1", "email": "a@b.c", "username": "ann", "created_at": "2024-12-01T00:00:00"}}`))
		case "/api/auth/me":
			assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id": "u1", "email": "a@b.c", "username": "ann", "created_at": "2024-12-01T00:00:00"}`))
		}
	}, WithTokenSource(StaticToken("jwt")))

	res := client.SignIn(context.Background(), Credentials{Email: "a@b.c", Password: "hunter2"})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, "jwt", res.Value.AccessToken)
	assert.Equal(t, "ann", res.Value.User.Username)

	bad := client.SignIn(context.Background(), Credentials{Email: "a@b.c", Password: "nope"})
	assert.True(t, bad.AuthExpired)
	assert.Equal(t, "Incorrect email or password", Detail(bad.Err))

	me := client.Me(context.Background())
	require.True(t, me.OK())
	assert.Equal(t, "a@b.c", me.Value.Email)
	assert.Equal(t, 2024, me.Value.CreatedAt.Year())
}

func TestSignUp(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/signup", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var data SignupData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		if data.Username == "taken" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already taken"})
			return
		}
		assert.Equal(t, SignupData{Email: "new@b.c", Username: "newbie", Password: "s3cret"}, data)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"access_token": "jwt-new",
			"token_type":   "bearer",
			"user":         map[string]string{"id": "u9", "email": "new@b.c", "username": "newbie", "created_at": "2025-02-01T10:00:00"},
		})
	})

	res := client.SignUp(context.Background(), SignupData{Email: "new@b.c", Username: "newbie", Password: "s3cret"})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, "jwt-new", res.Value.AccessToken)
	assert.Equal(t, "u9", res.Value.User.ID)
	assert.Equal(t, "newbie", res.Value.User.Username)

	taken := client.SignUp(context.Background(), SignupData{Email: "x@b.c", Username: "taken", Password: "pw"})
	assert.False(t, taken.OK())
	assert.False(t, taken.AuthExpired)
	assert.Equal(t, "Username already taken", Detail(taken.Err))
}

// =============================================================================
// RESULT / ERROR
// =============================================================================

func TestFail_Classification(t *testing.T) {
	r := Fail[int](&Error{Status: http.StatusUnauthorized})
	assert.True(t, r.AuthExpired)

	r = Fail[int](errors.New("boom"))
	assert.False(t, r.AuthExpired)
	assert.False(t, r.OK())

	r = Fail[int](nil)
	assert.Error(t, r.Err)

	ok := Ok(3)
	v, err := ok.Unpack()
	assert.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "service error (HTTP 502)", (&Error{Status: 502}).Error())
	assert.Equal(t, "service error (HTTP 400): bad", (&Error{Status: 400, Detail: "bad"}).Error())
	assert.Empty(t, Detail(errors.New("plain")))
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").BaseURL())
	assert.Equal(t, "http://x", New("http://x/").BaseURL())
}
