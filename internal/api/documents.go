// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/model"
)

// documentWire mirrors the service's document JSON; timestamps arrive in
// several ISO 8601 shapes.
type documentWire struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	Filename           string  `json:"filename"`
	FileSize           int64   `json:"file_size"`
	MimeType           *string `json:"mime_type"`
	VectorCollectionID *string `json:"vector_collection_id"`
	ProcessingStatus   string  `json:"processing_status"`
	ProcessingError    *string `json:"processing_error"`
	UploadedAt         string  `json:"uploaded_at"`
}

func (w documentWire) toModel() model.Document {
	return model.Document{
		ID:                 w.ID,
		UserID:             w.UserID,
		Filename:           w.Filename,
		FileSize:           w.FileSize,
		MimeType:           deref(w.MimeType),
		VectorCollectionID: w.VectorCollectionID,
		ProcessingStatus:   w.ProcessingStatus,
		ProcessingError:    deref(w.ProcessingError),
		UploadedAt:         parseServerTime(w.UploadedAt),
	}
}

// ListDocuments returns the caller's documents, reusing a recent listing
// when the cache is enabled.
func (c *Client) ListDocuments(ctx context.Context) Result[[]model.Document] {
	if c.docs != nil {
		if cached, ok := c.docs.Get(documentsCacheKey); ok {
			return Ok(cloneDocuments(cached.([]model.Document)))
		}
	}

	var wire []documentWire
	if err := c.doJSON(ctx, http.MethodGet, "/api/upload/", nil, &wire); err != nil {
		return Fail[[]model.Document](err)
	}

	docs := make([]model.Document, 0, len(wire))
	for _, w := range wire {
		docs = append(docs, w.toModel())
	}

	if c.docs != nil {
		c.docs.SetDefault(documentsCacheKey, cloneDocuments(docs))
	}
	return Ok(docs)
}

// UploadDocument uploads content under filename as multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) Result[model.Document] {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return Fail[model.Document](fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := io.Copy(part, content); err != nil {
		return Fail[model.Document](fmt.Errorf("failed to read upload: %w", err))
	}
	if err := mw.Close(); err != nil {
		return Fail[model.Document](fmt.Errorf("failed to finish form: %w", err))
	}

	var wire documentWire
	if err := c.do(ctx, http.MethodPost, "/api/upload/", mw.FormDataContentType(), &buf, &wire); err != nil {
		return Fail[model.Document](err)
	}

	c.InvalidateDocuments()
	doc := wire.toModel()
	c.log.Info("document uploaded", zap.String("document_id", doc.ID), zap.String("filename", doc.Filename))
	return Ok(doc)
}

// UploadFile uploads the file at path.
func (c *Client) UploadFile(ctx context.Context, path string) Result[model.Document] {
	f, err := os.Open(path)
	if err != nil {
		return Fail[model.Document](fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer f.Close()
	return c.UploadDocument(ctx, filepath.Base(path), f)
}

// DeleteDocument removes the document with the given id.
func (c *Client) DeleteDocument(ctx context.Context, id string) Result[struct{}] {
	if err := c.do(ctx, http.MethodDelete, "/api/upload/"+url.PathEscape(id), "", nil, nil); err != nil {
		return Fail[struct{}](err)
	}
	c.InvalidateDocuments()
	c.log.Info("document deleted", zap.String("document_id", id))
	return Ok(struct{}{})
}

// InvalidateDocuments drops any cached listing.
func (c *Client) InvalidateDocuments() {
	if c.docs != nil {
		c.docs.Delete(documentsCacheKey)
	}
}

func cloneDocuments(in []model.Document) []model.Document {
	out := make([]model.Document, len(in))
	copy(out, in)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
