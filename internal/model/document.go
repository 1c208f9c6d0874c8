// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and documents.
package model

import "time"

// Document processing states reported by the document store.
const (
	ProcessingPending    = "pending"
	ProcessingProcessing = "processing"
	ProcessingCompleted  = "completed"
	ProcessingFailed     = "failed"
)

// Document is an uploaded file as reported by the document store.
type Document struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type,omitempty"`

	// VectorCollectionID is non-nil once the document has been indexed.
	VectorCollectionID *string `json:"vector_collection_id"`

	ProcessingStatus string    `json:"processing_status,omitempty"`
	ProcessingError  string    `json:"processing_error,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Indexed reports whether the document can be used as chat context.
func (d Document) Indexed() bool {
	return d.VectorCollectionID != nil
}

// CountIndexed returns how many documents are indexed.
func CountIndexed(docs []Document) int {
	n := 0
	for _, d := range docs {
		if d.Indexed() {
			n++
		}
	}
	return n
}

// User is the identity supplied by the auth provider.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
