// Copyright 2026 Rui Dias
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validDocument() *Document {
	return &Document{
		Filename:    "notes.txt",
		ContentHash: HashContent("notes"),
		Provider:    "local",
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Document)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(d *Document) {},
		},
		{
			name:    "empty filename",
			mutate:  func(d *Document) { d.Filename = "" },
			wantErr: ErrEmptyFilename,
		},
		{
			name:    "empty hash",
			mutate:  func(d *Document) { d.ContentHash = "" },
			wantErr: ErrEmptyContentHash,
		},
		{
			name:    "empty provider",
			mutate:  func(d *Document) { d.Provider = "" },
			wantErr: ErrEmptyProvider,
		},
		{
			name:    "invalid status",
			mutate:  func(d *Document) { d.Status = DocumentStatus(99) },
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "future timestamp",
			mutate:  func(d *Document) { d.CreatedAt = time.Now().Add(time.Hour) },
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := ValidateDocument(doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidDocument)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateDocumentNil(t *testing.T) {
	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
}

func TestValidateStatus(t *testing.T) {
	assert.NoError(t, ValidateStatus(StatusPending))
	assert.NoError(t, ValidateStatus(StatusFailed))
	assert.ErrorIs(t, ValidateStatus(DocumentStatus(0)), ErrInvalidStatus)
}
