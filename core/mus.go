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
	"encoding/json"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted record types. The Document layout is
// flat enough that the serializers are written by hand; the Extraction blob
// travels inside the record as JSON, which is its native encoding (it is
// recovered from model JSON in the first place).
var (
	IDMUS             = idMUS{}
	DocumentMUS       = documentMUS{}
	CheckpointMUS     = checkpointMUS{}
	KnowledgeEntryMUS = knowledgeEntryMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(d.Id), bs)
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.ContentHash, bs[n:])
	n += ord.String.Marshal(d.Provider, bs[n:])
	n += ord.String.Marshal(d.Model, bs[n:])
	n += varint.Int.Marshal(int(d.Status), bs[n:])
	n += ord.String.Marshal(d.Error, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(d.CreatedAt), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(d.UpdatedAt), bs[n:])
	n += ord.String.Marshal(extractionToJSON(d.Extraction), bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var (
		id      uint64
		status  int
		created int64
		updated int64
		blob    string
		n1      int
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	d.Id = ID(id)
	if d.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if d.ContentHash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if d.Provider, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if d.Model, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.Status = DocumentStatus(status)
	if d.Error, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if created, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.CreatedAt = microToTime(created)
	if updated, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.UpdatedAt = microToTime(updated)
	if blob, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.Extraction, err = extractionFromJSON(blob)
	return
}

func (documentMUS) Size(d Document) (size int) {
	size = varint.Uint64.Size(uint64(d.Id))
	size += ord.String.Size(d.Filename)
	size += ord.String.Size(d.ContentHash)
	size += ord.String.Size(d.Provider)
	size += ord.String.Size(d.Model)
	size += varint.Int.Size(int(d.Status))
	size += ord.String.Size(d.Error)
	size += varint.Int64.Size(timeToMicro(d.CreatedAt))
	size += varint.Int64.Size(timeToMicro(d.UpdatedAt))
	size += ord.String.Size(extractionToJSON(d.Extraction))
	return size
}

func (m documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(c Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(c.Name, bs)
	n += varint.Uint64.Marshal(uint64(c.LastDocumentId), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(c.UpdatedAt), bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (c Checkpoint, n int, err error) {
	var (
		id      uint64
		updated int64
		n1      int
	)
	if c.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if id, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	c.LastDocumentId = ID(id)
	if updated, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	c.UpdatedAt = microToTime(updated)
	return
}

func (checkpointMUS) Size(c Checkpoint) (size int) {
	size = ord.String.Size(c.Name)
	size += varint.Uint64.Size(uint64(c.LastDocumentId))
	size += varint.Int64.Size(timeToMicro(c.UpdatedAt))
	return size
}

func (m checkpointMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

type knowledgeEntryMUS struct{}

func (knowledgeEntryMUS) Marshal(e KnowledgeEntry, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(e.Id), bs)
	n += varint.Uint64.Marshal(uint64(e.DocumentId), bs[n:])
	n += ord.String.Marshal(e.Kind, bs[n:])
	n += ord.String.Marshal(e.Key, bs[n:])
	n += ord.String.Marshal(e.Status, bs[n:])
	n += ord.String.Marshal(e.Answer, bs[n:])
	n += ord.String.Marshal(e.Payload, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(e.CreatedAt), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(e.UpdatedAt), bs[n:])
	return n
}

func (knowledgeEntryMUS) Unmarshal(bs []byte) (e KnowledgeEntry, n int, err error) {
	var (
		id      uint64
		created int64
		updated int64
		n1      int
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	e.Id = ID(id)
	if id, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	e.DocumentId = ID(id)
	if e.Kind, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Key, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Status, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Answer, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Payload, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if created, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	e.CreatedAt = microToTime(created)
	if updated, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	e.UpdatedAt = microToTime(updated)
	return
}

func (knowledgeEntryMUS) Size(e KnowledgeEntry) (size int) {
	size = varint.Uint64.Size(uint64(e.Id))
	size += varint.Uint64.Size(uint64(e.DocumentId))
	size += ord.String.Size(e.Kind)
	size += ord.String.Size(e.Key)
	size += ord.String.Size(e.Status)
	size += ord.String.Size(e.Answer)
	size += ord.String.Size(e.Payload)
	size += varint.Int64.Size(timeToMicro(e.CreatedAt))
	size += varint.Int64.Size(timeToMicro(e.UpdatedAt))
	return size
}

func (m knowledgeEntryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

// Times persist as Unix microseconds; the zero time round-trips as zero.
func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func extractionToJSON(r *ExtractionResult) string {
	if r == nil {
		return ""
	}
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

func extractionFromJSON(blob string) (*ExtractionResult, error) {
	if blob == "" {
		return nil, nil
	}
	var r ExtractionResult
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
