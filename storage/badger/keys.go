package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/rpad300/docpipe/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec"
	documentHashPrefix = "docha"
	documentNamePrefix = "docna"
	documentIDSeq      = "docrecseq"
	knowledgePrefix    = "knlrec"
	knowledgeKeyPrefix = "knlkey"
	knowledgeDocPrefix = "knldoc"
	knowledgeIDSeq     = "knlrecseq"
)

// makeDocumentKey generates a key for a document by ID.
// The ID is written in BigEndian order so lexicographic iteration visits
// documents in insertion order.
func makeDocumentKey(id core.ID) []byte {
	prefix := documentPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDocumentHashKey generates a key for the content hash index.
func makeDocumentHashKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentHashPrefix, hash))
}

// makeDocumentNameKey generates a key for the filename index.
func makeDocumentNameKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentNamePrefix, name))
}

// makeKnowledgeKey generates a key for a knowledge entry by ID.
func makeKnowledgeKey(id core.ID) []byte {
	prefix := knowledgePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeKnowledgeDedupKey generates a key for the (kind, normalized key)
// uniqueness index.
func makeKnowledgeDedupKey(kind, key string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", knowledgeKeyPrefix, kind, key))
}

// makeKnowledgeDocKey generates a composite key for the document index.
// Format: prefix:docID:entryID, both BigEndian for ordered iteration.
func makeKnowledgeDocKey(docID, entryID core.ID) []byte {
	prefix := knowledgeDocPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(entryID))
	return buf
}

// makePartialKnowledgeDocKey generates the iteration prefix for one
// document's knowledge entries.
func makePartialKnowledgeDocKey(docID core.ID) []byte {
	prefix := knowledgeDocPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", name))
}
