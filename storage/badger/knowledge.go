package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/dedup"
	"github.com/rpad300/docpipe/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository for BadgerDB.
// Entries are append-only rows keyed by a sequence ID, with a (kind, key)
// uniqueness index for duplicate suppression and a per-document index for
// ClearDocument.
type KnowledgeRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(backend *Backend) (*KnowledgeRepository, error) {
	idSeq, err := backend.GetSequence(knowledgeIDSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *KnowledgeRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendFacts adds facts extracted from a document, skipping facts whose
// normalized content already exists in the log.
func (r *KnowledgeRepository) AppendFacts(ctx context.Context, docID core.ID, facts []core.Fact) (int, error) {
	entries := make([]*core.KnowledgeEntry, 0, len(facts))
	for _, f := range facts {
		entry, err := core.NewKnowledgeEntry(docID, core.KindFact, dedup.NormalizeKey(f.Content), f)
		if err != nil {
			return 0, err
		}
		entries = append(entries, entry)
	}
	return r.appendEntries(entries)
}

// AppendRelationships adds relationships keyed by their (from, type, to)
// tuple. Re-creating an existing relationship is a no-op.
func (r *KnowledgeRepository) AppendRelationships(ctx context.Context, docID core.ID, rels []core.Relationship) (int, error) {
	entries := make([]*core.KnowledgeEntry, 0, len(rels))
	for _, rel := range rels {
		entry, err := core.NewKnowledgeEntry(docID, core.KindRelationship, dedup.NormalizeKey(rel.Tuple()), rel)
		if err != nil {
			return 0, err
		}
		entries = append(entries, entry)
	}
	return r.appendEntries(entries)
}

// AppendPeople adds people keyed by normalized name.
func (r *KnowledgeRepository) AppendPeople(ctx context.Context, docID core.ID, people []core.Person) (int, error) {
	entries := make([]*core.KnowledgeEntry, 0, len(people))
	for _, p := range people {
		entry, err := core.NewKnowledgeEntry(docID, core.KindPerson, dedup.NormalizeKey(p.Name), p)
		if err != nil {
			return 0, err
		}
		entries = append(entries, entry)
	}
	return r.appendEntries(entries)
}

// AddQuestions adds questions extracted from a document.
func (r *KnowledgeRepository) AddQuestions(ctx context.Context, docID core.ID, questions []core.Question) (int, error) {
	entries := make([]*core.KnowledgeEntry, 0, len(questions))
	for _, q := range questions {
		entry, err := core.NewKnowledgeEntry(docID, core.KindQuestion, dedup.NormalizeKey(q.Content), q)
		if err != nil {
			return 0, err
		}
		entry.Status = q.Status
		if entry.Status == "" {
			entry.Status = core.QuestionOpen
		}
		entry.Answer = q.Answer
		entries = append(entries, entry)
	}
	return r.appendEntries(entries)
}

// AppendActionItems adds action items extracted from a document.
func (r *KnowledgeRepository) AppendActionItems(ctx context.Context, docID core.ID, items []core.ActionItem) (int, error) {
	entries := make([]*core.KnowledgeEntry, 0, len(items))
	for _, item := range items {
		entry, err := core.NewKnowledgeEntry(docID, core.KindActionItem, dedup.NormalizeKey(item.Content), item)
		if err != nil {
			return 0, err
		}
		entry.Status = item.Status
		if entry.Status == "" {
			entry.Status = core.ActionOpen
		}
		entries = append(entries, entry)
	}
	return r.appendEntries(entries)
}

// appendEntries writes entries whose (kind, key) index slot is empty.
// Returns the number of entries actually inserted.
func (r *KnowledgeRepository) appendEntries(entries []*core.KnowledgeEntry) (int, error) {
	inserted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			if entry.Key == "" {
				continue
			}

			dedupKey := makeKnowledgeDedupKey(entry.Kind, entry.Key)
			_, err := tx.Get(dedupKey)
			if err == nil {
				continue // duplicate
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			entry.Id = core.ID(nextID)
			entry.CreatedAt = time.Now().UTC()
			entry.UpdatedAt = entry.CreatedAt

			if err := tx.Set(makeKnowledgeKey(entry.Id), storage.MarshalKnowledgeEntry(entry)); err != nil {
				return err
			}
			if err := tx.Set(dedupKey, storage.MarshalID(entry.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeKnowledgeDocKey(entry.DocumentId, entry.Id), storage.MarshalID(entry.Id)); err != nil {
				return err
			}
			inserted++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// RecentFactKeys returns the normalized keys of the most recently inserted
// facts, newest first.
func (r *KnowledgeRepository) RecentFactKeys(ctx context.Context, limit int) ([]string, error) {
	var keys []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(knowledgePrefix + ":")

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the highest possible entry key, then walk backwards.
		seek := append(append([]byte{}, prefix...),
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)

		for iter.Seek(seek); iter.ValidForPrefix(prefix); iter.Next() {
			if limit > 0 && len(keys) >= limit {
				break
			}
			var entry *core.KnowledgeEntry
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				entry, unmarshalErr = storage.UnmarshalKnowledgeEntry(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if entry == nil || entry.Kind != core.KindFact {
				continue
			}
			keys = append(keys, entry.Key)
		}
		return nil
	}, false)
	return keys, err
}

// OpenQuestions returns every question entry still in open status.
func (r *KnowledgeRepository) OpenQuestions(ctx context.Context) ([]*core.KnowledgeEntry, error) {
	return r.listByKindAndStatus(core.KindQuestion, core.QuestionOpen)
}

// OpenActionItems returns every action item entry still open.
func (r *KnowledgeRepository) OpenActionItems(ctx context.Context) ([]*core.KnowledgeEntry, error) {
	return r.listByKindAndStatus(core.KindActionItem, core.ActionOpen)
}

func (r *KnowledgeRepository) listByKindAndStatus(kind, status string) ([]*core.KnowledgeEntry, error) {
	var result []*core.KnowledgeEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(knowledgePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.KnowledgeEntry
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				entry, unmarshalErr = storage.UnmarshalKnowledgeEntry(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if entry == nil || entry.Kind != kind || entry.Status != status {
				continue
			}
			result = append(result, entry)
		}
		return nil
	}, false)
	return result, err
}

// ResolveQuestion marks a question entry resolved with the answer.
func (r *KnowledgeRepository) ResolveQuestion(ctx context.Context, id core.ID, answer string) error {
	return r.updateEntry(id, core.KindQuestion, func(entry *core.KnowledgeEntry) {
		entry.Status = core.QuestionResolved
		entry.Answer = answer
	})
}

// CompleteActionItem marks an action item entry done.
func (r *KnowledgeRepository) CompleteActionItem(ctx context.Context, id core.ID) error {
	return r.updateEntry(id, core.KindActionItem, func(entry *core.KnowledgeEntry) {
		entry.Status = core.ActionDone
	})
}

func (r *KnowledgeRepository) updateEntry(id core.ID, kind string, fn func(*core.KnowledgeEntry)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeKnowledgeKey(id)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var entry *core.KnowledgeEntry
		err = item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalKnowledgeEntry(val)
			return unmarshalErr
		})
		if err != nil {
			return err
		}
		if entry == nil || entry.Kind != kind {
			return storage.ErrNotFound
		}

		fn(entry)
		entry.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalKnowledgeEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ClearDocument removes every knowledge entry derived from a document.
func (r *KnowledgeRepository) ClearDocument(ctx context.Context, docID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialKnowledgeDocKey(docID)

		// Collect first; deleting while iterating the same prefix is
		// unreliable.
		var docKeys [][]byte
		var entryIDs []core.ID

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			docKeys = append(docKeys, item.KeyCopy(nil))

			var id core.ID
			err := item.Value(func(val []byte) error {
				var unmarshalErr error
				id, unmarshalErr = storage.UnmarshalID(val)
				return unmarshalErr
			})
			if err != nil {
				iter.Close()
				return err
			}
			entryIDs = append(entryIDs, id)
		}
		iter.Close()

		for i, id := range entryIDs {
			key := makeKnowledgeKey(id)
			item, err := tx.Get(key)
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
			if err == nil {
				var entry *core.KnowledgeEntry
				err = item.Value(func(val []byte) error {
					var unmarshalErr error
					entry, unmarshalErr = storage.UnmarshalKnowledgeEntry(val)
					return unmarshalErr
				})
				if err != nil {
					return err
				}
				if entry != nil {
					if err := tx.Delete(makeKnowledgeDedupKey(entry.Kind, entry.Key)); err != nil {
						return err
					}
				}
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			if err := tx.Delete(docKeys[i]); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
