package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CreateDocument adds a new document to storage.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Content-hash uniqueness guard
		_, err := tx.Get(makeDocumentHashKey(doc.ContentHash))
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		doc.Id = core.ID(nextID)

		if doc.Status == 0 {
			doc.Status = core.StatusPending
		}
		doc.CreatedAt = time.Now().UTC()
		doc.UpdatedAt = doc.CreatedAt

		if err := core.ValidateDocument(doc); err != nil {
			return err
		}

		key := makeDocumentKey(doc.Id)
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentHashKey(doc.ContentHash), storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentNameKey(doc.Filename), storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindDocumentByHash retrieves a document by its content hash.
func (r *DocumentRepository) FindDocumentByHash(ctx context.Context, hash string) (*core.Document, error) {
	return r.findByIndex(makeDocumentHashKey(hash))
}

// FindDocumentByName retrieves the most recently created document with the
// given filename.
func (r *DocumentRepository) FindDocumentByName(ctx context.Context, name string) (*core.Document, error) {
	return r.findByIndex(makeDocumentNameKey(name))
}

func (r *DocumentRepository) findByIndex(indexKey []byte) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(indexKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id core.ID
		err = item.Value(func(val []byte) error {
			var unmarshalErr error
			id, unmarshalErr = storage.UnmarshalID(val)
			return unmarshalErr
		})
		if err != nil {
			return err
		}

		result, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListDocuments retrieves documents ordered by ID ascending, optionally
// filtered by status.
func (r *DocumentRepository) ListDocuments(ctx context.Context, status *core.DocumentStatus) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				doc, unmarshalErr = storage.UnmarshalDocument(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if status != nil && doc.Status != *status {
				continue
			}
			result = append(result, doc)
		}
		return nil
	}, false)
	return result, err
}

// SetDocumentStatus updates a document's status and failure message.
func (r *DocumentRepository) SetDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus, errMsg string) error {
	if err := core.ValidateStatus(status); err != nil {
		return err
	}
	return r.update(id, func(doc *core.Document) {
		doc.Status = status
		doc.Error = errMsg
	})
}

// SaveExtraction stores the merged extraction result on a document.
func (r *DocumentRepository) SaveExtraction(ctx context.Context, id core.ID, result *core.ExtractionResult) error {
	return r.update(id, func(doc *core.Document) {
		doc.Extraction = result
	})
}

// update reads a document, applies fn and writes it back with a fresh
// UpdatedAt timestamp.
func (r *DocumentRepository) update(id core.ID, fn func(*core.Document)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		fn(doc)
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads a document by key, returning nil if it doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
