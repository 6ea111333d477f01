// feedback_store.go provides the bbolt-backed FeedbackStore (spec §4.9:
// feedback "may be persisted to an opaque store").
//
// Grounded directly on the teacher's bboltCache open/bucket/Update idiom
// in internal/anonymizer/cache.go, reusing the same embedded database file
// the semantic cache (internal/semcache) opens — one durable-state
// mechanism serving two components, exactly as the teacher treats bbolt as
// the proxy's sole durable store.
package threshold

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log"

	bolt "go.etcd.io/bbolt"
)

const feedbackBucket = "threshold_feedback"

// BoltFeedbackStore appends FeedbackRecords to a bbolt bucket, keyed by an
// incrementing sequence number.
type BoltFeedbackStore struct {
	db *bolt.DB
}

// NewBoltFeedbackStore opens (or creates) the bucket on an already-open
// bbolt database — typically the same *bolt.DB the semantic cache uses.
func NewBoltFeedbackStore(db *bolt.DB) (*BoltFeedbackStore, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(feedbackBucket))
		return err
	}); err != nil {
		return nil, fmt.Errorf("create threshold feedback bucket: %w", err)
	}
	return &BoltFeedbackStore{db: db}, nil
}

// Append persists r under the bucket's next sequence number. Errors are
// logged and swallowed by the caller (RecordFeedback), per spec §7's
// "cache failures are non-fatal".
func (b *BoltFeedbackStore) Append(r FeedbackRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return fmt.Errorf("encode feedback record: %w", err)
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(feedbackBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %q not found", feedbackBucket)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(itob(seq), buf.Bytes())
	})
	if err != nil {
		log.Printf("[THRESHOLD] feedback append error: %v", err)
	}
	return err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v & 0xff)
		v >>= 8
	}
	return b
}
