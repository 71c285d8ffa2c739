// Package ledger records what each preparation run produced.
//
// One top-level bucket per run fingerprint holds the fingerprint itself
// plus an "images" bucket (image id -> ImageEntry) and a "pairs" bucket
// (big-endian pair number -> PairEntry). Values are JSON.
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/skysift/dmgtiles/params"
	"go.etcd.io/bbolt"
)

var (
	imagesBucket   = []byte("images")
	pairsBucket    = []byte("pairs")
	fingerprintKey = []byte("fingerprint")
)

var ErrNoRun = errors.New("no such run")

type ImageEntry struct {
	ID   string
	Zoom int
	// Tiles is the number of canonical tiles produced by cropping.
	Tiles  int
	Pruned int
	Kept   int
	Time   time.Time
}

type PairEntry struct {
	Number int
	Kind   string
	Pre    string
	Post   string
	Copied int
	Time   time.Time
}

// Run is everything recorded under one fingerprint.
type Run struct {
	Key         string
	Fingerprint params.Fingerprint
	Images      []ImageEntry
	Pairs       []PairEntry
}

type Ledger struct {
	DB *bbolt.DB
}

// Open opens or creates the ledger at path. A writable ledger blocks
// other writers and readers until closed.
func Open(path string, readOnly bool) (*Ledger, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Ledger{DB: db}, nil
}

func (l *Ledger) Close() error {
	return l.DB.Close()
}

// RunKey is the bucket name of a fingerprint.
func RunKey(fp params.Fingerprint) ([]byte, error) {
	h, err := hashstructure.Hash(fp, hashstructure.FormatV2, nil)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, h)
	return key, nil
}

func pairKey(n int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(n))
	return k
}

func (l *Ledger) update(fp params.Fingerprint, sub []byte, fn func(b *bbolt.Bucket) error) error {
	key, err := RunKey(fp)
	if err != nil {
		return err
	}
	return l.DB.Update(func(tx *bbolt.Tx) error {
		run, err := tx.CreateBucketIfNotExists(key)
		if err != nil {
			return err
		}
		if run.Get(fingerprintKey) == nil {
			b, err := json.Marshal(fp)
			if err != nil {
				return err
			}
			if err := run.Put(fingerprintKey, b); err != nil {
				return err
			}
		}
		b, err := run.CreateBucketIfNotExists(sub)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

// UpdateImage applies fn to the stored entry for id, or to a fresh one,
// and stores the result stamped with the current time.
func (l *Ledger) UpdateImage(fp params.Fingerprint, id string, fn func(e *ImageEntry)) error {
	return l.update(fp, imagesBucket, func(b *bbolt.Bucket) error {
		e := ImageEntry{ID: id, Zoom: fp.Zoom}
		if v := b.Get([]byte(id)); v != nil {
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode image %s: %w", id, err)
			}
		}
		fn(&e)
		e.Time = time.Now().UTC()
		v, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), v)
	})
}

func (l *Ledger) PutPair(fp params.Fingerprint, e PairEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return l.update(fp, pairsBucket, func(b *bbolt.Bucket) error {
		v, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(pairKey(e.Number), v)
	})
}

// Run reads back everything recorded under fp.
func (l *Ledger) Run(fp params.Fingerprint) (*Run, error) {
	key, err := RunKey(fp)
	if err != nil {
		return nil, err
	}
	var run *Run
	err = l.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(key)
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNoRun, hex.EncodeToString(key))
		}
		run, err = readRun(key, b)
		return err
	})
	return run, err
}

// Runs reads back every recorded run in key order.
func (l *Ledger) Runs() ([]*Run, error) {
	var runs []*Run
	err := l.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			run, err := readRun(name, b)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	})
	return runs, err
}

func readRun(key []byte, b *bbolt.Bucket) (*Run, error) {
	run := &Run{Key: hex.EncodeToString(key)}
	if v := b.Get(fingerprintKey); v != nil {
		if err := json.Unmarshal(v, &run.Fingerprint); err != nil {
			return nil, fmt.Errorf("decode fingerprint %s: %w", run.Key, err)
		}
	}
	if images := b.Bucket(imagesBucket); images != nil {
		err := images.ForEach(func(k, v []byte) error {
			var e ImageEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode image %s: %w", k, err)
			}
			run.Images = append(run.Images, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if pairs := b.Bucket(pairsBucket); pairs != nil {
		err := pairs.ForEach(func(k, v []byte) error {
			var e PairEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode pair %d: %w", binary.BigEndian.Uint64(k), err)
			}
			run.Pairs = append(run.Pairs, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return run, nil
}
