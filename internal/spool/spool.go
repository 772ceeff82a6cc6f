// Package spool groups rows by partition key on disk so that partitions
// larger than memory can be assembled one at a time.
package spool

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// Spool is a badger-backed multimap from partition key to rows.
//
// Keys are partition + 0x00 + big-endian sequence number, so iteration
// yields partitions in key order with rows in insertion order.
type Spool struct {
	db     *badger.DB
	schema store.Schema
	wb     *badger.WriteBatch
	seq    uint64
}

// Open creates a spool in dir for rows of schema.
func Open(dir string, schema store.Schema) (*Spool, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Spool{db: db, schema: schema}, nil
}

// Schema returns the row schema.
func (s *Spool) Schema() store.Schema {
	return s.schema
}

// Add appends row under partition.
func (s *Spool) Add(partition string, row store.Row) error {
	if partition == "" || strings.IndexByte(partition, 0) >= 0 {
		return fmt.Errorf("invalid partition key %q", partition)
	}
	val, err := store.EncodeRow(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if s.wb == nil {
		s.wb = s.db.NewWriteBatch()
	}

	key := make([]byte, len(partition)+9)
	copy(key, partition)
	binary.BigEndian.PutUint64(key[len(partition)+1:], s.seq)
	s.seq++

	if err := s.wb.Set(key, val); err != nil {
		return fmt.Errorf("spool row: %w", err)
	}
	return nil
}

// Len returns the number of rows added.
func (s *Spool) Len() uint64 {
	return s.seq
}

func (s *Spool) flush() error {
	if s.wb == nil {
		return nil
	}
	err := s.wb.Flush()
	s.wb = nil
	if err != nil {
		return fmt.Errorf("flush spool: %w", err)
	}
	return nil
}

// Partitions calls fn once per partition, in key order, with all of its
// rows. Iteration stops at the first error from fn or when ctx is done.
func (s *Spool) Partitions(ctx context.Context, fn func(partition string, rows []store.Row) error) error {
	if err := s.flush(); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var (
			current string
			rows    []store.Row
		)
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := item.Key()
			partition := string(key[:len(key)-9])

			if partition != current && rows != nil {
				if err := fn(current, rows); err != nil {
					return err
				}
				rows = nil
			}
			current = partition

			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read spool: %w", err)
			}
			row, err := store.DecodeRow(s.schema, val)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if rows != nil {
			return fn(current, rows)
		}
		return nil
	})
}

// Close releases the database. The directory is left for the caller to
// remove.
func (s *Spool) Close() error {
	if s.wb != nil {
		s.wb.Cancel()
		s.wb = nil
	}
	return s.db.Close()
}
