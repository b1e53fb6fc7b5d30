// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

import (
	"github.com/pbnjay/memory"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	minCacheSize = 8 << 20
	maxCacheSize = 512 << 20
)

// levelDbStore is a Store implementation backed by LevelDB.
type levelDbStore struct {
	db *leveldb.DB
}

// OpenLevelDbStore opens or creates a LevelDB store in the given directory.
func OpenLevelDbStore(path string, cacheSize int) (Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize()
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: cacheSize,
	})
	if err != nil {
		return nil, err
	}
	return &levelDbStore{db: db}, nil
}

// defaultCacheSize reserves 1/64 of the physical memory for the block cache,
// bounded to a sane range.
func defaultCacheSize() int {
	size := memory.TotalMemory() / 64
	if size < minCacheSize {
		return minCacheSize
	}
	if size > maxCacheSize {
		return maxCacheSize
	}
	return int(size)
}

func (s *levelDbStore) Write(batch []Entry) error {
	b := new(leveldb.Batch)
	for _, entry := range batch {
		b.Put(entry.Key, entry.Value)
	}
	return s.db.Write(b, &opt.WriteOptions{Sync: true})
}

func (s *levelDbStore) Iterate(visit func(key, value []byte) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		// The iterator reuses its buffers, so the visitor gets copies.
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if err := visit(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *levelDbStore) Close() error {
	return s.db.Close()
}
