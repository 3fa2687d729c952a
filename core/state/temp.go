package state

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// tempBucketSpan groups expiry times into hourly index buckets.
const tempBucketSpan = 3600

var (
	tempPrefix      = []byte("temp/")
	tempBucketsKey  = []byte("temp-index/buckets")
	tempIndexPrefix = "temp-index/bucket/"
)

type tempRecord struct {
	ExpiresAt uint64
	Payload   []byte
}

func tempKey(key []byte) []byte {
	buf := make([]byte, len(tempPrefix)+len(key))
	copy(buf, tempPrefix)
	copy(buf[len(tempPrefix):], key)
	return buf
}

func tempIndexKey(bucket uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", tempIndexPrefix, bucket))
}

// TempPut stores value in temporary storage. The record reads as absent once
// the ledger time reaches expiresAt and is removed by the next TempPrune.
func (m *Manager) TempPut(key []byte, value interface{}, expiresAt uint64) error {
	if len(key) == 0 {
		return fmt.Errorf("temp: key must not be empty")
	}
	payload, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	if err := m.KVPut(tempKey(key), &tempRecord{ExpiresAt: expiresAt, Payload: payload}); err != nil {
		return err
	}
	bucket := expiresAt / tempBucketSpan
	if err := m.KVAppend(tempIndexKey(bucket), key); err != nil {
		return err
	}
	var buckets []uint64
	if err := m.KVGetList(tempBucketsKey, &buckets); err != nil {
		return err
	}
	idx := sort.Search(len(buckets), func(i int) bool { return buckets[i] >= bucket })
	if idx < len(buckets) && buckets[idx] == bucket {
		return nil
	}
	buckets = append(buckets, 0)
	copy(buckets[idx+1:], buckets[idx:])
	buckets[idx] = bucket
	return m.KVPut(tempBucketsKey, buckets)
}

// TempGet decodes the live temporary record under key into out. Expired records
// report false.
func (m *Manager) TempGet(key []byte, now uint64, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("temp: key must not be empty")
	}
	var rec tempRecord
	ok, err := m.KVGet(tempKey(key), &rec)
	if err != nil || !ok {
		return false, err
	}
	if now >= rec.ExpiresAt {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(rec.Payload, out); err != nil {
		return false, fmt.Errorf("temp: decode %q: %w", key, err)
	}
	return true, nil
}

// TempPrune deletes temporary records that expired at or before now and
// returns how many were removed.
func (m *Manager) TempPrune(now uint64) (int, error) {
	var buckets []uint64
	if err := m.KVGetList(tempBucketsKey, &buckets); err != nil {
		return 0, err
	}
	current := now / tempBucketSpan
	removed := 0
	remaining := buckets[:0]
	for _, bucket := range buckets {
		if bucket > current {
			remaining = append(remaining, bucket)
			continue
		}
		n, live, err := m.pruneBucket(bucket, now)
		if err != nil {
			return removed, err
		}
		removed += n
		if live {
			remaining = append(remaining, bucket)
		}
	}
	if len(remaining) == len(buckets) {
		return removed, nil
	}
	if len(remaining) == 0 {
		return removed, m.KVDelete(tempBucketsKey)
	}
	return removed, m.KVPut(tempBucketsKey, remaining)
}

func (m *Manager) pruneBucket(bucket uint64, now uint64) (int, bool, error) {
	indexKey := tempIndexKey(bucket)
	var keys [][]byte
	if err := m.KVGetList(indexKey, &keys); err != nil {
		return 0, false, err
	}
	removed := 0
	kept := keys[:0]
	for _, key := range keys {
		var rec tempRecord
		ok, err := m.KVGet(tempKey(key), &rec)
		if err != nil {
			return removed, false, err
		}
		if !ok {
			continue
		}
		if rec.ExpiresAt <= now {
			if err := m.KVDelete(tempKey(key)); err != nil {
				return removed, false, err
			}
			removed++
			continue
		}
		// Rewritten records are tracked by the bucket of their newer expiry.
		if rec.ExpiresAt/tempBucketSpan == bucket {
			kept = append(kept, key)
		}
	}
	if len(kept) == 0 {
		return removed, false, m.KVDelete(indexKey)
	}
	return removed, true, m.KVPut(indexKey, kept)
}
