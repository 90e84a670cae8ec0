// Package shard assigns database objects to shards.
//
// A shard is a disjoint subset of the objects of one type. Assignment is a
// pure function of object identity and the shard count, never of scan order,
// so the N shards of a type always partition the full object set: every object
// lands in exactly one shard, and re-running with the same N puts it in the
// same shard again.
//
// Two partitioners are provided. ByID uses the object's stable numeric catalog
// id modulo N and mirrors the MOD(object_id, N) predicates issued server side.
// ByHash uses xxh3 over a composite string key, for object kinds that have no
// single numeric id suitable for grouping.
package shard

import (
	"github.com/zeebo/xxh3"
)

// Key identifies one object for partitioning.
type Key struct {
	// ID is the stable numeric catalog id, used by ByID
	ID int64
	// Parts is the composite identity, used by ByHash
	Parts []string
}

// Partitioner deterministically maps keys to shard indexes.
type Partitioner interface {
	// Assign returns the shard of k in [0, shards). shards below 1 are treated as 1.
	Assign(k Key, shards int) int
}

// ByID assigns by numeric id modulo the shard count. Sharded object types
// filter with MOD(object_id, N) = i on the server and never call it; it is the
// client-side statement of the same assignment, for recomputing which shard
// an object id belongs to.
type ByID struct{}

// Assign implements Partitioner.
func (ByID) Assign(k Key, shards int) int {
	if shards <= 1 {
		return 0
	}
	m := k.ID % int64(shards)
	if m < 0 {
		m += int64(shards)
	}
	return int(m)
}

// ByHash assigns by xxh3 over the key parts modulo the shard count.
type ByHash struct{}

// separator keeps ("ab","c") and ("a","bc") distinct.
var separator = []byte{0}

// Assign implements Partitioner.
func (ByHash) Assign(k Key, shards int) int {
	if shards <= 1 {
		return 0
	}
	hasher := xxh3.New()
	for i, p := range k.Parts {
		if i > 0 {
			_, _ = hasher.Write(separator)
		}
		_, _ = hasher.WriteString(p)
	}
	return int(hasher.Sum64() % uint64(shards))
}

// Split groups keys by shard. The result has exactly shards entries, each in
// input order.
func Split(p Partitioner, keys []Key, shards int) [][]Key {
	if shards < 1 {
		shards = 1
	}
	out := make([][]Key, shards)
	for _, k := range keys {
		s := p.Assign(k, shards)
		out[s] = append(out[s], k)
	}
	return out
}
