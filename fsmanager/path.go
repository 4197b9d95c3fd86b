package fsmanager

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Two bytes of the object's UUID pick the shard directories an object lives
// under. The original derives these as `id[2]`/`id[3]` of the Rust uuid
// crate's to_fields_le().3 (the 8-byte d4 field: clock_seq_hi, clock_seq_low,
// then the 6-byte node, occupying absolute UUID bytes 8-15), so `id[2]` and
// `id[3]` land on absolute indices 10 and 11 -- the first two bytes of the
// node field, not the third and fourth. github.com/google/uuid.UUID stores
// the same 16-byte RFC 4122 array, so shardByteIndexA/B index it directly at
// 10/11. Existing on-disk layouts were written against these exact two
// bytes; changing them would silently strand every object already on disk
// under the wrong directory.
const (
	shardByteIndexA = 10
	shardByteIndexB = 11
)

// shardPath returns the two path segments an id is sharded under.
func shardPath(id uuid.UUID) (string, string) {
	return fmt.Sprintf("%x", id[shardByteIndexA]), fmt.Sprintf("%x", id[shardByteIndexB])
}

// objectPath derives the on-disk path for an object given the manager's
// root, the object's id, and its extension (without a leading dot).
func objectPath(root string, id uuid.UUID, ext string) string {
	a, b := shardPath(id)
	name := id.String()
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(root, a, b, name)
}

// shardDir returns the directory (without the filename) an object lives in.
func shardDir(root string, id uuid.UUID) string {
	a, b := shardPath(id)
	return filepath.Join(root, a, b)
}
