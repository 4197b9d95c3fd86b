// Package fsmanager stores opaque byte objects on the local filesystem,
// addressed by UUID, and accelerates repeated reads through an in-process
// TTL cache.
//
// FsManager owns a root directory and a cache.Cache. It derives on-disk
// paths from two fixed bytes of the caller-supplied UUID, writes objects
// atomically via a temp-file-then-link protocol, and serves reads as a
// stream that tees freshly-read bytes into the cache when the object is
// small enough and the stream is fully consumed.
package fsmanager
