// Package httpapi exposes FsManager over HTTP.
//
// The surface is deliberately small: fetch an object by id, insert a new
// one, preload a batch into the cache, and a fixed root greeting. Routing
// is done with gorilla/mux so the id can be extracted as a path variable
// instead of hand-parsed from the URL; the image routes always use the
// "jpeg" extension.
package httpapi
