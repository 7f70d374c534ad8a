package kv

import "errors"

// ErrNotFound is returned when a key does not exist in the store.
// Callers treat it as a cache miss and fall through to the durable
// store.
var ErrNotFound = errors.New("kv: key not found")
