// Package tokenstore holds the authentication state shared by every request
// a client issues: the access token, the refresh token, and the access
// token's expiry.
//
// A Store keeps the state in memory and mirrors every mutation to a
// pluggable Backend so a session survives process restarts:
//
//	store := tokenstore.New(tokenstore.NewFileBackend(path), tokenstore.DefaultKey, log)
//	if err := store.Load(ctx); err != nil {
//	    return err
//	}
//	state := store.Get()
//
// MemoryBackend and FileBackend live here; the Redis backend lives in
// package redis. The store makes no expiry judgement of its own.
package tokenstore
