// Package redis provides a go-redis client wrapper and a token backend that
// lets several processes share one SnackBase session.
//
//	client, err := redis.New(redis.Config{Addr: "localhost:6379"}, log)
//	if err != nil {
//	    return err
//	}
//	backend := redis.NewTokenBackend(client, "snackbase")
//	store := tokenstore.New(backend, tokenstore.DefaultKey, log)
package redis
