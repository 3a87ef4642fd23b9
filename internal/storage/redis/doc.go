// Package redis opens go-redis clients shared by the Redis task store and the
// Redis event publisher.
package redis
