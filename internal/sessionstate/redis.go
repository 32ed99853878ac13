package sessionstate

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding one field per session.
const DefaultRedisKey = "webmap3d:sessions"

// RedisStore implements Store on a Redis hash so several hosts can share one
// session listing.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore connects to the given Redis URL or host:port.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: c, key: DefaultRedisKey}, nil
}

// parseRedisURL parses addr into UniversalOptions supporting single, cluster,
// and sentinel Redis deployments. If no scheme is present, addr is treated as
// a plain host:port string.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	opts := &redis.UniversalOptions{Addrs: strings.Split(u.Host, ",")}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	q := u.Query()
	db := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "redis", "rediss":
		if db == "" {
			db = q.Get("db")
		}
		if u.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	case "redis-sentinel", "rediss-sentinel":
		opts.MasterName = db
		db = q.Get("db")
		opts.SentinelUsername = q.Get("sentinel_username")
		opts.SentinelPassword = q.Get("sentinel_password")
		if u.Scheme == "rediss-sentinel" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	default:
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}
	if db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid db: %v", err)
		}
		opts.DB = n
	}
	return opts, nil
}

func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.key, s.ID, b).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.HDel(ctx, r.key, id).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (Snapshot, bool, error) {
	b, err := r.client.HGet(ctx, r.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

// List returns every session in the hash. Undecodable entries are skipped.
func (r *RedisStore) List(ctx context.Context) ([]Snapshot, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(all))
	for _, v := range all {
		var s Snapshot
		if json.Unmarshal([]byte(v), &s) == nil {
			out = append(out, s)
		}
	}
	sortSnapshots(out)
	return out, nil
}

// Purge removes every session published by host, used at startup to clear
// entries left behind by a previous run.
func (r *RedisStore) Purge(ctx context.Context, host string) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range all {
		if s.Host == host {
			if err := r.Delete(ctx, s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
