package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps entries as plain string keys, each tag as a set of the entry
// keys written under it, and each tag's epoch as a counter.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func entryKey(key string) string {
	return fmt.Sprintf("cache:entry:%s", key)
}

func tagKey(tag Tag) string {
	return fmt.Sprintf("cache:tag:%s", tag)
}

func versionKey(tag Tag) string {
	return fmt.Sprintf("cache:ver:%s", tag)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...Tag) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueSet(ctx, pipe, key, value, ttl, tags)
		return nil
	})
	return err
}

func queueSet(ctx context.Context, pipe redis.Pipeliner, key string, value []byte, ttl time.Duration, tags []Tag) {
	entry := entryKey(key)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), entry)
	}
	pipe.Set(ctx, entry, value, ttl)
}

type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readVersions(ctx context.Context, c mgetter, tags []Tag) (Versions, error) {
	seen := make(Versions, len(tags))
	if len(tags) == 0 {
		return seen, nil
	}
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = versionKey(tag)
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, raw := range values {
		var version uint64
		if text, ok := raw.(string); ok {
			if version, err = strconv.ParseUint(text, 10, 64); err != nil {
				return nil, fmt.Errorf("version of %s: %w", tags[i], err)
			}
		}
		seen[tags[i]] = version
	}
	return seen, nil
}

func (r *Redis) Versions(ctx context.Context, tags ...Tag) (Versions, error) {
	return readVersions(ctx, r.client, tags)
}

// SetIfUnchanged watches the epoch counters of seen, so an Invalidate that
// lands between the check and the write aborts the transaction.
func (r *Redis) SetIfUnchanged(ctx context.Context, key string, value []byte, ttl time.Duration, seen Versions, extra ...Tag) (bool, error) {
	tags := seen.Tags()
	if len(tags) == 0 {
		return true, r.Set(ctx, key, value, ttl, extra...)
	}
	watched := make([]string, len(tags))
	for i, tag := range tags {
		watched[i] = versionKey(tag)
	}

	stored := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersions(ctx, tx, tags)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			if current[tag] != seen[tag] {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queueSet(ctx, pipe, key, value, ttl, append(tags, extra...))
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate advances the epoch before collecting members. A fill that
// committed before the bump is in the member set and gets deleted; one that
// commits after it fails its watch.
func (r *Redis) Invalidate(ctx context.Context, tags ...Tag) error {
	for _, tag := range tags {
		if err := r.client.Incr(ctx, versionKey(tag)).Err(); err != nil {
			return fmt.Errorf("invalidate %s: %w", tag, err)
		}
		members, err := r.client.SMembers(ctx, tagKey(tag)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("invalidate %s: %w", tag, err)
		}
		_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(members) > 0 {
				pipe.Del(ctx, members...)
			}
			pipe.Del(ctx, tagKey(tag))
			return nil
		})
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", tag, err)
		}
	}
	return nil
}
