package cache

import (
	"context"
	"encoding/json"
	"time"
)

func encodeJSON(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

// SetJSON stores v encoded the way it is served, newline terminated. It
// returns the encoded body.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration, tags ...Tag) ([]byte, error) {
	body, err := encodeJSON(v)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return body, nil
	}
	return body, c.Set(ctx, key, body, ttl, tags...)
}

// FillJSON is SetJSON for a read-through fill of v loaded after seen was
// read. The entry is dropped when one of seen's tags was invalidated during
// the load. A nil seen stores nothing.
func FillJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration, seen Versions, extra ...Tag) ([]byte, bool, error) {
	body, err := encodeJSON(v)
	if err != nil {
		return nil, false, err
	}
	if c == nil || seen == nil {
		return body, false, nil
	}
	stored, err := c.SetIfUnchanged(ctx, key, body, ttl, seen, extra...)
	return body, stored, err
}
