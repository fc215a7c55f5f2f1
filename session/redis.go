package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
	rotateStatusCorrupt  int64 = 4
)

// rotateScript performs the read-verify-write of a refresh rotation as one
// indivisible Redis operation. It parses the stored blob in place to locate
// the fingerprint (layout documented on Encode), rejects lapsed or mismatched
// records without touching them (lapsed ones are reaped), and installs the
// replacement blob with a full TTL only on a fingerprint match. Status codes
// mirror the rotateStatus* constants.
const rotateScript = `
local function read_be64(s, i)
  local v = 0
  for k = 0, 7 do
    local b = string.byte(s, i + k)
    if not b then
      return nil
    end
    v = v * 256 + b
  end
  return v
end

local key = KEYS[1]
local provided = ARGV[1]
local next_blob = ARGV[2]
local ttl_ms = tonumber(ARGV[3])
local now_unix = tonumber(ARGV[4])

local data = redis.call("GET", key)
if not data then
  return 0
end

local version = string.byte(data, 1)
if version ~= 1 then
  return 4
end
local user_len = string.byte(data, 2)
if not user_len or user_len == 0 then
  return 4
end

local hash_from = 3 + user_len
local stored = string.sub(data, hash_from, hash_from + 31)
if #stored < 32 then
  return 4
end

local expires_at = read_be64(data, hash_from + 40)
if not expires_at then
  return 4
end
if expires_at <= now_unix then
  redis.call("DEL", key)
  return 1
end

if stored ~= provided then
  return 2
end

redis.call("SET", key, next_blob, "PX", ttl_ms)
return 3
`

var rotateLua = redis.NewScript(rotateScript)

// RedisStore is the Redis-backed Store. One key per principal, value is the
// encoded Record, expiry delegated to Redis TTLs with a lazy read-side check.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore using the given client. prefix namespaces
// all session keys; the empty string defaults to "rotor:sess".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rotor:sess"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, userID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.Expired(time.Now()) {
		// Leave reaping to the key's own TTL. A DEL here would race a
		// concurrent Save and could drop a brand-new record.
		return nil, ErrNotFound
	}

	return rec, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(rec.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Rotate implements Store via the Lua compare-and-swap.
func (s *RedisStore) Rotate(
	ctx context.Context,
	userID string,
	provided, next [HashSize]byte,
	ttl time.Duration,
) (*Record, error) {
	now := time.Now()
	replacement := &Record{
		UserID:      userID,
		RefreshHash: next,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
	}
	blob, err := Encode(replacement)
	if err != nil {
		return nil, err
	}

	result, err := rotateLua.Run(
		ctx,
		s.client,
		[]string{s.key(userID)},
		provided[:],
		blob,
		ttl.Milliseconds(),
		now.Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrUnavailable)
	}

	switch code {
	case rotateStatusNotFound, rotateStatusExpired:
		return nil, ErrNotFound
	case rotateStatusMismatch:
		return nil, ErrHashMismatch
	case rotateStatusRotated:
		return replacement, nil
	case rotateStatusCorrupt:
		return nil, ErrCorrupt
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status %d", ErrUnavailable, code)
	}
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Ping reports Redis availability and round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
