package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

const redisKeyPrefix = "mailtriage:sender:"

// recordScript is the whole Record operation in one server-side step. It
// returns the pre-update hash as a flat field list, or nil when this call
// created the profile. Redis runs scripts atomically, which is exactly the
// per-key guarantee Record requires.
var recordScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  redis.call('HSET', key,
    'first_seen', ARGV[1],
    'message_count', 1,
    'display_names', ARGV[4],
    'reply_to_domains', ARGV[5])
  return nil
end
local prior = redis.call('HGETALL', key)
redis.call('HINCRBY', key, 'message_count', 1)
if ARGV[2] ~= '' then
  local names = cjson.decode(redis.call('HGET', key, 'display_names'))
  local found = false
  for _, n in ipairs(names) do
    if n == ARGV[2] then found = true end
  end
  if not found then
    table.insert(names, ARGV[2])
    redis.call('HSET', key, 'display_names', cjson.encode(names))
  end
end
if ARGV[3] ~= '' then
  local domains = cjson.decode(redis.call('HGET', key, 'reply_to_domains'))
  local found = false
  for _, d in ipairs(domains) do
    if d == ARGV[3] then found = true end
  end
  if not found then
    table.insert(domains, ARGV[3])
    redis.call('HSET', key, 'reply_to_domains', cjson.encode(domains))
  end
end
return prior
`)

// RedisStore is the reputation store over a Redis hash per sender.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, logger: logger}, nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func redisKey(senderKey string) string {
	return redisKeyPrefix + senderKey
}

// Record implements core.ReputationStore.
func (s *RedisStore) Record(ctx context.Context, senderKey string, obs core.Observation) (*core.SenderProfile, error) {
	names, domains, err := marshalSets(setOf(obs.DisplayName), setOf(obs.ReplyToDomain))
	if err != nil {
		return nil, err
	}
	res, err := recordScript.Run(ctx, s.client, []string{redisKey(senderKey)},
		obs.SeenAt.UTC().Format(time.RFC3339Nano),
		obs.DisplayName,
		obs.ReplyToDomain,
		string(names),
		string(domains),
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record sender profile: %w", err)
	}
	fields, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected script reply %T", res)
	}
	return profileFromFields(senderKey, fields)
}

// Lookup implements core.ReputationStore.
func (s *RedisStore) Lookup(ctx context.Context, senderKey string) (*core.SenderProfile, error) {
	m, err := s.client.HGetAll(ctx, redisKey(senderKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sender profile: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return profileFromMap(senderKey, m)
}

// Close implements core.ReputationStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func profileFromFields(senderKey string, fields []interface{}) (*core.SenderProfile, error) {
	m := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, kok := fields[i].(string)
		v, vok := fields[i+1].(string)
		if !kok || !vok {
			return nil, fmt.Errorf("unexpected field pair %T/%T", fields[i], fields[i+1])
		}
		m[k] = v
	}
	return profileFromMap(senderKey, m)
}

func profileFromMap(senderKey string, m map[string]string) (*core.SenderProfile, error) {
	p := &core.SenderProfile{SenderKey: senderKey}
	var err error
	if p.FirstSeen, err = time.Parse(time.RFC3339Nano, m["first_seen"]); err != nil {
		return nil, fmt.Errorf("failed to parse first_seen: %w", err)
	}
	if p.MessageCount, err = strconv.ParseInt(m["message_count"], 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse message_count: %w", err)
	}
	if err = json.Unmarshal([]byte(m["display_names"]), &p.DisplayNamesSeen); err != nil {
		return nil, fmt.Errorf("failed to decode display names: %w", err)
	}
	if err = json.Unmarshal([]byte(m["reply_to_domains"]), &p.ReplyToDomainsSeen); err != nil {
		return nil, fmt.Errorf("failed to decode reply-to domains: %w", err)
	}
	return p, nil
}

func setOf(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
