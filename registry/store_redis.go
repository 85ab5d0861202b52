package registry

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

var redisRegistryKey = "watchdog/registry"

// RedisStore keeps the registry document under a single redis key, for
// deployments where the working directory is not durable.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		Client: rdb,
		Key:    redisRegistryKey,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context) (map[string]map[string]json.RawMessage, error) {
	raw, err := s.Client.Get(ctx, s.Key).Bytes()
	if err == redis.Nil {
		return make(map[string]map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}
	var realms map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &realms); err != nil {
		return nil, err
	}
	return realms, nil
}

func (s *RedisStore) Save(ctx context.Context, realms map[string]map[string]json.RawMessage) error {
	raw, err := json.Marshal(realms)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Key, raw, 0).Err()
}
