package page

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type RedisStoreOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint"`
	// 集群节点地址列表
	Endpoints []string `cfg:"endpoints"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db" def:"0"`

	// 所有键的前缀，Clear 只删除该前缀下的键
	KeyPrefix string `cfg:"keyPrefix" def:"rdbx:page:"`

	MaxRetries   int           `cfg:"maxRetries" def:"3"`
	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize" def:"100"`
}

// RedisStore 基于 redis 的共享存储，值以 msgpack 编码
type RedisStore[V any] struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStoreWithOptions[V any](options *RedisStoreOptions) (*RedisStore[V], error) {
	var client redis.UniversalClient

	if options.Endpoint != "" {
		client = redis.NewClient(&redis.Options{
			Addr:         options.Endpoint,
			Username:     options.Username,
			Password:     options.Password,
			DB:           options.DB,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	} else if len(options.Endpoints) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        options.Endpoints,
			Username:     options.Username,
			Password:     options.Password,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	} else {
		return nil, errors.New("Endpoint or Endpoints must be set")
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WithMessage(err, "redis.client.Ping failed")
	}

	return NewRedisStoreWithClient[V](client, options.KeyPrefix), nil
}

func NewRedisStoreWithClient[V any](client redis.UniversalClient, prefix string) *RedisStore[V] {
	return &RedisStore[V]{client: client, prefix: prefix}
}

func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, error) {
	var value V

	buf, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return value, ErrKeyNotFound
	}
	if err != nil {
		return value, errors.Wrap(err, "redis.Get failed")
	}

	if err := msgpack.Unmarshal(buf, &value); err != nil {
		return value, errors.Wrap(err, "msgpack.Unmarshal failed")
	}
	return value, nil
}

func (s *RedisStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	buf, err := msgpack.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "msgpack.Marshal failed")
	}
	if err := s.client.Set(ctx, s.prefix+key, buf, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis.Set failed")
	}
	return nil
}

func (s *RedisStore[V]) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis.Del failed")
	}
	return nil
}

// Clear 扫描并删除前缀下的键，集群模式下逐个主节点扫描
func (s *RedisStore[V]) Clear(ctx context.Context) error {
	if cluster, ok := s.client.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
			return s.clear(ctx, client)
		})
	}
	return s.clear(ctx, s.client)
}

func (s *RedisStore[V]) clear(ctx context.Context, client redis.Cmdable) error {
	iter := client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrap(err, "redis.Del failed")
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "redis.Scan failed")
	}
	return nil
}

func (s *RedisStore[V]) Close() error {
	return s.client.Close()
}
