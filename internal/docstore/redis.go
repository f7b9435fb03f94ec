package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/canari/internal/model"
)

const maxUpdateRetries = 5

// RedisStore keeps each document as a JSON string and each collection as a
// sorted set of ids scored by a per-collection sequence.
//
//	{prefix}:doc:{collection}:{id}  envelope
//	{prefix}:idx:{collection}       zset id -> seq
//	{prefix}:seq:{collection}       sequence counter
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore connects and pings the server
func NewRedisStore(ctx context.Context, cfg model.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: store.redis.addr is required", model.ErrInvalidConfiguration)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "canari"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) docKey(collection, id string) string {
	return s.prefix + ":doc:" + collection + ":" + id
}

func (s *RedisStore) idxKey(collection string) string {
	return s.prefix + ":idx:" + collection
}

func (s *RedisStore) seqKey(collection string) string {
	return s.prefix + ":seq:" + collection
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	data, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, notFound(collection, id)
	}
	if err != nil {
		return Document{}, err
	}
	_, doc, err := openEnvelope(data)
	return doc, err
}

func (s *RedisStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	ids, err := s.CreateMany(ctx, collection, []Fields{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateMany writes all documents in one MULTI/EXEC transaction
func (s *RedisStore) CreateMany(ctx context.Context, collection string, docs []Fields) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}

	last, err := s.client.IncrBy(ctx, s.seqKey(collection), int64(len(docs))).Result()
	if err != nil {
		return nil, err
	}
	first := last - int64(len(docs)) + 1

	now := s.now()
	ids := make([]string, len(docs))
	encoded := make([][]byte, len(docs))
	for i, f := range docs {
		ids[i] = uuid.NewString()
		if encoded[i], err = newEnvelope(ids[i], now, i, f); err != nil {
			return nil, err
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			pipe.Set(ctx, s.docKey(collection, id), encoded[i], 0)
			pipe.ZAdd(ctx, s.idxKey(collection), redis.Z{Score: float64(first + int64(i)), Member: id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Update reads, merges and writes under WATCH so a concurrent writer forces a retry
func (s *RedisStore) Update(ctx context.Context, collection, id string, patch Fields) error {
	key := s.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFound(collection, id)
		}
		if err != nil {
			return err
		}
		env, doc, err := openEnvelope(data)
		if err != nil {
			return err
		}
		out, err := newEnvelope(id, env.CreatedAt, env.Pos, merge(doc.Fields, patch))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s/%s: too much contention", collection, id)
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]Document, error) {
	ids, err := s.client.ZRange(ctx, s.idxKey(collection), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // index entry without a document
		}
		_, doc, err := openEnvelope([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
