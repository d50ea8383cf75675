package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

const priorityOffset = 1 << 31

// KVStore is the remote-KV Store backend (§4.3, §6), backed by Redis. Each
// request is stored whole as JSON under an "all" key; a second "waiting"
// key per request provides a scannable, lexically-sortable priority index.
//
// The source implementation embeds the raw decimal priority in the waiting
// key, which sorts "10" before "9" and breaks ordering for any priority
// spanning a digit boundary (and doesn't order negative priorities at all).
// This backend fixes that: encodePriority
// offsets every priority by 1<<31 before fixed-width zero-padding, so
// lexical and numeric order agree across the full int32 range.
type KVStore struct {
	rdb    *redis.Client
	prefix string
}

// NewKVStore connects to a Redis server and recovers any requests left
// EXECUTING by a prior process. prefix namespaces all keys; an empty prefix
// defaults to "webstalk".
func NewKVStore(ctx context.Context, opts *redis.Options, prefix string) (*KVStore, error) {
	if prefix == "" {
		prefix = "webstalk"
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, &types.StoreError{Backend: "redis", Op: "connect", Err: err}
	}
	s := &KVStore{rdb: rdb, prefix: prefix}
	if err := s.recover(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *KVStore) key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
}

func (s *KVStore) waitingKey(priority int, id string) string {
	return fmt.Sprintf("%s:waiting:%s:%s", s.prefix, encodePriority(priority), id)
}

func encodePriority(p int) string {
	return fmt.Sprintf("%010d", int64(p)+priorityOffset)
}

func (s *KVStore) recover(ctx context.Context) error {
	keys, err := s.scanKeys(ctx, s.key("executing", "*"))
	if err != nil {
		return err
	}
	for _, k := range keys {
		id := lastSegment(k)
		req, err := s.load(ctx, id)
		if err != nil {
			continue
		}
		req.State = types.StateWaiting
		req.Msg = "recovered after restart"
		if err := s.save(ctx, req); err != nil {
			return err
		}
		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, k)
		pipe.Set(ctx, s.waitingKey(req.Priority, req.ID), "1", 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return &types.StoreError{Backend: "redis", Op: "recover", Err: err}
		}
	}
	return nil
}

func (s *KVStore) Put(r *types.Request) (bool, error) {
	ctx := context.Background()
	r.State = types.StateWaiting
	r.Msg = "waiting"
	if err := s.save(ctx, r); err != nil {
		return false, err
	}
	if err := s.rdb.Set(ctx, s.waitingKey(r.Priority, r.ID), "1", 0).Err(); err != nil {
		return false, &types.StoreError{Backend: "redis", Op: "put", Err: err}
	}
	return true, nil
}

func (s *KVStore) Get() (*types.Request, bool, error) {
	ctx := context.Background()
	keys, err := s.scanKeys(ctx, s.key("waiting", "*"))
	if err != nil {
		return nil, false, err
	}
	if len(keys) == 0 {
		return nil, false, nil
	}
	sort.Strings(keys)
	// Highest priority sorts last under the offset-biased fixed-width encoding.
	chosen := keys[len(keys)-1]
	id := lastSegment(chosen)

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}

	req.State = types.StateExecuting
	req.Msg = "executing"
	if err := s.save(ctx, req); err != nil {
		return nil, false, err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, chosen)
	pipe.Set(ctx, s.key("executing", id), "1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, false, &types.StoreError{Backend: "redis", Op: "get", Err: err}
	}
	return req, true, nil
}

func (s *KVStore) Exists(id string) (bool, error) {
	ctx := context.Background()
	n, err := s.rdb.Exists(ctx, s.key("all", id)).Result()
	if err != nil {
		return false, &types.StoreError{Backend: "redis", Op: "exists", Err: err}
	}
	return n > 0, nil
}

func (s *KVStore) UpdateState(id string, state types.RequestState, msg string) error {
	ctx := context.Background()
	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	prevState := req.State
	req.State = state
	req.Msg = msg
	if err := s.save(ctx, req); err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	if prevState == types.StateExecuting {
		pipe.Del(ctx, s.key("executing", id))
	}
	if prevState == types.StateFailed {
		pipe.Del(ctx, s.key("failed", id))
	}
	switch state {
	case types.StateWaiting:
		pipe.Set(ctx, s.waitingKey(req.Priority, id), "1", 0)
	case types.StateCompleted:
		pipe.Set(ctx, s.key("completed", id), "1", 0)
	case types.StateFailed:
		pipe.Set(ctx, s.key("failed", id), "1", 0)
	case types.StateExecuting:
		pipe.Set(ctx, s.key("executing", id), "1", 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &types.StoreError{Backend: "redis", Op: "update_state", Err: err}
	}
	return nil
}

func (s *KVStore) ReplyFailed() (int, error) {
	ctx := context.Background()
	keys, err := s.scanKeys(ctx, s.key("failed", "*"))
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, k := range keys {
		id := lastSegment(k)
		req, err := s.load(ctx, id)
		if err != nil {
			continue
		}
		req.State = types.StateWaiting
		req.Msg = "retrying"
		if err := s.save(ctx, req); err != nil {
			return moved, err
		}
		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, k)
		pipe.Set(ctx, s.waitingKey(req.Priority, id), "1", 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return moved, &types.StoreError{Backend: "redis", Op: "reply_failed", Err: err}
		}
		moved++
	}
	return moved, nil
}

func (s *KVStore) Statistics() (Statistics, error) {
	ctx := context.Background()
	all, err := s.scanKeys(ctx, s.key("all", "*"))
	if err != nil {
		return Statistics{}, err
	}
	waiting, err := s.scanKeys(ctx, s.key("waiting", "*"))
	if err != nil {
		return Statistics{}, err
	}
	executing, err := s.scanKeys(ctx, s.key("executing", "*"))
	if err != nil {
		return Statistics{}, err
	}
	completed, err := s.scanKeys(ctx, s.key("completed", "*"))
	if err != nil {
		return Statistics{}, err
	}
	failed, err := s.scanKeys(ctx, s.key("failed", "*"))
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		All:       len(all),
		Waiting:   len(waiting),
		Executing: len(executing),
		Completed: len(completed),
		Failed:    len(failed),
	}, nil
}

func (s *KVStore) Close() error {
	if err := s.rdb.Close(); err != nil {
		return &types.StoreError{Backend: "redis", Op: "close", Err: err}
	}
	return nil
}

func (s *KVStore) save(ctx context.Context, r *types.Request) error {
	data, err := json.Marshal(r)
	if err != nil {
		return &types.StoreError{Backend: "redis", Op: "save", Err: err}
	}
	if err := s.rdb.Set(ctx, s.key("all", r.ID), data, 0).Err(); err != nil {
		return &types.StoreError{Backend: "redis", Op: "save", Err: err}
	}
	return nil
}

func (s *KVStore) load(ctx context.Context, id string) (*types.Request, error) {
	data, err := s.rdb.Get(ctx, s.key("all", id)).Bytes()
	if err != nil {
		return nil, &types.StoreError{Backend: "redis", Op: "load", Err: err}
	}
	var r types.Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &types.StoreError{Backend: "redis", Op: "load", Err: err}
	}
	return &r, nil
}

func (s *KVStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, &types.StoreError{Backend: "redis", Op: "scan", Err: err}
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func lastSegment(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return key
	}
	return key[i+1:]
}
