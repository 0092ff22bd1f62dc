package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps read-state as one set and one flag per owner.
type RedisPersister struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPersister(rdb *redis.Client, prefix string) *RedisPersister {
	return &RedisPersister{rdb: rdb, prefix: prefix}
}

func (r *RedisPersister) idsKey(ownerID string) string {
	return fmt.Sprintf("%sreadstate:%s:ids", r.prefix, ownerID)
}

func (r *RedisPersister) soundKey(ownerID string) string {
	return fmt.Sprintf("%sreadstate:%s:sound", r.prefix, ownerID)
}

func (r *RedisPersister) Load(ctx context.Context, ownerID string) (Snapshot, error) {
	ids, err := r.rdb.SMembers(ctx, r.idsKey(ownerID)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("load read ids: %w", err)
	}

	snap := Snapshot{ReadIDs: ids, SoundEnabled: true}
	flag, err := r.rdb.Get(ctx, r.soundKey(ownerID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return Snapshot{}, fmt.Errorf("load sound flag: %w", err)
	default:
		snap.SoundEnabled = flag == "1"
	}
	return snap, nil
}

func (r *RedisPersister) AddRead(ctx context.Context, ownerID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return r.rdb.SAdd(ctx, r.idsKey(ownerID), members...).Err()
}

func (r *RedisPersister) SetSound(ctx context.Context, ownerID string, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	return r.rdb.Set(ctx, r.soundKey(ownerID), v, 0).Err()
}

func (r *RedisPersister) Clear(ctx context.Context, ownerID string) error {
	return r.rdb.Del(ctx, r.idsKey(ownerID)).Err()
}
