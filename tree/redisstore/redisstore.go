/*
Package redisstore provides a tree.NodeStore that keeps node growth records
on a redis DB, so that many processes can grow the same tree.

The records of a tree are the fields of a single redis hash, keyed by
their IDs, so removing the hash removes the whole tree.
*/
package redisstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pbanos/cart/tree"
	redis "gopkg.in/redis.v5"
)

// RecordEncodeDecoder encodes records as bytes and decodes them back
type RecordEncodeDecoder interface {
	Encode(*tree.Record) ([]byte, error)
	Decode([]byte) (*tree.Record, error)
}

type redisStore struct {
	rc     *redis.Client
	key    string
	encDec RecordEncodeDecoder
}

// New returns a tree.NodeStore keeping records on the hash at the given
// key, with random UUIDs as IDs.
func New(rc *redis.Client, key string, encDec RecordEncodeDecoder) tree.NodeStore {
	return &redisStore{rc: rc, key: key, encDec: encDec}
}

func (rs *redisStore) Create(ctx context.Context, r *tree.Record) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.ID = uuid.NewString()
		data, err := rs.encDec.Encode(r)
		if err != nil {
			return fmt.Errorf("creating node: %w", err)
		}
		created, err := rs.rc.HSetNX(rs.key, r.ID, data).Result()
		if err != nil {
			return fmt.Errorf("creating node on %s: %w", rs.key, err)
		}
		if created {
			return nil
		}
	}
}

func (rs *redisStore) Get(ctx context.Context, id string) (*tree.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := rs.rc.HGet(rs.key, id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting node %s from %s: %w", id, rs.key, err)
	}
	r, err := rs.encDec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("getting node %s from %s: %w", id, rs.key, err)
	}
	return r, nil
}

func (rs *redisStore) Store(ctx context.Context, r *tree.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := rs.encDec.Encode(r)
	if err != nil {
		return fmt.Errorf("storing node %s: %w", r.ID, err)
	}
	if err = rs.rc.HSet(rs.key, r.ID, data).Err(); err != nil {
		return fmt.Errorf("storing node %s on %s: %w", r.ID, rs.key, err)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, r *tree.Record) error {
	if err := rs.rc.HDel(rs.key, r.ID).Err(); err != nil {
		return fmt.Errorf("deleting node %s from %s: %w", r.ID, rs.key, err)
	}
	return nil
}

// Close leaves the records on redis, as other processes may still use
// them. The client is not closed either.
func (rs *redisStore) Close(ctx context.Context) error {
	return nil
}
