/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package redlock guards one payment link at a time across backend replicas.
package redlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// ErrLockHeld is returned when another operation owns the key.
var ErrLockHeld = errors.New("lock is already held")

type Locker struct {
	client redis.UniversalClient
	key    string
	value  string // only the holder of this token may unlock
}

func NewLocker(client redis.UniversalClient, key, value string) *Locker {
	return &Locker{client: client, key: key, value: value}
}

// ForLink returns a locker for a single payment link with a fresh owner token.
func ForLink(client redis.UniversalClient, linkID string) *Locker {
	return NewLocker(client, LinkKey(linkID), uuid.NewString())
}

func LinkKey(linkID string) string {
	return "link:" + linkID
}

// Lock takes the key for ttl without waiting.
func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.value, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockHeld, l.key)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("unlock failed, either lock expired or you're not the lock holder for key %s", l.key)
	}
	return nil
}
