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

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedLink struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "link:abc", cachedLink{ID: "abc", Status: "created"}, time.Minute))

	var got cachedLink
	require.NoError(t, c.Get(ctx, "link:abc", &got))
	assert.Equal(t, cachedLink{ID: "abc", Status: "created"}, got)

	require.NoError(t, c.Delete(ctx, "link:abc"))
	err := c.Get(ctx, "link:abc", &got)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestGet_Miss(t *testing.T) {
	c := newTestCache(t)
	var got cachedLink
	assert.ErrorIs(t, c.Get(context.Background(), "link:none", &got), ErrMiss)
	assert.NoError(t, c.Delete(context.Background(), "link:none"))
}
