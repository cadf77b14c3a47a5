package redis

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// memClient is an in-memory stand-in for the Redis command surface.
// TTLs are recorded but never enforced; tests that care about expiry
// inspect them directly.
type memClient struct {
	mu sync.Mutex

	strings map[string]string
	hashes  map[string]map[string]string
	zsets   map[string][]ZMember
	lists   map[string][]string
	ttls    map[string]time.Duration

	subs []*memSub

	// down simulates an unreachable server: every command errors.
	down bool
}

type memSub struct {
	pattern string
	ch      chan PubSubMessage
	closed  bool
}

var errDown = errors.New("connection refused")

func newMemClient() *memClient {
	return &memClient{
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		zsets:   map[string][]ZMember{},
		lists:   map[string][]string{},
		ttls:    map[string]time.Duration{},
	}
}

func (m *memClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	return nil
}

func (m *memClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return "", errDown
	}
	v, ok := m.strings[key]
	if !ok {
		return "", ErrNil
	}
	return v, nil
}

func (m *memClient) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	m.strings[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false, errDown
	}
	if _, ok := m.strings[key]; ok {
		return false, nil
	}
	m.strings[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	for _, k := range keys {
		delete(m.strings, k)
		delete(m.hashes, k)
		delete(m.zsets, k)
		delete(m.lists, k)
		delete(m.ttls, k)
	}
	return nil
}

func (m *memClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	m.ttls[key] = ttl
	return nil
}

func (m *memClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return 0, errDown
	}
	ttl, ok := m.ttls[key]
	if !ok {
		return -1, nil
	}
	return ttl, nil
}

func (m *memClient) HSet(ctx context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memClient) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false, errDown
	}
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	if _, exists := h[field]; exists {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *memClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memClient) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	zs := m.zsets[key]
	for i := range zs {
		if zs[i].Member == member {
			zs[i].Score = score
			m.sortZ(key)
			return nil
		}
	}
	m.zsets[key] = append(zs, ZMember{Score: score, Member: member})
	m.sortZ(key)
	return nil
}

func (m *memClient) sortZ(key string) {
	sort.Slice(m.zsets[key], func(i, j int) bool {
		return m.zsets[key][i].Score < m.zsets[key][j].Score
	})
}

func (m *memClient) ZCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return 0, errDown
	}
	return int64(len(m.zsets[key])), nil
}

func (m *memClient) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	var kept []ZMember
	for _, z := range m.zsets[key] {
		if z.Score >= min && z.Score <= max {
			continue
		}
		kept = append(kept, z)
	}
	m.zsets[key] = kept
	return nil
}

func (m *memClient) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	zs := m.zsets[key]
	n := int64(len(zs))
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = n + start
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}
	out := make([]ZMember, 0, stop-start+1)
	for _, z := range zs[start : stop+1] {
		out = append(out, z)
	}
	return out, nil
}

func (m *memClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.strings {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for k := range m.zsets {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memClient) LPush(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	m.lists[key] = append([]string{value}, m.lists[key]...)
	return nil
}

func (m *memClient) BRPopLPush(ctx context.Context, source, dest string, timeout time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return "", errDown
	}
	src := m.lists[source]
	if len(src) == 0 {
		return "", ErrNil
	}
	v := src[len(src)-1]
	m.lists[source] = src[:len(src)-1]
	m.lists[dest] = append([]string{v}, m.lists[dest]...)
	return v, nil
}

func (m *memClient) LRem(ctx context.Context, key string, count int64, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	var kept []string
	removed := int64(0)
	for _, v := range m.lists[key] {
		if v == value && (count == 0 || removed < count) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	m.lists[key] = kept
	return nil
}

func (m *memClient) Publish(ctx context.Context, channel, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	for _, sub := range m.subs {
		if sub.closed || !matchPattern(sub.pattern, channel) {
			continue
		}
		sub.ch <- PubSubMessage{Channel: channel, Payload: payload}
	}
	return nil
}

func (m *memClient) PSubscribe(ctx context.Context, pattern string) (<-chan PubSubMessage, func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &memSub{pattern: pattern, ch: make(chan PubSubMessage, 64)}
	m.subs = append(m.subs, sub)
	stop := func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
		return nil
	}
	return sub.ch, stop
}

func (m *memClient) Close() error { return nil }

func (m *memClient) setDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func matchPattern(pattern, channel string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(channel, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == channel
}

var _ Client = (*memClient)(nil)
