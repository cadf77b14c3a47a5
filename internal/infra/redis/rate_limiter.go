package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram-chat-summarizer/internal/domain/ports/repository"
	"telegram-chat-summarizer/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ repository.RateLimiter = (*RateLimiter)(nil)

// RateLimiter keeps a sorted set of event timestamps per (subject,
// action) and counts survivors inside the trailing window. When the
// store is unreachable it fails open: the pipeline stays available and
// the error rides along in the returned info.
type RateLimiter struct {
	client Client
	log    *zerolog.Logger
	now    func() time.Time
}

func NewRateLimiter(client Client, log *zerolog.Logger) *RateLimiter {
	return &RateLimiter{client: client, log: log, now: time.Now}
}

func userRateKey(userID int64, action string) string {
	return fmt.Sprintf("rate:user:%d:%s", userID, action)
}

func globalRateKey(action string) string {
	return fmt.Sprintf("rate:global:%s", action)
}

func (r *RateLimiter) Check(ctx context.Context, userID int64, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	subject := strconv.FormatInt(userID, 10)
	return r.check(ctx, userRateKey(userID, action), subject, action, limit, period, increment)
}

func (r *RateLimiter) CheckGlobal(ctx context.Context, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	return r.check(ctx, globalRateKey(action), "global", action, limit, period, increment)
}

func (r *RateLimiter) check(ctx context.Context, key, subject, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	info := repository.RateInfo{Limit: limit, Subject: subject, Action: action}

	now := r.now()
	nowScore := float64(now.UnixNano()) / float64(time.Second)
	minScore := nowScore - period.Seconds()

	if err := r.client.ZRemRangeByScore(ctx, key, 0, minScore); err != nil {
		return r.failOpen(info, err)
	}
	count, err := r.client.ZCard(ctx, key)
	if err != nil {
		return r.failOpen(info, err)
	}

	if int(count) < limit {
		added := 0
		if increment {
			member := strconv.FormatFloat(nowScore, 'f', 9, 64)
			if err := r.client.ZAdd(ctx, key, nowScore, member); err != nil {
				return r.failOpen(info, err)
			}
			// Keep the window key from outliving its usefulness.
			_ = r.client.Expire(ctx, key, 2*period)
			added = 1
		}
		info.Allowed = true
		info.CurrentCount = int(count) + added
		info.Remaining = limit - info.CurrentCount
		info.ResetAfter = period
		return true, info
	}

	info.Allowed = false
	info.CurrentCount = int(count)
	info.Remaining = 0
	info.ResetAfter = period
	if oldest, err := r.client.ZRangeWithScores(ctx, key, 0, 0); err == nil && len(oldest) > 0 {
		resetAt := oldest[0].Score + period.Seconds() - nowScore
		// One second of slack so callers that sleep ResetAfter land
		// past the window edge.
		info.ResetAfter = time.Duration(resetAt*float64(time.Second)) + time.Second
	}
	metrics.IncRateLimited(action)
	return false, info
}

func (r *RateLimiter) failOpen(info repository.RateInfo, err error) (bool, repository.RateInfo) {
	r.log.Error().Err(err).Str("action", info.Action).Str("subject", info.Subject).Msg("rate limit check failed, allowing")
	info.Allowed = true
	info.Err = err
	return true, info
}

// Windows lists a user's live rate windows for the admin API.
func (r *RateLimiter) Windows(ctx context.Context, userID int64) (map[string]repository.WindowInfo, error) {
	keys, err := r.client.ScanKeys(ctx, fmt.Sprintf("rate:user:%d:*", userID))
	if err != nil {
		return nil, err
	}

	out := make(map[string]repository.WindowInfo, len(keys))
	now := r.now()
	nowScore := float64(now.UnixNano()) / float64(time.Second)
	for _, key := range keys {
		entries, err := r.client.ZRangeWithScores(ctx, key, 0, -1)
		if err != nil || len(entries) == 0 {
			continue
		}
		action := key[strings.LastIndex(key, ":")+1:]

		// The key TTL is 2x the period, so halve it to recover the window.
		period := time.Hour
		if ttl, err := r.client.TTL(ctx, key); err == nil && ttl > 0 {
			period = ttl / 2
		}

		oldest, newest := entries[0].Score, entries[len(entries)-1].Score
		out[action] = repository.WindowInfo{
			Count:         len(entries),
			OldestRequest: time.Unix(0, int64(oldest*float64(time.Second))),
			NewestRequest: time.Unix(0, int64(newest*float64(time.Second))),
			Period:        period,
			ResetsAfter:   time.Duration((oldest + period.Seconds() - nowScore) * float64(time.Second)),
		}
	}
	return out, nil
}
