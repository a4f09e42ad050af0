package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skyflip/internal/models"
)

// LatestCandidates is the payload stored under the candidates key.
type LatestCandidates struct {
	CycleID    string                 `json:"cycle_id"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Candidates []models.FlipCandidate `json:"candidates"`
}

// CandidateCache keeps the candidates of the most recent cycle that emitted any.
type CandidateCache struct {
	c   *Client
	ttl time.Duration
}

func NewCandidateCache(c *Client, ttl time.Duration) *CandidateCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CandidateCache{c: c, ttl: ttl}
}

func (cc *CandidateCache) Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error {
	if cc == nil || cc.c == nil || len(candidates) == 0 {
		return nil
	}
	b, err := encodeLatest(cycleID, time.Now().UTC(), candidates)
	if err != nil {
		return err
	}
	if err := cc.c.rdb.Set(ctx, cc.c.key("candidates", "latest"), b, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set latest candidates: %w", err)
	}
	return nil
}

// Latest returns false when nothing is cached or the entry expired.
func (cc *CandidateCache) Latest(ctx context.Context) (*LatestCandidates, bool, error) {
	if cc == nil || cc.c == nil {
		return nil, false, nil
	}
	b, err := cc.c.rdb.Get(ctx, cc.c.key("candidates", "latest")).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get latest candidates: %w", err)
	}
	out, err := decodeLatest(b)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func encodeLatest(cycleID string, at time.Time, candidates []models.FlipCandidate) ([]byte, error) {
	return json.Marshal(LatestCandidates{CycleID: cycleID, UpdatedAt: at, Candidates: candidates})
}

func decodeLatest(b []byte) (*LatestCandidates, error) {
	var out LatestCandidates
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("redis: decode latest candidates: %w", err)
	}
	return &out, nil
}
