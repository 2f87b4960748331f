// Package store provides the reputation store backends. All backends
// implement the same atomic Record contract: the profile as it existed
// before the call comes back, and exactly one caller per sender key ever
// observes a nil prior.
package store

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

const memoryShards = 32

// MemoryStore is the in-process reputation store. Keys are sharded across
// independent locks so analyses of different senders never contend.
type MemoryStore struct {
	shards [memoryShards]memoryShard
	logger *zap.Logger
}

type memoryShard struct {
	mu       sync.Mutex
	profiles map[string]*core.SenderProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{logger: logger}
	for i := range s.shards {
		s.shards[i].profiles = make(map[string]*core.SenderProfile)
	}
	return s
}

func (s *MemoryStore) shard(senderKey string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(senderKey))
	return &s.shards[h.Sum32()%memoryShards]
}

// Record implements core.ReputationStore.
func (s *MemoryStore) Record(ctx context.Context, senderKey string, obs core.Observation) (*core.SenderProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shard(senderKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.profiles[senderKey]
	if !ok {
		sh.profiles[senderKey] = newProfile(senderKey, obs)
		return nil, nil
	}

	prior := snapshotProfile(current)
	applyObservation(current, obs)
	return prior, nil
}

// Lookup implements core.ReputationStore.
func (s *MemoryStore) Lookup(ctx context.Context, senderKey string) (*core.SenderProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shard(senderKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.profiles[senderKey]
	if !ok {
		return nil, nil
	}
	return snapshotProfile(current), nil
}

// Close implements core.ReputationStore.
func (s *MemoryStore) Close() error { return nil }

func newProfile(senderKey string, obs core.Observation) *core.SenderProfile {
	p := &core.SenderProfile{
		SenderKey:    senderKey,
		FirstSeen:    obs.SeenAt,
		MessageCount: 1,
	}
	if obs.DisplayName != "" {
		p.DisplayNamesSeen = []string{obs.DisplayName}
	}
	if obs.ReplyToDomain != "" {
		p.ReplyToDomainsSeen = []string{obs.ReplyToDomain}
	}
	return p
}

func applyObservation(p *core.SenderProfile, obs core.Observation) {
	p.MessageCount++
	if obs.DisplayName != "" && !containsString(p.DisplayNamesSeen, obs.DisplayName) {
		p.DisplayNamesSeen = append(p.DisplayNamesSeen, obs.DisplayName)
	}
	if obs.ReplyToDomain != "" && !containsString(p.ReplyToDomainsSeen, obs.ReplyToDomain) {
		p.ReplyToDomainsSeen = append(p.ReplyToDomainsSeen, obs.ReplyToDomain)
	}
}

func snapshotProfile(p *core.SenderProfile) *core.SenderProfile {
	cp := *p
	cp.DisplayNamesSeen = append([]string(nil), p.DisplayNamesSeen...)
	cp.ReplyToDomainsSeen = append([]string(nil), p.ReplyToDomainsSeen...)
	return &cp
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
