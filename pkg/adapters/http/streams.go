package http

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/tether/pkg/domain"
)

// CommitMessage is one SSE payload: the fields a commit changed.
type CommitMessage struct {
	Version uint64        `json:"version"`
	Changed domain.Fields `json:"changed"`
}

func (m CommitMessage) touches(fields []string) bool {
	for _, field := range fields {
		for name := range m.Changed {
			if strings.EqualFold(name, field) {
				return true
			}
		}
	}
	return false
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan CommitMessage]struct{} // StoreID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan CommitMessage]struct{}),
	}
}

// Hooks returns the lifecycle hooks broadcasting every commit to the store's subscribers.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			sm.Broadcast(e.StoreID, CommitMessage{Version: e.Version, Changed: e.Changed})
		},
	}
}

func (sm *StreamManager) Subscribe(storeID string) (<-chan CommitMessage, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan CommitMessage, 10)
	if _, ok := sm.subscribers[storeID]; !ok {
		sm.subscribers[storeID] = make(map[chan CommitMessage]struct{})
	}
	sm.subscribers[storeID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[storeID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, storeID)
				}
			}
		})
	}
}

// Broadcast never blocks: a slow client misses messages instead of stalling the container.
func (sm *StreamManager) Broadcast(storeID string, msg CommitMessage) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[storeID] {
		select {
		case ch <- msg:
		default:
			slog.Warn("SSE: Client buffer full, dropping message", "store_id", storeID)
		}
	}
}

// Subscribers returns the number of open streams for storeID.
func (sm *StreamManager) Subscribers(storeID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[storeID])
}
