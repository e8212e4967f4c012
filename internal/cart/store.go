package cart

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxCarts = 100000

// Store holds carts by key. Implementations must be safe for concurrent use
// and must not share maps with callers.
type Store interface {
	Get(key string) Items
	Set(key string, items Items)
	Clear(key string)
}

func UserKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

type memoryStore struct {
	carts *expirable.LRU[string, Items]
}

// NewMemoryStore keeps carts in process memory. Each write restarts the
// cart's TTL.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{carts: expirable.NewLRU[string, Items](maxCarts, nil, ttl)}
}

func (s *memoryStore) Get(key string) Items {
	items, ok := s.carts.Get(key)
	if !ok {
		return Items{}
	}
	return items.clone()
}

func (s *memoryStore) Set(key string, items Items) {
	if len(items) == 0 {
		s.carts.Remove(key)
		return
	}
	s.carts.Add(key, items.clone())
}

func (s *memoryStore) Clear(key string) {
	s.carts.Remove(key)
}
