package history

import (
	"sync"

	"relaybot/app/config"
	"relaybot/app/model"

	"github.com/samber/do"
)

const DefaultRetention = 5

type Stats struct {
	Conversations int
	Exchanges     int
	Retention     int
}

// Store keeps a bounded exchange log per conversation key for the process lifetime.
type Store struct {
	retention int

	mu         sync.RWMutex
	partitions map[string]*partition
}

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewStore(cfg.Reply.HistorySize), nil
}

func NewStore(retention int) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Store{
		retention:  retention,
		partitions: make(map[string]*partition),
	}
}

func (s *Store) Retention() int {
	return s.retention
}

func (s *Store) get(key string) *partition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.partitions[key]
}

func (s *Store) getOrCreate(key string) *partition {
	if p := s.get(key); p != nil {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.partitions[key]; ok {
		return p
	}

	p := &partition{}
	s.partitions[key] = p

	return p
}

// Append adds the exchange at the tail and drops the oldest ones above the retention bound.
func (s *Store) Append(key string, exchange model.Exchange) {
	s.getOrCreate(key).add(exchange, s.retention)
}

// Recent returns up to n latest exchanges, oldest first.
func (s *Store) Recent(key string, n int) []model.Exchange {
	p := s.get(key)
	if p == nil {
		return []model.Exchange{}
	}

	return p.last(n)
}

// All returns the whole partition, oldest first.
func (s *Store) All(key string) []model.Exchange {
	return s.Recent(key, s.retention)
}

func (s *Store) Len(key string) int {
	p := s.get(key)
	if p == nil {
		return 0
	}

	return p.len()
}

func (s *Store) Clear(key string) {
	if p := s.get(key); p != nil {
		p.clear()
	}
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	partitions := make([]*partition, 0, len(s.partitions))
	for _, p := range s.partitions {
		partitions = append(partitions, p)
	}
	s.mu.RUnlock()

	result := Stats{
		Conversations: len(partitions),
		Retention:     s.retention,
	}
	for _, p := range partitions {
		result.Exchanges += p.len()
	}

	return result
}
