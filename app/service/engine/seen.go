package engine

// SeenSet remembers processed message ids. It is owned by a single poll loop
// and is not safe for concurrent use. Once full, the oldest id is evicted.
type SeenSet struct {
	capacity int
	ids      map[string]struct{}
	order    []string
}

func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = 1000
	}

	return &SeenSet{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Add reports whether id was not seen before.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}

	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	return true
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Len() int {
	return len(s.order)
}
