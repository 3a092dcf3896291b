package safemap

import "sync"

// SafeMap is a generic map guarded by an RWMutex. Used for the venue
// metadata caches, the active trade table and the monitor registry.
type SafeMap[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

func New[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		data: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
}

// SetIfAbsent stores v only when k is not present. Returns false if k already existed.
func (s *SafeMap[K, V]) SetIfAbsent(k K, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[k]; ok {
		return false
	}
	s.data[k] = v
	return true
}

// Get returns the value for k, or the zero value and false.
func (s *SafeMap[K, V]) Get(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[k]
	return val, ok
}

func (s *SafeMap[K, V]) Delete(k K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
}

// Replace swaps the whole content atomically.
func (s *SafeMap[K, V]) Replace(data map[K]V) {
	next := make(map[K]V, len(data))
	for k, v := range data {
		next[k] = v
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
}

func (s *SafeMap[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// ForEach walks a snapshot so f may call back into the map.
func (s *SafeMap[K, V]) ForEach(f func(K, V)) {
	s.mu.RLock()
	snapshot := make(map[K]V, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	for k, v := range snapshot {
		f(k, v)
	}
}
