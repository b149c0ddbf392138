package idset

import "sync"

// Mem is an in-memory Store, the default for every operation. It never
// returns an error; the error returns on Store exist only to satisfy the
// interface alongside Bolt.
type Mem struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

// NewMem returns an empty in-memory Store.
func NewMem() *Mem {
	return &Mem{sets: make(map[string]map[string]struct{})}
}

func (m *Mem) set(sobject string) map[string]struct{} {
	s, ok := m.sets[sobject]
	if !ok {
		s = make(map[string]struct{})
		m.sets[sobject] = s
	}
	return s
}

func (m *Mem) Add(sobject, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.set(sobject)
	if _, exists := s[id]; exists {
		return false, nil
	}
	s[id] = struct{}{}
	return true, nil
}

func (m *Mem) Remove(sobject, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.set(sobject), id)
	return nil
}

func (m *Mem) Contains(sobject, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.set(sobject)[id]
	return ok, nil
}

func (m *Mem) IDs(sobject string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.set(sobject)
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out, nil
}

func (m *Mem) Len(sobject string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.set(sobject)), nil
}

func (m *Mem) Close() error { return nil }

var _ Store = (*Mem)(nil)
