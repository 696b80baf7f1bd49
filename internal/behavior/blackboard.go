package behavior

import "sync"

// Blackboard is the shared mutable context handed to every tick call. The
// runtime itself never reads or writes it; composites pass the same
// pointer through to their children untouched, and only leaf actions
// interpret its contents.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewBlackboard() *Blackboard {
	return &Blackboard{data: make(map[string]any)}
}

func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string]any)
	}
	b.data[key] = value
}

// Get returns the value stored under key, or nil.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

func (b *Blackboard) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

func (b *Blackboard) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// Keys returns the stored keys in no particular order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

func (b *Blackboard) GetString(key string) string {
	if s, ok := b.Get(key).(string); ok {
		return s
	}
	return ""
}

func (b *Blackboard) GetFloat64(key string) float64 {
	if f, ok := b.Get(key).(float64); ok {
		return f
	}
	return 0
}

func (b *Blackboard) GetBool(key string) bool {
	if v, ok := b.Get(key).(bool); ok {
		return v
	}
	return false
}
