package session

import "time"

func SetMemoryClock(b *MemoryBackend, now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}
