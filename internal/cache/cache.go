package cache

import "time"

// Cache is the read/write surface consumers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches the Manager can sweep.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs a single background sweep over every registered cache so
// expired sessions and stale pages do not linger until their next lookup.
type Manager struct {
	caches  []Cleaner
	stop    chan struct{}
	stopped chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Register must be called before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	go m.loop(interval)
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range m.caches {
				c.CleanExpired()
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the sweep loop and waits for it to exit.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.stopped
}
