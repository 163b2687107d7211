package watch

import (
	"sync"
)

// fakeSource drives the engine deterministically in tests: the test
// creates real files on disk, then injects the notification the OS
// primitive would have produced.
type fakeSource struct {
	mu          sync.Mutex
	registered  map[string]NoteFlags
	paused      bool
	out         chan Notification
	closeOnce   sync.Once
	registerErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		registered: make(map[string]NoteFlags),
		out:        make(chan Notification, 128),
	}
}

func (s *fakeSource) Register(path string, classes NoteFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return s.registerErr
	}
	s.registered[path] = classes
	return nil
}

func (s *fakeSource) Unregister(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registered, path)
}

func (s *fakeSource) PauseDelivery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *fakeSource) ResumeDelivery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *fakeSource) Notifications() <-chan Notification {
	return s.out
}

func (s *fakeSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.out)
	})
	return nil
}

// send mimics delivery: notifications arriving while paused are
// dropped, exactly like the production source.
func (s *fakeSource) send(path string, flags NoteFlags) {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()
	if paused {
		return
	}
	s.out <- Notification{Path: path, Flags: flags}
}

func (s *fakeSource) isRegistered(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registered[path]
	return ok
}

func (s *fakeSource) registeredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registered)
}
