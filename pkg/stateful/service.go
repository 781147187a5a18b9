package stateful

import (
	"sync"
)

// UpdateResult classifies the outcome of an Updater.
type UpdateResult uint8

const (
	// Unchanged means the update did not alter the value.
	Unchanged UpdateResult = iota

	// Changed means the value changed and can be applied live.
	Changed

	// ChangedRestart means the value changed and its consumer must restart.
	ChangedRestart
)

// String returns the result name.
func (r UpdateResult) String() string {
	switch r {
	case Unchanged:
		return "UNCHANGED"
	case Changed:
		return "CHANGED"
	case ChangedRestart:
		return "CHANGED_RESTART"
	default:
		return "UNKNOWN"
	}
}

// Object is the decoded key/value view of a serialized document.
type Object = map[string]any

// Reader writes the fields of v into root.
type Reader[T any] func(v T, root Object)

// Updater applies root onto v and reports what changed.
// Keys missing from root fall back to factory defaults.
type Updater[T any] func(root Object, v *T) UpdateResult

// HandlerID identifies a registered update handler. Zero is never assigned.
type HandlerID uint32

// UpdateHandler is invoked after an accepted update.
type UpdateHandler func()

type handlerEntry struct {
	id HandlerID
	fn UpdateHandler
}

// Service holds one live value of T.
type Service[T any] struct {
	// updateMu serialises Update calls including handler fan-out.
	updateMu sync.Mutex

	mu    sync.RWMutex
	value T

	handlers []handlerEntry
	nextID   HandlerID
}

// New creates a service holding initial.
func New[T any](initial T) *Service[T] {
	return &Service[T]{value: initial}
}

// Read hands the live value to visit. The visitor receives a copy; changes
// made to it are not stored.
func (s *Service[T]) Read(visit func(T)) {
	s.mu.RLock()
	v := s.value
	s.mu.RUnlock()

	visit(v)
}

// Get returns a copy of the live value.
func (s *Service[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// ReadObject serialises the live value into a new Object using reader.
func (s *Service[T]) ReadObject(reader Reader[T]) Object {
	root := make(Object)
	s.Read(func(v T) {
		reader(v, root)
	})
	return root
}

// Update applies updater to a copy of the live value. Unless the result is
// Unchanged the copy replaces the live value and every handler is invoked in
// registration order before Update returns.
//
// Calling Update from inside a handler deadlocks.
func (s *Service[T]) Update(root Object, updater Updater[T]) UpdateResult {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	result := s.apply(root, updater)
	if result != Unchanged {
		s.callHandlers()
	}
	return result
}

// UpdateWithoutPropagation applies updater like Update but never invokes
// handlers.
func (s *Service[T]) UpdateWithoutPropagation(root Object, updater Updater[T]) UpdateResult {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	return s.apply(root, updater)
}

// AddUpdateHandler registers fn and returns its ID.
func (s *Service[T]) AddUpdateHandler(fn UpdateHandler) HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, handlerEntry{id: id, fn: fn})
	return id
}

// RemoveUpdateHandler unregisters the handler with the given ID.
// Unknown IDs and the zero ID are ignored.
func (s *Service[T]) RemoveUpdateHandler(id HandlerID) {
	if id == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, h := range s.handlers {
		if h.id == id {
			s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
			return
		}
	}
}

// HandlerCount returns the number of registered handlers.
func (s *Service[T]) HandlerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

func (s *Service[T]) apply(root Object, updater Updater[T]) UpdateResult {
	if root == nil {
		root = Object{}
	}

	s.mu.RLock()
	next := s.value
	s.mu.RUnlock()

	result := updater(root, &next)
	if result == Unchanged {
		return result
	}

	s.mu.Lock()
	s.value = next
	s.mu.Unlock()
	return result
}

// callHandlers invokes a snapshot of the handler list outside the value lock
// so handlers may Read or remove themselves.
func (s *Service[T]) callHandlers() {
	s.mu.RLock()
	handlers := make([]handlerEntry, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.RUnlock()

	for _, h := range handlers {
		if h.id == 0 || h.fn == nil {
			continue
		}
		h.fn()
	}
}
