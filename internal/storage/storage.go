package storage

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/signcfg/internal/signing"
)

var (
	// ErrInvalidSnapshot indicates the snapshot does not name the file it was read from.
	ErrInvalidSnapshot = errors.New("snapshot must reference a properties path")
	// ErrEmpty is returned by Get before the first successful Set.
	ErrEmpty = errors.New("no signing snapshot loaded")
)

// Snapshot is one successful read of the signing properties file.
type Snapshot struct {
	Source   signing.Source
	LoadedAt time.Time
}

// Storage provides access to the most recently loaded signing snapshot.
type Storage interface {
	Get() (Snapshot, error)
	Set(snapshot Snapshot) error
}

// MemoryStorage keeps the snapshot in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Get returns a defensive copy of the current snapshot.
func (s *MemoryStorage) Get() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return Snapshot{}, ErrEmpty
	}
	return clone(*s.snapshot), nil
}

// Set validates and stores a copy of the snapshot, replacing the previous one.
func (s *MemoryStorage) Set(snapshot Snapshot) error {
	if strings.TrimSpace(snapshot.Source.Path) == "" {
		return ErrInvalidSnapshot
	}

	stored := clone(snapshot)

	s.mu.Lock()
	s.snapshot = &stored
	s.mu.Unlock()

	return nil
}

func clone(src Snapshot) Snapshot {
	return Snapshot{
		Source:   src.Source.Clone(),
		LoadedAt: src.LoadedAt,
	}
}
