package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Artifact is one synthesized MP3 kept on local disk.
type Artifact struct {
	ID        string
	Path      string
	Size      int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store keeps track of local audio artifacts: per-request unique names, the
// most recently completed artifact, TTL based removal. Safe for concurrent use.
type Store struct {
	dir string
	ttl time.Duration
	log *zap.SugaredLogger

	mu     sync.RWMutex
	files  map[string]*Artifact
	latest string

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore(dir string, ttl time.Duration, log *zap.SugaredLogger) (*Store, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir %s: %w", dir, err)
	}
	return &Store{
		dir:   dir,
		ttl:   ttl,
		log:   log,
		files: make(map[string]*Artifact),
		now:   time.Now,
		stop:  make(chan struct{}),
	}, nil
}

// NewID returns a fresh artifact id; Path(id) is where the audio must be written.
func (s *Store) NewID() string {
	return uuid.NewString()
}

func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+".mp3")
}

// TempPath is a unique scratch file in the audio dir, not tracked by the store.
func (s *Store) TempPath() string {
	return filepath.Join(s.dir, "tmp_"+uuid.NewString()+".mp3")
}

// Register records a finished artifact and makes it the latest one.
func (s *Store) Register(id string) (*Artifact, error) {
	path := s.Path(id)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat audio: %w", err)
	}

	now := s.now()
	a := &Artifact{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.files[id] = a
	s.latest = id
	s.mu.Unlock()

	s.log.Infow("audio stored", "id", id, "size", humanize.Bytes(uint64(a.Size)))
	return a, nil
}

// Latest returns the most recently registered artifact.
func (s *Store) Latest() (*Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == "" {
		return nil, false
	}
	a, ok := s.files[s.latest]
	return a, ok
}

// Get returns a non-expired artifact by id.
func (s *Store) Get(id string) (*Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.files[id]
	if !ok {
		return nil, false
	}
	if id != s.latest && s.now().After(a.ExpiresAt) {
		return nil, false
	}
	return a, true
}

// Cleanup deletes expired artifacts except the latest one and returns how
// many were removed.
func (s *Store) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	var expired []*Artifact
	for id, a := range s.files {
		if id != s.latest && now.After(a.ExpiresAt) {
			expired = append(expired, a)
			delete(s.files, id)
		}
	}
	s.mu.Unlock()

	for _, a := range expired {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warnw("failed to delete expired audio", "path", a.Path, "error", err)
		}
	}
	if len(expired) > 0 {
		s.log.Infow("audio cleanup", "removed", len(expired))
	}
	return len(expired)
}

const minCleanupInterval = time.Second

// Run calls Cleanup every interval until Stop. Intervals below one second are
// raised to one second.
func (s *Store) Run(interval time.Duration) {
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
