package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/calvinalkan/stable-structures/internal/fs"
	"github.com/calvinalkan/stable-structures/pkg/btreemap"
	"github.com/calvinalkan/stable-structures/pkg/cell"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/ringbuffer"
	"github.com/calvinalkan/stable-structures/pkg/stablelog"
	"github.com/calvinalkan/stable-structures/pkg/storable"
	"github.com/calvinalkan/stable-structures/pkg/store"
)

// Virtual memory ids within the memory file.
const (
	memMap memory.MemoryID = iota
	memRingData
	memRingIndices
	memLogIndex
	memLogData
	memNote
)

// ringValueMax is the largest ring buffer element in bytes.
const ringValueMax = 256

// note is the value of the note cell.
type note struct {
	Text    string    `json:"text"`
	Updated time.Time `json:"updated"`
}

// collections are the structures a session exposes.
type collections struct {
	kv   *btreemap.CachedBTreeMap[string, string]
	ring *ringbuffer.RingBuffer[string]
	log  *stablelog.StableLog[*wrapperspb.StringValue]
	note *cell.StableCell[note]
}

// session owns an open memory file and the collections stored in it.
type session struct {
	cfg  Config
	file *memory.FileMemory
	fsys fs.FS
	mgr  *memory.MemoryManager
	data store.Storage[collections]
	log  *slog.Logger
}

type sessionOptions struct {
	// reset creates every collection empty instead of reopening it.
	reset bool

	// wait is how long to wait for another owner of the file.
	wait time.Duration
}

// openSession opens the memory file at path.
//
// Returns an error wrapping [memory.ErrCorrupt] if the file holds data that
// is not a stablectl layout.
func openSession(path string, cfg Config, opts sessionOptions, logger *slog.Logger) (*session, error) {
	file, err := memory.OpenFile(path, memory.FileOptions{
		MaxPages:    cfg.MaxPages,
		LockTimeout: opts.wait,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, file: file, fsys: fs.NewReal(), log: logger}

	if err := s.load(opts.reset); err != nil {
		return nil, errors.Join(err, file.Close())
	}

	logger.Debug("session opened", "path", path, "pages", file.Size(), "reset", opts.reset)

	return s, nil
}

// load builds the collections. Layout mismatches surface as panics from the
// Init constructors and are returned as errors.
func (s *session) load(reset bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v: %w", s.file.Path(), r, memory.ErrCorrupt)
		}
	}()

	logValues := storable.Proto(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	ringValues := storable.Storable[string](storable.BoundedString(ringValueMax))
	noteValues := storable.JSON[note]()

	var c collections

	if reset {
		s.mgr = memory.NewMemoryManagerWithBucketSize(s.file, s.cfg.BucketSizePages)

		c = collections{
			kv: btreemap.NewCached(s.mgr.Get(memMap), storable.String(), storable.Storable[string](storable.String()), s.cfg.CacheItems),
			ring: ringbuffer.New(
				s.mgr.Get(memRingData), s.mgr.Get(memRingIndices), ringValues, s.cfg.RingCapacity,
			),
			log:  stablelog.New(s.mgr.Get(memLogIndex), s.mgr.Get(memLogData), logValues),
			note: cell.NewStableCell(s.mgr.Get(memNote), noteValues, note{}),
		}
	} else {
		s.mgr = memory.InitMemoryManagerWithBucketSize(s.file, s.cfg.BucketSizePages)

		c = collections{
			kv: btreemap.InitCached(s.mgr.Get(memMap), storable.String(), storable.Storable[string](storable.String()), s.cfg.CacheItems),
			ring: ringbuffer.Init(
				s.mgr.Get(memRingData), s.mgr.Get(memRingIndices), ringValues, s.cfg.RingCapacity,
			),
			log:  stablelog.Init(s.mgr.Get(memLogIndex), s.mgr.Get(memLogData), logValues),
			note: cell.InitStableCell(s.mgr.Get(memNote), noteValues, note{}),
		}
	}

	s.data = store.NewOwned(c)

	return nil
}

// flush writes dirty pages to the file.
func (s *session) flush() error {
	return s.file.Flush()
}

// close flushes and releases the memory file.
func (s *session) close() error {
	return s.file.Close()
}
