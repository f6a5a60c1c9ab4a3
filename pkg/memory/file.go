package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/stable-structures/internal/fs"
)

// FileOptions configures [OpenFile].
type FileOptions struct {
	// MaxPages caps the file size in pages. 0 means unlimited.
	MaxPages uint64

	// LockTimeout is how long OpenFile waits for another owner to release
	// the file. 0 fails immediately with [ErrBusy].
	LockTimeout time.Duration

	// Logger receives open, grow and close events. nil discards them.
	Logger *slog.Logger
}

// DefaultFileOptions returns options with no size limit and a discard logger.
func DefaultFileOptions() FileOptions {
	return FileOptions{Logger: slog.New(slog.DiscardHandler)}
}

// FileMemory is a [Memory] backed by a file mapped with mmap(2).
//
// Writes land in the shared mapping and reach the file when the kernel
// writes back dirty pages or on [FileMemory.Flush]. A FileMemory holds an
// exclusive flock on "<path>.lock" until [FileMemory.Close]; a second
// [OpenFile] of the same path fails with [ErrBusy].
type FileMemory struct {
	path     string
	file     fs.File
	lock     *fs.Lock
	data     []byte
	maxPages uint64
	log      *slog.Logger
	closed   bool
}

// OpenFile opens or creates the memory file at path.
//
// Possible errors:
//   - [ErrBusy]: another process holds the file
//   - [ErrCorrupt]: the file size is not a multiple of [PageSize]
//   - [ErrInvalidInput]: the file already exceeds opts.MaxPages
func OpenFile(path string, opts FileOptions) (*FileMemory, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsys := fs.NewReal()

	locker := fs.NewLocker(fsys)

	var (
		lock *fs.Lock
		err  error
	)

	if opts.LockTimeout > 0 {
		lock, err = locker.LockWithTimeout(path+".lock", opts.LockTimeout)
	} else {
		lock, err = locker.TryLock(path + ".lock")
	}

	if err != nil {
		if errors.Is(err, fs.ErrWouldBlock) {
			return nil, fmt.Errorf("open %q: %w", path, ErrBusy)
		}

		return nil, fmt.Errorf("open %q: lock: %w", path, err)
	}

	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open %q: %w", path, err), lock.Close())
	}

	fm := &FileMemory{path: path, file: f, lock: lock, maxPages: opts.MaxPages, log: logger}

	if err := fm.mapExisting(); err != nil {
		return nil, errors.Join(err, f.Close(), lock.Close())
	}

	logger.Debug("memory file opened", "path", path, "pages", fm.Size())

	return fm, nil
}

func (fm *FileMemory) mapExisting() error {
	info, err := fm.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", fm.path, err)
	}

	size := uint64(info.Size())
	if size%PageSize != 0 {
		return fmt.Errorf("file %q size %d not page aligned: %w", fm.path, size, ErrCorrupt)
	}

	if fm.maxPages > 0 && size/PageSize > fm.maxPages {
		return fmt.Errorf("file %q has %d pages, limit %d: %w", fm.path, size/PageSize, fm.maxPages, ErrInvalidInput)
	}

	return fm.remap(size)
}

func (fm *FileMemory) remap(size uint64) error {
	if fm.data != nil {
		if err := unix.Munmap(fm.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}

		fm.data = nil
	}

	if size == 0 {
		return nil
	}

	data, err := unix.Mmap(int(fm.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	fm.data = data

	return nil
}

// Path returns the file path.
func (fm *FileMemory) Path() string {
	return fm.path
}

// Size implements [Memory].
func (fm *FileMemory) Size() uint64 {
	return uint64(len(fm.data)) / PageSize
}

// Grow implements [Memory]. It extends the file with ftruncate(2) and maps
// it again; slices previously read from the memory stay valid since reads
// copy.
func (fm *FileMemory) Grow(pages uint64) int64 {
	if fm.closed {
		return -1
	}

	prev := fm.Size()
	if fm.maxPages > 0 && prev+pages > fm.maxPages {
		return -1
	}

	if pages == 0 {
		return int64(prev)
	}

	newSize := (prev + pages) * PageSize

	if err := fm.file.Truncate(int64(newSize)); err != nil {
		fm.log.Warn("memory file grow failed", "path", fm.path, "pages", prev+pages, "error", err)
		return -1
	}

	if err := fm.remap(newSize); err != nil {
		fm.log.Warn("memory file remap failed", "path", fm.path, "pages", prev+pages, "error", err)
		return -1
	}

	fm.log.Debug("memory file grown", "path", fm.path, "from", prev, "to", prev+pages)

	return int64(prev)
}

// Read implements [Memory].
func (fm *FileMemory) Read(offset uint64, dst []byte) {
	checkRange("read", uint64(len(fm.data)), offset, len(dst))
	copy(dst, fm.data[offset:])
}

// Write implements [Memory].
func (fm *FileMemory) Write(offset uint64, src []byte) {
	checkRange("write", uint64(len(fm.data)), offset, len(src))
	copy(fm.data[offset:], src)
}

// Flush synchronously writes dirty pages to the file.
func (fm *FileMemory) Flush() error {
	if fm.closed {
		return ErrClosed
	}

	if fm.data == nil {
		return nil
	}

	if err := unix.Msync(fm.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync %q: %w", fm.path, err)
	}

	return nil
}

// Close flushes, unmaps, closes the file and releases the lock.
// Close is idempotent; later calls return nil.
func (fm *FileMemory) Close() error {
	if fm.closed {
		return nil
	}

	fm.closed = true

	var syncErr, unmapErr error

	if fm.data != nil {
		if err := unix.Msync(fm.data, unix.MS_SYNC); err != nil {
			syncErr = fmt.Errorf("msync: %w", err)
		}

		if err := unix.Munmap(fm.data); err != nil {
			unmapErr = fmt.Errorf("munmap: %w", err)
		}

		fm.data = nil
	}

	closeErr := fm.file.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close file: %w", closeErr)
	}

	lockErr := fm.lock.Close()

	err := errors.Join(syncErr, unmapErr, closeErr, lockErr)
	if err != nil {
		fm.log.Warn("memory file close failed", "path", fm.path, "error", err)
	} else {
		fm.log.Debug("memory file closed", "path", fm.path)
	}

	return err
}

var _ Memory = (*FileMemory)(nil)
