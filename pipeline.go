package tm2

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/tm2/tim2"
)

const (
	numWorkers = 10

	// Largest file considered; nothing legitimate comes close
	maxFileSize = 64 << (10 * 2)
)

var errNotDirectory = errors.New("not a directory")

var decodeErrors = []error{
	tim2.ErrUnexpectedEOF,
	tim2.ErrInvalidMagic,
	tim2.ErrInvalidHeader,
	tim2.ErrTruncatedFrame,
}

func isDecodeError(err error) bool {
	for _, kind := range decodeErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// findDirectories sends base and every directory below it that isn't hidden.
func (t *Tool) findDirectories(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s: %w", base, errNotDirectory)
	}

	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.WalkDir(base, func(dir string, entry fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case !entry.IsDir():
				return nil
			case dir != base && hidden(entry.Name()):
				return filepath.SkipDir
			}

			select {
			case out <- dir:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return out, errc, nil
}

func (t *Tool) scanDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		// Ignore hidden files and anything that isn't a normal file
		if hidden(entry.Name()) || !entry.Type().IsRegular() {
			continue
		}

		if !strings.EqualFold(filepath.Ext(entry.Name()), ".tm2") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		file := filepath.Join(dir, entry.Name())
		if info.Size() > maxFileSize {
			t.logger.Printf("Skipping \"%s\", %d bytes is too large\n", file, info.Size())
			continue
		}

		if err := t.Add(file); err != nil {
			if !isDecodeError(err) {
				return err
			}
			t.logger.Printf("Skipping %v\n", err)
		}
	}

	return nil
}

func (t *Tool) directoryWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for dir := range in {
			if ctx.Err() != nil {
				// Drain so the walker isn't left blocked
				continue
			}
			if err := t.scanDirectory(dir); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var first error
	for err := range merge(errs...) {
		if err != nil && first == nil {
			first = err
			// Stop the walker so the remaining workers drain and exit
			cancel()
		}
	}
	return first
}

// merge fans in every channel in cs, closing the result once they are all
// closed.
func merge[T any](cs ...<-chan T) <-chan T {
	out := make(chan T, len(cs))

	var wg sync.WaitGroup
	for _, c := range cs {
		wg.Add(1)
		go func(c <-chan T) {
			defer wg.Done()
			for v := range c {
				out <- v
			}
		}(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Scan walks the tree rooted at path and adds every .tm2 file found to the
// catalogue. Files that fail to decode are logged and skipped.
func (t *Tool) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	dirs, errc, err := t.findDirectories(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < numWorkers; i++ {
		errc, err := t.directoryWorker(ctx, dirs)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(cancelFunc, errcList...)
}
