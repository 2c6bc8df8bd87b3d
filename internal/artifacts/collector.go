// Package artifacts harvests the files a job produced into its run directory.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aatumaykin/friday/internal/glob"
	"github.com/aatumaykin/friday/internal/logger"
)

var (
	// ErrCopy is a failure to copy a single file. Collection goes on.
	ErrCopy = errors.New("artifact copy failed")
	// ErrWalk is a failure to read the workspace tree. It ends the collection.
	ErrWalk = errors.New("workspace walk failed")
)

// Stats summarizes one Collect call.
type Stats struct {
	Matched int // files whose base name matched a pattern
	Copied  int
	Failed  int
}

// Collector copies matching workspace files into a destination directory.
type Collector struct {
	logger *logger.Logger
}

// NewCollector creates a Collector that reports through log.
func NewCollector(log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{logger: log}
}

// Collect walks workspace and copies every regular file whose base name
// matches one of patterns into destination, flattening the tree.
//
// Symlinks are not followed. The walk is in lexical order, so when two files
// share a base name the one with the later path wins. A failed copy is
// logged and counted; a directory that cannot be read aborts the call with
// ErrWalk. When destination lies inside workspace it is not descended into.
func (c *Collector) Collect(ctx context.Context, workspace, destination string, patterns []string) (Stats, error) {
	var stats Stats

	matchers, err := glob.CompileAll(patterns)
	if err != nil {
		return stats, err
	}

	destAbs, err := filepath.Abs(destination)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve destination %s: %w", destination, err)
	}

	copied := make(map[string]string)
	err = filepath.WalkDir(workspace, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("%w: %s: %v", ErrWalk, path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if abs, err := filepath.Abs(path); err == nil && abs == destAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := d.Name()
		if !glob.MatchAny(matchers, name) {
			return nil
		}
		stats.Matched++

		target := filepath.Join(destination, name)
		if prev, ok := copied[name]; ok {
			c.logger.Warn("artifact overwrites an earlier file with the same name",
				logger.Field{Key: "source", Value: path},
				logger.Field{Key: "previous", Value: prev},
				logger.Field{Key: "destination", Value: target})
		}

		if err := copyFile(path, target); err != nil {
			stats.Failed++
			c.logger.Error("failed to copy artifact", err,
				logger.Field{Key: "source", Value: path},
				logger.Field{Key: "destination", Value: target})
			return nil
		}

		copied[name] = path
		stats.Copied++
		c.logger.Debug("copied artifact",
			logger.Field{Key: "source", Value: path},
			logger.Field{Key: "destination", Value: target})
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// copyFile copies src to dst, truncating dst and keeping src's permissions.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrCopy, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}
	return nil
}
