package iocache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"go.uber.org/zap"
)

// Lifecycle errors of an issue cache.
var (
	ErrIssueCacheClosed    = errors.New("issue cache is closed for writing")
	ErrIssueCacheOpen      = errors.New("issue cache must be closed before it is read")
	ErrIssueCacheDiscarded = errors.New("issue cache has been discarded")
)

type issueCacheState int

const (
	cacheWriting issueCacheState = iota
	cacheReadable
	cacheDiscarded
)

// BadgerIssueCache keeps the issues of a run in badger, in append order.
// Issues go to disk under a spill directory, or stay in memory when none is given.
type BadgerIssueCache struct {
	mu    sync.Mutex
	db    *badger.DB
	dir   string // removed on Discard; empty when in memory
	seq   uint64
	state issueCacheState
}

var _ contract.IssueCache = &BadgerIssueCache{} // Compile-time check

// badgerLogger routes badger's internal logging to zap.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...any)   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.logger.Debugf(format, args...) }

// NewIssueCache opens an empty issue cache. A non-empty spillDir keeps issues on disk
// in a private directory below it.
func NewIssueCache(spillDir string, logger *zap.Logger) (*BadgerIssueCache, error) {
	var (
		opts badger.Options
		dir  string
	)
	if spillDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(spillDir, 0o750); err != nil {
			return nil, fmt.Errorf("create spill directory %s: %w", spillDir, err)
		}
		tmp, err := os.MkdirTemp(spillDir, "issues-")
		if err != nil {
			return nil, fmt.Errorf("create issue cache directory: %w", err)
		}
		dir = tmp
		opts = badger.DefaultOptions(dir).WithSyncWrites(false)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("open issue cache: %w", err)
	}
	return &BadgerIssueCache{db: db, dir: dir}, nil
}

// Append implements contract.IssueCache.
func (c *BadgerIssueCache) Append(issue schema.Issue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case cacheReadable:
		return ErrIssueCacheClosed
	case cacheDiscarded:
		return ErrIssueCacheDiscarded
	}

	value, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("encode issue %s: %w", issue.Key, err)
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, c.seq)
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return fmt.Errorf("store issue %s: %w", issue.Key, err)
	}
	c.seq++
	return nil
}

// Close implements contract.IssueCache. Closing twice is allowed.
func (c *BadgerIssueCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == cacheDiscarded {
		return ErrIssueCacheDiscarded
	}
	c.state = cacheReadable
	return nil
}

// Iterate implements contract.IssueCache. Issues come back in append order.
func (c *BadgerIssueCache) Iterate(fn func(schema.Issue) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case cacheWriting:
		return ErrIssueCacheOpen
	case cacheDiscarded:
		return ErrIssueCacheDiscarded
	}

	return c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var issue schema.Issue
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &issue)
			}); err != nil {
				return fmt.Errorf("decode issue: %w", err)
			}
			if err := fn(issue); err != nil {
				return err
			}
		}
		return nil
	})
}

// Discard implements contract.IssueCache. It releases storage and is idempotent.
func (c *BadgerIssueCache) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == cacheDiscarded {
		return nil
	}
	c.state = cacheDiscarded
	err := c.db.Close()
	if c.dir != "" {
		err = errors.Join(err, os.RemoveAll(c.dir))
	}
	return err
}

// Len returns the number of appended issues.
func (c *BadgerIssueCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.seq)
}
