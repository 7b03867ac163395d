package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dataset-hub/dataset-hub/internal/table"
)

// ErrMiss 表示本地层没有可用条目（不存在、过期或无法解码）。
// Miss 不是故障：auto 模式下链路继续尝试下一层。
var ErrMiss = errors.New("local cache miss")

// ErrLocked 表示条目的进程间锁被占用，等待超时。
var ErrLocked = errors.New("cache entry locked")

// FormatResultJSON 是当前唯一的载荷格式标记。
const FormatResultJSON = "result+json"

// Meta 是与载荷文件并存的 sidecar 元数据。
type Meta struct {
	ID        string    `json:"id"`
	SavedAt   time.Time `json:"saved_at"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"size_bytes"`
	RowCount  int       `json:"row_count"`
	ColCount  int       `json:"col_count"`
}

// Entry 组合元数据与解码后的载荷，本地层命中时返回。
type Entry struct {
	Meta   Meta
	Result table.Result
}

// LoadOptions 控制读取行为。
type LoadOptions struct {
	// AllowStale 为 true 时跳过新鲜度检查，过期条目照常返回。
	AllowStale bool
	// Freshness > 0 时覆盖 Store 级别的新鲜度窗口，按数据集收紧或放宽。
	Freshness time.Duration
}

// Store 管理磁盘缓存目录。磁盘布局：
//
//	<dir>/<id>.json       # table.Result 载荷
//	<dir>/<id>.meta.json  # sidecar 元数据
//	<dir>/<id>.lock       # 写入期间的进程间锁文件
//
// 写入通过临时文件 + rename 保证原子性，崩溃不会破坏既有条目。
type Store struct {
	dir       string
	freshness time.Duration

	mu    sync.Mutex
	locks map[string]*entryLock

	// now 可注入，便于新鲜度判定的确定性测试。
	now func() time.Time
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

var validID = regexp.MustCompile(`^[a-z0-9_]+$`)

// NewStore 以 dir 为根目录构建本地缓存。freshness <= 0 表示条目永不过期。
func NewStore(dir string, freshness time.Duration) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{
		dir:       abs,
		freshness: freshness,
		locks:     make(map[string]*entryLock),
		now:       time.Now,
	}, nil
}

// Load 读取条目并应用新鲜度阈值。绝不触网。过期但存在的条目按 Miss 处理，
// 调用方可通过 AllowStale 显式接受过期数据。
func (s *Store) Load(ctx context.Context, id string, opts LoadOptions) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	metaRaw, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no entry", ErrMiss, id)
		}
		return nil, fmt.Errorf("read cache meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s meta unreadable", ErrMiss, id)
	}

	freshness := s.freshness
	if opts.Freshness > 0 {
		freshness = opts.Freshness
	}
	if !opts.AllowStale && freshness > 0 {
		age := s.now().Sub(meta.SavedAt)
		if age > freshness {
			return nil, fmt.Errorf("%w: %s stale (age %s)", ErrMiss, id, age.Round(time.Second))
		}
	}

	payload, err := os.ReadFile(s.payloadPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s payload missing", ErrMiss, id)
		}
		return nil, fmt.Errorf("read cache payload: %w", err)
	}
	var result table.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %s payload unreadable", ErrMiss, id)
	}

	return &Entry{Meta: meta, Result: result}, nil
}

// Save 原子地写入载荷与 sidecar。进程内通过条目锁串行化，跨进程通过
// <id>.lock 文件互斥；同一 ID 的并发读者永远不会看到写到一半的条目。
func (s *Store) Save(ctx context.Context, id string, result table.Result, savedAt time.Time) (*Meta, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	unlock := s.lockEntry(id)
	defer unlock()

	release, err := s.acquireLockFile(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if savedAt.IsZero() {
		savedAt = s.now().UTC()
	}
	meta := Meta{
		ID:        id,
		SavedAt:   savedAt.UTC(),
		Format:    FormatResultJSON,
		SizeBytes: int64(len(payload)),
		RowCount:  result.RowCount(),
		ColCount:  result.ColCount(),
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}

	if err := writeAtomic(s.payloadPath(id), payload); err != nil {
		return nil, err
	}
	if err := writeAtomic(s.metaPath(id), metaRaw); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List 返回目录内全部 sidecar 元数据，按 ID 排序。
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// Clear 删除单个条目；条目不存在不算错误。
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}
	unlock := s.lockEntry(id)
	defer unlock()

	for _, path := range []string{s.payloadPath(id), s.metaPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ClearAll 清空整个缓存目录中的条目文件。
func (s *Store) ClearAll(ctx context.Context) error {
	metas, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, meta := range metas {
		if err := s.Clear(ctx, meta.ID); err != nil {
			return err
		}
	}
	return nil
}

// Dir 返回缓存根目录的绝对路径。
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) payloadPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta.json")
}

func (s *Store) lockFilePath(id string) string {
	return filepath.Join(s.dir, id+".lock")
}

func (s *Store) lockEntry(id string) func() {
	s.mu.Lock()
	lock := s.locks[id]
	if lock == nil {
		lock = &entryLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// acquireLockFile 以 O_EXCL 创建锁文件实现跨进程互斥，短暂轮询后放弃。
func (s *Store) acquireLockFile(ctx context.Context, id string) (func(), error) {
	path := s.lockFilePath(id)
	const (
		maxWaitAttempts = 20
		waitStep        = 50 * time.Millisecond
	)
	for attempt := 0; attempt < maxWaitAttempts; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitStep):
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLocked, id)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func checkID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("invalid cache id %q", id)
	}
	return nil
}
