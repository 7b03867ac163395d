package dataset

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// defaultRegistry 承接各数据源包 init() 的注册；运行时通过 Default()
// 取出后显式传入 Resolver，后续不再依赖包级状态。
var defaultRegistry = NewRegistry()

// Registry 是数据集描述符与在线抓取实现的静态目录。注册阶段结束后只读。
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
	aliases     map[string]string
	fetchers    map[string]Fetcher
}

// NewRegistry 构建空目录，测试与嵌入场景自行填充。
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
		aliases:     make(map[string]string),
		fetchers:    make(map[string]Fetcher),
	}
}

// Default 返回数据源包 init() 填充的进程默认目录。
func Default() *Registry {
	return defaultRegistry
}

// MustRegister 在默认目录上注册描述符，失败时 panic，适合数据源包 init()。
func MustRegister(desc Descriptor) {
	if err := defaultRegistry.Register(desc); err != nil {
		panic(err)
	}
}

// MustRegisterFetcher 在默认目录上绑定在线抓取实现，失败时 panic。
func MustRegisterFetcher(id string, f Fetcher) {
	if err := defaultRegistry.RegisterFetcher(id, f); err != nil {
		panic(err)
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Register 将数据集描述符加入目录，重复 ID 或别名冲突会返回错误。
func (r *Registry) Register(desc Descriptor) error {
	id := normalizeID(desc.ID)
	if id == "" {
		return fmt.Errorf("dataset id is required")
	}
	desc.ID = id

	seen := map[string]struct{}{}
	for _, key := range desc.Tables {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("dataset %s declares an empty table key", id)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("dataset %s declares duplicate table key %s", id, key)
		}
		seen[key] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[id]; exists {
		return fmt.Errorf("dataset %s already registered", id)
	}
	if owner, exists := r.aliases[id]; exists {
		return fmt.Errorf("dataset %s collides with alias of %s", id, owner)
	}
	for _, alias := range desc.Aliases {
		normalized := normalizeID(alias)
		if normalized == "" || normalized == id {
			return fmt.Errorf("dataset %s declares invalid alias %q", id, alias)
		}
		if _, exists := r.descriptors[normalized]; exists {
			return fmt.Errorf("alias %s of dataset %s collides with a registered id", normalized, id)
		}
		if owner, exists := r.aliases[normalized]; exists {
			return fmt.Errorf("alias %s of dataset %s already owned by %s", normalized, id, owner)
		}
	}

	r.descriptors[id] = desc
	for _, alias := range desc.Aliases {
		r.aliases[normalizeID(alias)] = id
	}
	return nil
}

// RegisterFetcher 绑定数据集的在线抓取实现；描述符必须先注册且声明 LiveFetchable。
func (r *Registry) RegisterFetcher(id string, f Fetcher) error {
	normalized := normalizeID(id)
	if f == nil {
		return fmt.Errorf("fetcher for %s is nil", normalized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.descriptors[normalized]
	if !ok {
		return fmt.Errorf("dataset %s is not registered", normalized)
	}
	if !desc.LiveFetchable {
		return fmt.Errorf("dataset %s is not declared live-fetchable", normalized)
	}
	if _, exists := r.fetchers[normalized]; exists {
		return fmt.Errorf("fetcher for %s already registered", normalized)
	}
	r.fetchers[normalized] = f
	return nil
}

// Lookup 返回指定 ID（或历史别名）的描述符。隐藏数据集照常返回，
// 可见性裁决在 Validate 中完成。
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	normalized := normalizeID(id)
	if normalized == "" {
		return Descriptor{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if desc, ok := r.descriptors[normalized]; ok {
		return desc, true
	}
	if target, ok := r.aliases[normalized]; ok {
		desc, found := r.descriptors[target]
		return desc, found
	}
	return Descriptor{}, false
}

// Fetcher 返回数据集绑定的在线抓取实现。
func (r *Registry) Fetcher(id string) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[normalizeID(id)]
	return f, ok
}

// List 返回按 ID 排序的描述符列表；includeHidden 为 false 时过滤隐藏项。
func (r *Registry) List(includeHidden bool) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.descriptors))
	for key, desc := range r.descriptors {
		if desc.Hidden && !includeHidden {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Descriptor, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.descriptors[key])
	}
	return result
}

// Keys 返回所有可见数据集的 ID，供诊断接口使用。
func (r *Registry) Keys() []string {
	items := r.List(false)
	result := make([]string, len(items))
	for i, desc := range items {
		result[i] = desc.ID
	}
	return result
}
