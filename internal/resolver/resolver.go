package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/localcache"
	"github.com/dataset-hub/dataset-hub/internal/logging"
	"github.com/dataset-hub/dataset-hub/internal/remote"
	"github.com/dataset-hub/dataset-hub/internal/retry"
	"github.com/dataset-hub/dataset-hub/internal/table"
	"github.com/dataset-hub/dataset-hub/internal/validate"
)

// Mode 指定请求固定走哪一层；Auto 按 local → remote → live 依次回退。
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
	ModeLive   Mode = "live"
	ModeAuto   Mode = "auto"
)

// ParseMode 解析请求层参数；空值按 auto 处理，非法值属于参数错误。
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "":
		return ModeAuto, nil
	case ModeLocal, ModeRemote, ModeLive, ModeAuto:
		return Mode(raw), nil
	default:
		return "", dataset.ValidationError{Field: "source", Reason: "must be local/remote/live/auto"}
	}
}

// Request 是一次解析请求的全部输入。
type Request struct {
	ID    string
	Table string
	Mode  Mode
	// UseCache 为 false 时远程/在线成功后不做写穿透。
	UseCache bool
	// Quiet 抑制解析日志，错误照常返回。
	Quiet bool
	// MaxRetries 覆盖网络层的重试上限；0 使用解析器默认值。
	MaxRetries int
	// AllowStale 显式接受过期的本地条目。
	AllowStale bool
	Params     dataset.Params
}

// LocalStore 抽象本地缓存层，便于用测试替身验证调用顺序与零副作用契约。
type LocalStore interface {
	Load(ctx context.Context, id string, opts localcache.LoadOptions) (*localcache.Entry, error)
	Save(ctx context.Context, id string, result table.Result, savedAt time.Time) (*localcache.Meta, error)
}

// RemoteStore 抽象远程资产仓库层。
type RemoteStore interface {
	Fetch(ctx context.Context, id string, policy retry.Policy) (table.Result, remote.Asset, error)
}

// Options 是构建 Resolver 所需的全部协作对象与策略，一次性显式传入，
// 解析过程中不读取任何包级状态。
type Options struct {
	Registry *dataset.Registry
	Local    LocalStore
	// Remote 为 nil 时远程层视为未配置。
	Remote RemoteStore
	Logger *logrus.Logger

	MaxRetries int
	BaseDelay  time.Duration
	BackoffCap time.Duration

	// Rules 按数据集 ID 提供结构校验规则；缺省只要求非空表。
	Rules map[string]validate.Rules
	// CacheEnabled 按数据集 ID 决定是否允许写穿透；nil 表示全部允许。
	CacheEnabled func(id string) bool
	// FreshnessFor 按数据集 ID 给出本地层新鲜度窗口；nil 使用本地层默认值。
	FreshnessFor func(id string) time.Duration
	// MaxRetriesFor 按数据集 ID 给出重试上限；请求级 MaxRetries 优先于它。
	MaxRetriesFor func(id string) int
	// Sleep 注入重试等待，测试无需真实延时。
	Sleep func(ctx context.Context, d time.Duration) error
}

// Resolver 驱动三层解析链。单次调用完全串行：层与层之间不并行，
// auto 模式在第一个非空结果处停下，不浪费后续层的网络预算。
type Resolver struct {
	registry *dataset.Registry
	local    LocalStore
	remote   RemoteStore
	logger   *logrus.Logger

	maxRetries int
	baseDelay  time.Duration
	backoffCap time.Duration

	rules         map[string]validate.Rules
	cacheEnabled  func(id string) bool
	freshnessFor  func(id string) time.Duration
	maxRetriesFor func(id string) int
	sleep         func(ctx context.Context, d time.Duration) error
}

// New 构建解析器；Registry 与 Local 必填。
func New(opts Options) (*Resolver, error) {
	if opts.Registry == nil {
		return nil, errors.New("resolver requires a registry")
	}
	if opts.Local == nil {
		return nil, errors.New("resolver requires a local store")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	backoffCap := opts.BackoffCap
	if backoffCap <= 0 {
		backoffCap = 30 * time.Second
	}

	return &Resolver{
		registry:      opts.Registry,
		local:         opts.Local,
		remote:        opts.Remote,
		logger:        logger,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		backoffCap:    backoffCap,
		rules:         opts.Rules,
		cacheEnabled:  opts.CacheEnabled,
		freshnessFor:  opts.FreshnessFor,
		maxRetriesFor: opts.MaxRetriesFor,
		sleep:         opts.Sleep,
	}, nil
}

// Resolve 是对外的唯一解析入口。流程：请求校验（零副作用）→ 层链 →
// 表过滤 → 结构校验 → 出处标注 → 写穿透。
func (r *Resolver) Resolve(ctx context.Context, req Request) (table.Result, table.Provenance, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return table.Result{}, table.Provenance{}, err
	}

	normalized, err := r.registry.Validate(req.ID, req.Table, req.Params)
	if err != nil {
		return table.Result{}, table.Provenance{}, err
	}
	desc := normalized.Descriptor

	if mode == ModeLive && !desc.LiveFetchable {
		return table.Result{}, table.Provenance{}, dataset.ValidationError{
			Field: "source", Reason: "dataset " + desc.ID + " is not live-fetchable",
		}
	}

	policy := r.policyFor(desc.ID, req)
	trace := newChainTrace()

	raw, winner, retries, err := r.runChain(ctx, mode, desc, req, policy, trace)
	if err != nil {
		return table.Result{}, table.Provenance{}, err
	}

	filtered, err := table.Filter(raw, normalized.TableKey)
	if err != nil {
		return table.Result{}, table.Provenance{}, &validate.StructuralError{Reason: err.Error()}
	}

	warnings, err := validate.CheckResult(filtered, r.rulesFor(desc.ID))
	if err != nil {
		// 结构不合法的载荷永远不返回给调用方，即便底层取数成功。
		return table.Result{}, table.Provenance{}, err
	}

	notes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		notes = append(notes, w.String())
	}
	final, prov := table.Annotate(filtered, winner, normalized.TableKey, retries, notes)

	r.writeThrough(ctx, desc.ID, winner, raw, req)

	if !req.Quiet {
		r.logger.WithFields(logging.ResolveFields(
			desc.ID, normalized.TableKey, string(winner), retries, winner == table.SourceLocal,
		)).Info("dataset resolved")
	}
	return final, prov, nil
}

// runChain 按 pinned/auto 顺序尝试各层，返回第一个非空结果。
func (r *Resolver) runChain(
	ctx context.Context,
	mode Mode,
	desc dataset.Descriptor,
	req Request,
	policy retry.Policy,
	trace *chainTrace,
) (table.Result, table.Source, int, error) {
	tiers := r.tiersFor(mode, desc)

	for _, tier := range tiers {
		trace.checked(tier)
		result, retries, err := r.tryTier(ctx, tier, desc.ID, req, policy)
		if err == nil && result.Empty() {
			err = r.emptyError(tier, desc.ID)
		}
		if err != nil {
			trace.failed(tier, err)
			if !req.Quiet {
				r.logger.WithFields(logrus.Fields{
					"dataset": desc.ID,
					"tier":    string(tier),
				}).WithError(err).Debug("tier failed")
			}
			continue
		}
		trace.done(tier)
		return result, tier, retries, nil
	}

	if mode != ModeAuto && len(trace.failures) == 1 {
		// 固定层的失败直接上浮，不做静默回退。
		return table.Result{}, "", 0, trace.failures[0].Err
	}
	return table.Result{}, "", 0, &ChainError{Failures: trace.failures}
}

func (r *Resolver) tiersFor(mode Mode, desc dataset.Descriptor) []table.Source {
	switch mode {
	case ModeLocal:
		return []table.Source{table.SourceLocal}
	case ModeRemote:
		return []table.Source{table.SourceRemote}
	case ModeLive:
		return []table.Source{table.SourceLive}
	}

	tiers := []table.Source{table.SourceLocal}
	if r.remote != nil {
		tiers = append(tiers, table.SourceRemote)
	}
	if desc.LiveFetchable {
		tiers = append(tiers, table.SourceLive)
	}
	return tiers
}

func (r *Resolver) tryTier(
	ctx context.Context,
	tier table.Source,
	id string,
	req Request,
	policy retry.Policy,
) (table.Result, int, error) {
	switch tier {
	case table.SourceLocal:
		opts := localcache.LoadOptions{AllowStale: req.AllowStale}
		if r.freshnessFor != nil {
			opts.Freshness = r.freshnessFor(id)
		}
		entry, err := r.local.Load(ctx, id, opts)
		if err != nil {
			return table.Result{}, 0, err
		}
		return entry.Result, 0, nil

	case table.SourceRemote:
		if r.remote == nil {
			return table.Result{}, 0, ErrRemoteDisabled
		}
		counted, retries := countingPolicy(policy)
		result, _, err := r.remote.Fetch(ctx, id, counted)
		return result, *retries, err

	case table.SourceLive:
		fetcher, ok := r.registry.Fetcher(id)
		if !ok {
			return table.Result{}, 0, fmt.Errorf("%w: %s", ErrNoFetcher, id)
		}
		var result table.Result
		attempts, err := retry.Run(ctx, policy, func(ctx context.Context) error {
			fetched, fetchErr := fetcher.Fetch(ctx, id, req.Params)
			if fetchErr != nil {
				return fetchErr
			}
			result = fetched
			return nil
		})
		if err != nil {
			return table.Result{}, attempts - 1, err
		}
		return result, attempts - 1, nil
	}
	return table.Result{}, 0, fmt.Errorf("unknown tier %q", tier)
}

func (r *Resolver) emptyError(tier table.Source, id string) error {
	if tier == table.SourceLocal {
		return fmt.Errorf("%w: %s entry is empty", localcache.ErrMiss, id)
	}
	return fmt.Errorf("%w: %s via %s", ErrEmptyPayload, id, tier)
}

// writeThrough 将远程/在线层的完整结果提升到本地层，失败只告警不影响本次结果。
// 写入的是过滤前的完整载荷，后续其他表键的 local 请求同样命中。
func (r *Resolver) writeThrough(ctx context.Context, id string, winner table.Source, raw table.Result, req Request) {
	if winner == table.SourceLocal || !req.UseCache {
		return
	}
	if r.cacheEnabled != nil && !r.cacheEnabled(id) {
		return
	}
	if _, err := r.local.Save(ctx, id, raw, time.Time{}); err != nil {
		r.logger.WithFields(logrus.Fields{
			"dataset": id,
			"tier":    string(winner),
		}).WithError(err).Warn("write-through promotion failed")
	}
}

func (r *Resolver) policyFor(id string, req Request) retry.Policy {
	attempts := req.MaxRetries
	if attempts < 1 && r.maxRetriesFor != nil {
		attempts = r.maxRetriesFor(id)
	}
	if attempts < 1 {
		attempts = r.maxRetries
	}
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   r.baseDelay,
		MaxDelay:    r.backoffCap,
		Sleep:       r.sleep,
	}
}

func (r *Resolver) rulesFor(id string) validate.Rules {
	if rules, ok := r.rules[id]; ok {
		return rules
	}
	return validate.Rules{}
}

// countingPolicy 包装 Sleep 统计重试次数：每次重试前恰好等待一次，
// 等待次数即为 Provenance.Retries。
func countingPolicy(policy retry.Policy) (retry.Policy, *int) {
	count := new(int)
	inner := policy.Sleep
	if inner == nil {
		inner = retry.SleepContext
	}
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		*count++
		return inner(ctx, d)
	}
	return policy, count
}
