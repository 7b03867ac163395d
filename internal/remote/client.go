package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/dataset-hub/dataset-hub/internal/localcache"
	"github.com/dataset-hub/dataset-hub/internal/retry"
	"github.com/dataset-hub/dataset-hub/internal/table"
)

// Asset 描述远程仓库中的一个压缩资产。
type Asset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SHA256    string    `json:"sha256,omitempty"`
	SizeBytes int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// assetIndex 是 <base>/<tag>/index.json 的结构。
type assetIndex struct {
	Tag    string  `json:"tag"`
	Assets []Asset `json:"assets"`
}

// ErrAssetNotFound 表示指定数据集在远程索引中没有资产。
var ErrAssetNotFound = errors.New("asset not found in remote index")

// Saver 抽象本地层的写入入口，避免 UpdateFromRemote 直接耦合 Store 全量接口。
type Saver interface {
	Save(ctx context.Context, id string, result table.Result, savedAt time.Time) (*localcache.Meta, error)
}

// Client 访问按标签组织的远程资产仓库。布局：
//
//	<base>/<tag>/index.json      # 资产清单
//	<base>/<tag>/<id>.json.gz    # gzip 压缩的 table.Result 载荷
type Client struct {
	base   *url.URL
	tag    string
	client *http.Client
}

// NewClient 构建远程仓库客户端；base 与 tag 缺一不可。
func NewClient(baseURL, tag string, client *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("remote base url required")
	}
	if strings.TrimSpace(tag) == "" {
		return nil, errors.New("remote tag required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote base url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{base: parsed, tag: tag, client: client}, nil
}

// Tag 返回客户端绑定的资产标签。
func (c *Client) Tag() string { return c.tag }

// ListAssets 拉取并解析资产清单，整体包在 Retry/Backoff 内。
func (c *Client) ListAssets(ctx context.Context, policy retry.Policy) ([]Asset, error) {
	var assets []Asset
	_, err := retry.Run(ctx, policy, func(ctx context.Context) error {
		listed, err := c.fetchIndex(ctx)
		if err != nil {
			return err
		}
		assets = listed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (c *Client) fetchIndex(ctx context.Context) ([]Asset, error) {
	indexURL := c.assetURL("index.json")
	body, err := c.get(ctx, "list", indexURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var index assetIndex
	if err := json.NewDecoder(body).Decode(&index); err != nil {
		return nil, &NetworkError{Op: "list", URL: indexURL, Err: fmt.Errorf("decode index: %w", err)}
	}
	return index.Assets, nil
}

// Download 下载资产、校验大小并解压，返回解压后的临时文件路径。
// 整个传输包在 Retry/Backoff 内；调用方负责清理临时文件。
func (c *Client) Download(ctx context.Context, asset Asset, policy retry.Policy) (string, error) {
	var path string
	_, err := retry.Run(ctx, policy, func(ctx context.Context) error {
		p, err := c.downloadOnce(ctx, asset)
		if err != nil {
			return err
		}
		path = p
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (c *Client) downloadOnce(ctx context.Context, asset Asset) (string, error) {
	assetURL := c.assetURL(asset.Name)
	body, err := c.get(ctx, "download", assetURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", &NetworkError{Op: "download", URL: assetURL, Retryable: true, Err: err}
	}
	if len(raw) == 0 {
		return "", &NetworkError{Op: "download", URL: assetURL, Err: errors.New("empty asset body")}
	}
	if asset.SizeBytes > 0 && int64(len(raw)) != asset.SizeBytes {
		return "", &NetworkError{
			Op:  "download",
			URL: assetURL,
			Err: fmt.Errorf("size mismatch: got %d want %d", len(raw), asset.SizeBytes),
		}
	}

	decoded, err := gunzip(raw)
	if err != nil {
		return "", &NetworkError{Op: "download", URL: assetURL, Err: fmt.Errorf("decompress asset: %w", err)}
	}

	tmp := tempAssetPath(asset.ID)
	if err := os.WriteFile(tmp, decoded, 0o644); err != nil {
		return "", fmt.Errorf("write temp asset: %w", err)
	}
	return tmp, nil
}

// Fetch 下载并解码指定数据集的远程资产为统一结果形态。
func (c *Client) Fetch(ctx context.Context, id string, policy retry.Policy) (table.Result, Asset, error) {
	assets, err := c.ListAssets(ctx, policy)
	if err != nil {
		return table.Result{}, Asset{}, err
	}
	asset, ok := findAsset(assets, id)
	if !ok {
		return table.Result{}, Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	path, err := c.Download(ctx, asset, policy)
	if err != nil {
		return table.Result{}, Asset{}, err
	}
	defer os.Remove(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return table.Result{}, Asset{}, fmt.Errorf("read downloaded asset: %w", err)
	}
	var result table.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return table.Result{}, Asset{}, &NetworkError{
			Op:  "download",
			URL: c.assetURL(asset.Name),
			Err: fmt.Errorf("decode asset payload: %w", err),
		}
	}
	return result, asset, nil
}

// IsUpToDate 比较本地 sidecar 与远程资产的时间戳/大小，判断是否需要刷新。
func IsUpToDate(local *localcache.Meta, asset Asset) bool {
	if local == nil {
		return false
	}
	if asset.UpdatedAt.IsZero() {
		return true
	}
	return !asset.UpdatedAt.After(local.SavedAt)
}

// UpdateFromRemote 下载指定数据集并写入本地层，返回写入后的 sidecar 元数据。
func (c *Client) UpdateFromRemote(ctx context.Context, id string, policy retry.Policy, saver Saver) (*localcache.Meta, error) {
	result, asset, err := c.Fetch(ctx, id, policy)
	if err != nil {
		return nil, err
	}
	savedAt := asset.UpdatedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	return saver.Save(ctx, id, result, savedAt)
}

func (c *Client) get(ctx context.Context, op, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, URL: rawURL, Retryable: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &NetworkError{
			Op:        op,
			URL:       rawURL,
			Status:    resp.StatusCode,
			Retryable: retryableStatus(resp.StatusCode),
		}
	}
	return resp.Body, nil
}

func (c *Client) assetURL(name string) string {
	base := strings.TrimSuffix(c.base.String(), "/")
	return base + "/" + strings.TrimSuffix(c.tag, "/") + "/" + strings.TrimPrefix(name, "/")
}

func findAsset(assets []Asset, id string) (Asset, bool) {
	for _, asset := range assets {
		if asset.ID == id {
			return asset, true
		}
	}
	return Asset{}, false
}

func gunzip(raw []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func tempAssetPath(id string) string {
	return fmt.Sprintf("%s%c%s-%s.json", os.TempDir(), os.PathSeparator, id, uuid.NewString())
}
