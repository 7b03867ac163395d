package bacen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/table"
)

// DefaultBaseURL 是 SGS 开放数据接口的根地址。
const DefaultBaseURL = "https://api.bcb.gov.br/dados/serie"

// observation 对应 SGS JSON 响应中的单条观测：日期为 dd/mm/yyyy。
type observation struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// Fetcher 逐序列拉取 SGS 观测并拼接为单表结果。序列级失败不会立即放弃
// 整个数据集：只要任一序列成功即返回数据，失败序列记入错误仅当全军覆没。
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher 构建 SGS 抓取器；client 为 nil 时使用 http.DefaultClient。
func NewFetcher(baseURL string, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Fetch 实现 dataset.Fetcher。
func (f *Fetcher) Fetch(ctx context.Context, id string, params dataset.Params) (table.Result, error) {
	out := table.Table{Columns: []string{"code", "label", "date", "value"}}
	var firstErr error

	for _, series := range seriesCatalog {
		obs, err := f.fetchSeries(ctx, id, series.Code, params)
		if err != nil {
			// 原始采集流程在批量失败后逐条回退；这里保留“部分成功仍产出”的语义。
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		code := strconv.Itoa(series.Code)
		for _, o := range obs {
			out.Rows = append(out.Rows, []string{code, series.Label, o.Data, o.Valor})
		}
	}

	if len(out.Rows) == 0 {
		if firstErr != nil {
			return table.Result{}, firstErr
		}
		return table.Result{}, dataset.NewFetchError(id, "no observations returned", false, nil)
	}
	return table.Single(out), nil
}

func (f *Fetcher) fetchSeries(ctx context.Context, id string, code int, params dataset.Params) ([]observation, error) {
	endpoint := fmt.Sprintf("%s/bcdata.sgs.%d/dados", f.baseURL, code)
	query := url.Values{"formato": {"json"}}
	if params.Start != "" {
		query.Set("dataInicial", params.Start)
	}
	if params.End != "" {
		query.Set("dataFinal", params.End)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, dataset.NewFetchError(id, "build request", false, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, dataset.NewFetchError(id, fmt.Sprintf("series %d transport", code), true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, dataset.NewFetchError(id, fmt.Sprintf("series %d status %d", code, resp.StatusCode), retryable, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dataset.NewFetchError(id, fmt.Sprintf("series %d read body", code), true, err)
	}

	var obs []observation
	if err := json.Unmarshal(body, &obs); err != nil {
		// 畸形响应说明数据源端变更了格式，重试没有意义。
		return nil, dataset.NewFetchError(id, fmt.Sprintf("series %d malformed response", code), false, err)
	}
	return obs, nil
}
