package ibge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/table"
)

// DefaultBaseURL 是 SIDRA 取值接口的根地址。
const DefaultBaseURL = "https://apisidra.ibge.gov.br"

// ipcaPath 取 IPCA（表 1737）最近 24 期的指数（2266）与月度变动（63）。
const ipcaPath = "/values/t/1737/n1/all/v/2266,63/p/last%2024"

// sidraRow 对应 SIDRA 响应中的一行；首行是表头说明，解析时跳过。
type sidraRow struct {
	Value    string `json:"V"`
	Period   string `json:"D3C"`
	Variable string `json:"D2C"`
}

const (
	variableIndex     = "2266"
	variableVariation = "63"
)

// Fetcher 拉取 SIDRA 表并拆成 index/variation 两张表。
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher 构建 SIDRA 抓取器；client 为 nil 时使用 http.DefaultClient。
func NewFetcher(baseURL string, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Fetch 实现 dataset.Fetcher，始终返回 Multiple{index, variation}。
func (f *Fetcher) Fetch(ctx context.Context, id string, params dataset.Params) (table.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+ipcaPath, http.NoBody)
	if err != nil {
		return table.Result{}, dataset.NewFetchError(id, "build request", false, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return table.Result{}, dataset.NewFetchError(id, "transport", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return table.Result{}, dataset.NewFetchError(id, fmt.Sprintf("status %d", resp.StatusCode), retryable, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return table.Result{}, dataset.NewFetchError(id, "read body", true, err)
	}

	var rows []sidraRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return table.Result{}, dataset.NewFetchError(id, "malformed response", false, err)
	}
	if len(rows) < 2 {
		return table.Result{}, dataset.NewFetchError(id, "response missing data rows", false, nil)
	}

	index := table.Table{Columns: []string{"period", "value"}}
	variation := table.Table{Columns: []string{"period", "value"}}
	// 首行是 SIDRA 的表头行，数据从第二行开始。
	for _, row := range rows[1:] {
		switch row.Variable {
		case variableIndex:
			index.Rows = append(index.Rows, []string{row.Period, row.Value})
		case variableVariation:
			variation.Rows = append(variation.Rows, []string{row.Period, row.Value})
		}
	}

	return table.Multiple(map[string]table.Table{
		"index":     index,
		"variation": variation,
	}), nil
}
