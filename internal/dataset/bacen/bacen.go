// Package bacen 描述央行 SGS 数据源的数据集注册与在线抓取逻辑。
package bacen

import (
	"github.com/dataset-hub/dataset-hub/internal/dataset"
)

// seriesCatalog 固定了 bacen_series 覆盖的 SGS 序列；新增序列在此登记。
var seriesCatalog = []struct {
	Code  int
	Label string
}{
	{432, "selic_target"},
	{433, "ipca_variation"},
	{1, "usd_brl_sale"},
}

func init() {
	dataset.MustRegister(dataset.Descriptor{
		ID:            "bacen_series",
		DisplayName:   "BACEN SGS time series",
		LiveFetchable: true,
	})

	// 元数据表由离线流程生成并发布到资产仓库，没有在线抓取来源。
	dataset.MustRegister(dataset.Descriptor{
		ID:          "bacen_metadata",
		DisplayName: "BACEN SGS series metadata (bilingual)",
		Tables:      []string{"en", "pt"},
		CacheOnly:   true,
		Aliases:     []string{"bacen_meta"},
	})

	// SELIC 目标利率的历史快照由离线流程固化，只读不抓取。
	dataset.MustRegister(dataset.Descriptor{
		ID:          "selic_target",
		DisplayName: "SELIC target rate snapshot",
		CacheOnly:   true,
	})

	// 市场预期数据尚未定稿，目录里保留但对外不可见。
	dataset.MustRegister(dataset.Descriptor{
		ID:          "draft_expectations",
		DisplayName: "BACEN market expectations (draft)",
		Hidden:      true,
	})

	dataset.MustRegisterFetcher("bacen_series", NewFetcher(DefaultBaseURL, nil))
}
