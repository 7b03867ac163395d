// Package ibge 描述 IBGE/SIDRA 数据源的数据集注册与在线抓取逻辑。
package ibge

import (
	"github.com/dataset-hub/dataset-hub/internal/dataset"
)

func init() {
	dataset.MustRegister(dataset.Descriptor{
		ID:            "ipca_monthly",
		DisplayName:   "IPCA monthly index and variation (SIDRA table 1737)",
		Tables:        []string{"index", "variation"},
		LiveFetchable: true,
	})

	dataset.MustRegisterFetcher("ipca_monthly", NewFetcher(DefaultBaseURL, nil))
}
