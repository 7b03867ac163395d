package table

import "time"

// Source 标识结果最终来自哪一层。
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceLive   Source = "live"
)

// Provenance 描述一次解析结果的出处，仅附着在最终结果上，
// 中间层结果不携带。行列内容永远不被写入 Provenance。
type Provenance struct {
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	TableKey  string    `json:"table_key,omitempty"`
	Retries   int       `json:"retries"`
	Notes     []string  `json:"notes,omitempty"`
}

// Annotate 为最终结果构造 Provenance。结果本身原样返回，不做任何行列改写。
func Annotate(r Result, src Source, tableKey string, retries int, notes []string) (Result, Provenance) {
	prov := Provenance{
		Source:    src,
		FetchedAt: time.Now().UTC(),
		TableKey:  tableKey,
		Retries:   retries,
		Notes:     append([]string(nil), notes...),
	}
	return r, prov
}
