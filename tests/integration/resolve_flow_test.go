package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/localcache"
	"github.com/dataset-hub/dataset-hub/internal/remote"
	"github.com/dataset-hub/dataset-hub/internal/resolver"
	"github.com/dataset-hub/dataset-hub/internal/table"
)

const assetTag = "v1"

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func samplePayload() table.Result {
	return table.Multiple(map[string]table.Table{
		"x": {Columns: []string{"period", "value"}, Rows: [][]string{{"2024-01-01", "1.0"}}},
		"y": {Columns: []string{"period", "value"}, Rows: [][]string{{"2024-01-01", "2.0"}}},
	})
}

func gzipJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("compress payload: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// newAssetServer 以 <base>/<tag>/index.json + <id>.json.gz 布局提供远程资产。
func newAssetServer(t *testing.T, id string, payload table.Result) *httptest.Server {
	t.Helper()
	compressed := gzipJSON(t, payload)
	index := map[string]interface{}{
		"tag": assetTag,
		"assets": []remote.Asset{{
			ID:        id,
			Name:      id + ".json.gz",
			SizeBytes: int64(len(compressed)),
			UpdatedAt: time.Now().UTC(),
		}},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/"+assetTag+"/index.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(index)
	})
	mux.HandleFunc("/"+assetTag+"/"+id+".json.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(compressed)
	})
	return httptest.NewServer(mux)
}

func newIntegrationRegistry(t *testing.T) *dataset.Registry {
	t.Helper()
	reg := dataset.NewRegistry()
	for _, desc := range []dataset.Descriptor{
		{ID: "sample_a", Tables: []string{"x", "y"}},
		{ID: "sample_b", LiveFetchable: true},
	} {
		if err := reg.Register(desc); err != nil {
			t.Fatalf("register %s: %v", desc.ID, err)
		}
	}
	return reg
}

func newEngine(t *testing.T, reg *dataset.Registry, store *localcache.Store, rem resolver.RemoteStore) *resolver.Resolver {
	t.Helper()
	engine, err := resolver.New(resolver.Options{
		Registry:   reg,
		Local:      store,
		Remote:     rem,
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Sleep:      noSleep,
	})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	return engine
}

func TestRemoteFallbackThenLocalHit(t *testing.T) {
	srv := newAssetServer(t, "sample_a", samplePayload())
	defer srv.Close()

	store, err := localcache.NewStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	client, err := remote.NewClient(srv.URL, assetTag, srv.Client())
	if err != nil {
		t.Fatalf("new remote client: %v", err)
	}
	engine := newEngine(t, newIntegrationRegistry(t), store, client)

	ctx := context.Background()
	result, prov, err := engine.Resolve(ctx, resolver.Request{ID: "sample_a", Table: "x", UseCache: true})
	if err != nil {
		t.Fatalf("resolve via remote: %v", err)
	}
	if prov.Source != table.SourceRemote {
		t.Fatalf("first resolve source = %s, want remote", prov.Source)
	}
	if !result.IsSingle() {
		t.Fatalf("table key request must yield Single")
	}

	// 写穿透之后，固定 local 层的请求应命中，且其他表键同样可用。
	srv.Close()
	for _, key := range []string{"x", "y"} {
		result, prov, err := engine.Resolve(ctx, resolver.Request{ID: "sample_a", Table: key, Mode: resolver.ModeLocal, UseCache: true})
		if err != nil {
			t.Fatalf("resolve table %s via local: %v", key, err)
		}
		if prov.Source != table.SourceLocal {
			t.Fatalf("second resolve source = %s, want local", prov.Source)
		}
		tbl, _ := result.Table()
		if tbl.RowCount() != 1 {
			t.Fatalf("local round-trip lost rows for table %s", key)
		}
	}
}

func TestLiveFallbackWithRetriesAndPromotion(t *testing.T) {
	reg := newIntegrationRegistry(t)
	calls := 0
	fetcher := dataset.FetcherFunc(func(ctx context.Context, id string, params dataset.Params) (table.Result, error) {
		calls++
		if calls <= 2 {
			return table.Result{}, dataset.NewFetchError(id, "flaky upstream", true, nil)
		}
		return table.Single(table.Table{Columns: []string{"period", "value"}, Rows: [][]string{{"2024-03-01", "3.0"}}}), nil
	})
	if err := reg.RegisterFetcher("sample_b", fetcher); err != nil {
		t.Fatalf("register fetcher: %v", err)
	}

	store, err := localcache.NewStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	engine := newEngine(t, reg, store, nil)

	ctx := context.Background()
	_, prov, err := engine.Resolve(ctx, resolver.Request{ID: "sample_b", UseCache: true})
	if err != nil {
		t.Fatalf("resolve via live: %v", err)
	}
	if prov.Source != table.SourceLive || prov.Retries != 2 {
		t.Fatalf("unexpected provenance: %+v", prov)
	}

	_, prov, err = engine.Resolve(ctx, resolver.Request{ID: "sample_b", Mode: resolver.ModeLocal, UseCache: true})
	if err != nil {
		t.Fatalf("resolve via local after promotion: %v", err)
	}
	if prov.Source != table.SourceLocal {
		t.Fatalf("promotion did not reach local tier: %+v", prov)
	}
	if calls != 3 {
		t.Fatalf("local hit must not re-fetch, calls = %d", calls)
	}
}

func TestAllTiersDownSurfacesChain(t *testing.T) {
	reg := newIntegrationRegistry(t)
	if err := reg.RegisterFetcher("sample_b", dataset.FetcherFunc(
		func(ctx context.Context, id string, params dataset.Params) (table.Result, error) {
			return table.Result{}, dataset.NewFetchError(id, "upstream down", true, nil)
		})); err != nil {
		t.Fatalf("register fetcher: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	client, err := remote.NewClient(down.URL, assetTag, down.Client())
	if err != nil {
		t.Fatalf("new remote client: %v", err)
	}

	store, err := localcache.NewStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	engine := newEngine(t, reg, store, client)

	_, _, resolveErr := engine.Resolve(context.Background(), resolver.Request{ID: "sample_b", MaxRetries: 2})
	var chain *resolver.ChainError
	if !errors.As(resolveErr, &chain) {
		t.Fatalf("expected ChainError, got %v", resolveErr)
	}
	if len(chain.Failures) != 3 {
		t.Fatalf("expected local+remote+live failures, got %+v", chain.Failures)
	}
}
