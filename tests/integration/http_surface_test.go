package integration

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/localcache"
	"github.com/dataset-hub/dataset-hub/internal/remote"
	"github.com/dataset-hub/dataset-hub/internal/resolver"
	"github.com/dataset-hub/dataset-hub/internal/server"
	"github.com/dataset-hub/dataset-hub/internal/server/routes"
	"github.com/dataset-hub/dataset-hub/internal/table"
)

func newHTTPApp(t *testing.T, reg *dataset.Registry, rem resolver.RemoteStore) *fiber.App {
	t.Helper()
	store, err := localcache.NewStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine := newEngine(t, reg, store, rem)

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   reg,
		Resolver:   engine,
		ListenPort: 5000,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	routes.RegisterDatasetRoutes(app, reg)
	return app
}

func TestHTTPResolveThroughRemote(t *testing.T) {
	srv := newAssetServer(t, "sample_a", samplePayload())
	defer srv.Close()
	client, err := remote.NewClient(srv.URL, assetTag, srv.Client())
	if err != nil {
		t.Fatalf("new remote client: %v", err)
	}
	app := newHTTPApp(t, newIntegrationRegistry(t), client)

	resp, err := app.Test(httptest.NewRequest("GET", "/datasets/sample_a?table=x", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d (body=%s)", resp.StatusCode, string(body))
	}

	var payload struct {
		ID         string           `json:"id"`
		Provenance table.Provenance `json:"provenance"`
		Result     table.Result     `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Provenance.Source != table.SourceRemote {
		t.Fatalf("provenance source = %s, want remote", payload.Provenance.Source)
	}
	if !payload.Result.IsSingle() {
		t.Fatalf("table key request must yield Single over HTTP too")
	}
}

func TestHTTPCacheMissIsNotFound(t *testing.T) {
	app := newHTTPApp(t, newIntegrationRegistry(t), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/datasets/sample_a?source=local", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for cache miss, got %d", resp.StatusCode)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error != "cache_miss" {
		t.Fatalf("error code = %s, want cache_miss", payload.Error)
	}
}

func TestHTTPDiscoveryListsDatasets(t *testing.T) {
	app := newHTTPApp(t, newIntegrationRegistry(t), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/datasets", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 2 {
		t.Fatalf("expected 2 datasets in discovery, got %d", payload.Count)
	}
}
