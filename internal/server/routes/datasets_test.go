package routes

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
)

func newTestSetup(t *testing.T) (*fiber.App, *dataset.Registry) {
	t.Helper()
	reg := dataset.NewRegistry()
	descs := []dataset.Descriptor{
		{ID: "sample_a", DisplayName: "Sample A", Tables: []string{"x", "y"}},
		{ID: "renamed_d", DisplayName: "Renamed D", Aliases: []string{"old_d"}},
		{ID: "draft_x", DisplayName: "Draft", Hidden: true},
	}
	for _, desc := range descs {
		if err := reg.Register(desc); err != nil {
			t.Fatalf("register %s: %v", desc.ID, err)
		}
	}

	app := fiber.New()
	RegisterDatasetRoutes(app, reg)
	return app, reg
}

func TestListExcludesHidden(t *testing.T) {
	app, _ := newTestSetup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/datasets", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Count    int               `json:"count"`
		Datasets []dataset.Summary `json:"datasets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 2 {
		t.Fatalf("expected 2 visible datasets, got %d", payload.Count)
	}
	for _, s := range payload.Datasets {
		if s.ID == "draft_x" {
			t.Fatalf("hidden dataset leaked into discovery")
		}
	}
}

func TestDescriptorDetail(t *testing.T) {
	app, _ := newTestSetup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/datasets/sample_a", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload descriptorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != "sample_a" || len(payload.Tables) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDescriptorDetailFollowsAlias(t *testing.T) {
	app, _ := newTestSetup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/datasets/old_d", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("alias lookup should succeed, got %d", resp.StatusCode)
	}
}

func TestDescriptorDetailHiddenIsNotFound(t *testing.T) {
	app, _ := newTestSetup(t)

	for _, id := range []string{"draft_x", "no_such_set"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/-/datasets/"+id, nil))
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", id, resp.StatusCode)
		}
	}
}
