package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
)

// RegisterDatasetRoutes 暴露 /-/datasets 诊断接口：数据集发现与描述符详情。
// 隐藏数据集不出现在列表中，按 ID 查询时与未注册数据集同样返回 not found。
func RegisterDatasetRoutes(app *fiber.App, registry *dataset.Registry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/datasets", func(c fiber.Ctx) error {
		descs := registry.List(false)
		summaries := make([]dataset.Summary, 0, len(descs))
		for _, desc := range descs {
			summaries = append(summaries, desc.Summarize())
		}
		return c.JSON(fiber.Map{
			"count":    len(summaries),
			"datasets": summaries,
		})
	})

	app.Get("/-/datasets/:id", func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "dataset_id_required"})
		}
		desc, ok := registry.Lookup(id)
		if !ok || desc.Hidden {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "dataset_not_found"})
		}
		return c.JSON(encodeDescriptor(desc))
	})
}

type descriptorPayload struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Tables        []string `json:"tables,omitempty"`
	CacheOnly     bool     `json:"cache_only"`
	LiveFetchable bool     `json:"live_fetchable"`
	Aliases       []string `json:"aliases,omitempty"`
}

func encodeDescriptor(desc dataset.Descriptor) descriptorPayload {
	return descriptorPayload{
		ID:            desc.ID,
		DisplayName:   desc.DisplayName,
		Tables:        append([]string(nil), desc.Tables...),
		CacheOnly:     desc.CacheOnly,
		LiveFetchable: desc.LiveFetchable,
		Aliases:       append([]string(nil), desc.Aliases...),
	}
}
