package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/localcache"
	"github.com/dataset-hub/dataset-hub/internal/remote"
	"github.com/dataset-hub/dataset-hub/internal/resolver"
	"github.com/dataset-hub/dataset-hub/internal/table"
	"github.com/dataset-hub/dataset-hub/internal/validate"
)

// resolvePayload 是解析成功时的响应体。
type resolvePayload struct {
	ID         string           `json:"id"`
	Provenance table.Provenance `json:"provenance"`
	Result     table.Result     `json:"result"`
}

// resolveHandler 将 HTTP 查询参数映射为解析请求并执行。
func resolveHandler(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "dataset_id_required"})
		}

		req := resolver.Request{
			ID:       id,
			Table:    c.Query("table"),
			Mode:     resolver.Mode(c.Query("source")),
			UseCache: true,
			Params: dataset.Params{
				Start: c.Query("start"),
				End:   c.Query("end"),
			},
		}

		if raw := c.Query("cache"); raw != "" {
			useCache, err := strconv.ParseBool(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_cache_flag"})
			}
			req.UseCache = useCache
		}
		if raw := c.Query("retries"); raw != "" {
			retries, err := strconv.Atoi(raw)
			if err != nil || retries < 1 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_retries"})
			}
			req.MaxRetries = retries
		}
		if raw := c.Query("quiet"); raw != "" {
			quiet, err := strconv.ParseBool(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_quiet_flag"})
			}
			req.Quiet = quiet
		}

		result, prov, err := opts.Resolver.Resolve(c.Context(), req)
		if err != nil {
			status, code := mapResolveError(err)
			opts.Logger.WithFields(logrus.Fields{
				"action":     "resolve",
				"dataset":    id,
				"request_id": RequestID(c),
				"status":     status,
			}).WithError(err).Warn("resolve failed")
			return c.Status(status).JSON(fiber.Map{
				"error":  code,
				"detail": err.Error(),
			})
		}

		return c.JSON(resolvePayload{ID: id, Provenance: prov, Result: result})
	}
}

// mapResolveError 将错误分类映射到 HTTP 状态码。归类顺序与错误分级一致：
// 参数错误 → 未找到 → 结构校验 → 缓存未命中 → 上游失败。
func mapResolveError(err error) (int, string) {
	var vErr dataset.ValidationError
	if errors.As(err, &vErr) {
		return fiber.StatusBadRequest, "validation_failed"
	}
	if errors.Is(err, dataset.ErrNotFound) {
		return fiber.StatusNotFound, "dataset_not_found"
	}
	var structural *validate.StructuralError
	if errors.As(err, &structural) {
		return fiber.StatusUnprocessableEntity, "structural_validation_failed"
	}
	if errors.Is(err, localcache.ErrMiss) {
		return fiber.StatusNotFound, "cache_miss"
	}
	var fetchErr *dataset.FetchError
	if errors.As(err, &fetchErr) {
		return fiber.StatusBadGateway, "live_fetch_failed"
	}
	var netErr *remote.NetworkError
	if errors.As(err, &netErr) {
		return fiber.StatusBadGateway, "remote_fetch_failed"
	}
	if errors.Is(err, resolver.ErrRemoteDisabled) || errors.Is(err, resolver.ErrNoFetcher) {
		return fiber.StatusBadGateway, "tier_unavailable"
	}
	return fiber.StatusInternalServerError, "resolve_failed"
}
