package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/resolver"
	"github.com/dataset-hub/dataset-hub/internal/table"
)

// DatasetResolver 是解析引擎的最小接口，便于测试注入替身。
type DatasetResolver interface {
	Resolve(ctx context.Context, req resolver.Request) (table.Result, table.Provenance, error)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *dataset.Registry
	Resolver   DatasetResolver
	ListenPort int
}

const contextKeyRequestID = "_datasethub_request_id"

// NewApp builds a Fiber application with request-id middleware and the
// resolve/diagnostics routes attached.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("dataset registry is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.Get("/datasets/:id", resolveHandler(opts))

	return app, nil
}

// requestIDMiddleware 为每个请求生成 UUID 并写入响应头，日志据此串联。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
