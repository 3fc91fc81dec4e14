package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/tracker"
	"github.com/rail-hub/rail-hub/internal/upstream"
)

// TrainService describes what the HTTP layer needs from the tracker façade.
// It allows injecting fake services during tests.
type TrainService interface {
	TrainData(ctx context.Context, key string) (upstream.Document, error)
	EnqueueRefresh(key string, priority bool)
	RefreshAll() int
	Status() tracker.Status
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Service    TrainService
	ListenPort int
}

const contextKeyRequestID = "_railhub_request_id"

// NewApp builds a Fiber application with request-id middleware and the train
// data routes registered.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Service == nil {
		return nil, errors.New("train service is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	registerRoutes(app, opts)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 uuid 并回写 X-Request-ID。
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
