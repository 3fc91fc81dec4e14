package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/tracker"
)

// registerRoutes 挂载列车查询与 /-/ 诊断接口。
func registerRoutes(app *fiber.App, opts AppOptions) {
	logger := opts.Logger
	svc := opts.Service

	app.Get("/trains/:id", func(c fiber.Ctx) error {
		started := time.Now()
		trainID, ok := normalizeTrainID(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid_train_id",
			})
		}

		doc, err := svc.TrainData(c.Context(), trainID)
		if err != nil {
			fields := logrus.Fields{
				"action":     "train_lookup",
				"train_id":   trainID,
				"request_id": RequestID(c),
			}
			if errors.Is(err, tracker.ErrUnknownTrain) {
				logger.WithFields(fields).Warn("未知列车")
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "train_not_found",
				})
			}
			logger.WithError(err).WithFields(fields).Warn("上游抓取失败且无缓存兜底")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "upstream_error",
			})
		}

		logger.WithFields(logrus.Fields{
			"action":      "train_lookup",
			"train_id":    trainID,
			"request_id":  RequestID(c),
			"duration_ms": time.Since(started).Milliseconds(),
		}).Debug("列车查询完成")
		return c.JSON(doc)
	})

	app.Get("/-/status", func(c fiber.Ctx) error {
		return c.JSON(svc.Status())
	})

	// 手动刷新：带 train 参数时优先补抓单趟列车，否则全量入队。
	app.Post("/-/refresh", func(c fiber.Ctx) error {
		raw := strings.TrimSpace(c.Query("train"))
		if raw != "" {
			trainID, ok := normalizeTrainID(raw)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid_train_id",
				})
			}
			svc.EnqueueRefresh(trainID, true)
			return c.JSON(fiber.Map{"queued": 1, "train": trainID})
		}

		queued := svc.RefreshAll()
		logger.WithFields(logrus.Fields{
			"action": "refresh_all",
			"queued": queued,
		}).Info("手动全量刷新入队")
		return c.JSON(fiber.Map{"queued": queued})
	})
}

// normalizeTrainID 校验 key 是否为纯数字列车号，上游接口只认数字 id。
func normalizeTrainID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
		return "", false
	}
	return raw, true
}
