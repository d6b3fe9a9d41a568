package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/scheduler"
	"github.com/maheshrc27/socialdeck/internal/transfer"
)

type SchedulerControl interface {
	Status() scheduler.Status
	ManualCheck(ctx context.Context) scheduler.CycleReport
}

type SchedulerHandler struct {
	engine SchedulerControl
}

func NewSchedulerHandler(engine SchedulerControl) *SchedulerHandler {
	return &SchedulerHandler{engine: engine}
}

func (h *SchedulerHandler) Status(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(toStatus(h.engine.Status()))
}

// Check runs a scan right away and reports what it did. The scan may cover
// other users; only the caller's outcomes are returned, the rest as counts.
func (h *SchedulerHandler) Check(c *fiber.Ctx) error {
	userID := GetUserID(c)
	report := h.engine.ManualCheck(c.Context())

	own := make([]models.PublishOutcome, 0, len(report.Outcomes))
	published, failed := 0, 0
	for _, o := range report.Outcomes {
		switch o.Status {
		case models.PostStatusPublished:
			published++
		case models.PostStatusFailed:
			failed++
		}
		if o.UserID == userID {
			own = append(own, o)
		}
	}

	var scanErr string
	if report.Error != "" {
		slog.Error("manual check failed", "error", report.Error)
		scanErr = "scan did not complete"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"due":           report.Due,
		"published":     published,
		"failed":        failed,
		"outcomes":      own,
		"skipped":       report.Skipped,
		"error":         scanErr,
		"next_interval": report.NextInterval.String(),
		"status":        toStatus(h.engine.Status()),
	})
}

func toStatus(s scheduler.Status) transfer.SchedulerStatus {
	out := transfer.SchedulerStatus{IsRunning: s.IsRunning, Checking: s.Checking}
	if s.NextCheckAt != nil {
		next := s.NextCheckAt.UTC().Format(time.RFC3339)
		out.NextCheckAt = &next
	}
	return out
}
