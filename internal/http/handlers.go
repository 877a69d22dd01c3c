package http

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"sniper/internal/services"
	"sniper/internal/store"
)

// analyzeTimeout bounds one full pipeline run: redirect resolution,
// fetch, optional rendered fetch, and the completion call.
const analyzeTimeout = 90 * time.Second

// analyzeHandler runs the analysis pipeline for one product link.
func analyzeHandler(c *fiber.Ctx) error {
	var reqBody AnalyzeRequest
	if err := c.BodyParser(&reqBody); err != nil || reqBody.Link == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "No link provided"})
	}

	svc := c.Locals("analyzer").(services.AnalyzeService)

	ctx, cancel := context.WithTimeout(c.Context(), analyzeTimeout)
	defer cancel()

	analysis, err := svc.Analyze(ctx, reqBody.Link, reqBody.UserID)
	if err != nil {
		switch err {
		case services.ErrNoLink:
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "No link provided"})
		case services.ErrQuotaExceeded:
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "Daily limit reached"})
		}
		if logger, ok := c.Locals("logger").(*slog.Logger); ok && logger != nil {
			logger.Error("analysis failed", "link", reqBody.Link, "error", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Analysis failed"})
	}

	return c.JSON(AnalyzeResponse{
		Score:    analysis.Score,
		Verdict:  analysis.Verdict,
		Reason:   analysis.Reason,
		Title:    analysis.Title,
		ImageURL: analysis.ImageURL,
		Price:    analysis.Price,
		Domain:   analysis.Domain,
	})
}

// historyHandler returns a user's recent analyses, newest first.
func historyHandler(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "No user provided"})
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	st, _ := c.Locals("store").(*store.Store)
	if st == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "History unavailable"})
	}

	analyses, err := st.ListRecentAnalyses(c.Context(), userID, limit)
	if err != nil {
		if logger, ok := c.Locals("logger").(*slog.Logger); ok && logger != nil {
			logger.Error("history query failed", "user_id", userID, "error", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "History unavailable"})
	}

	return c.JSON(HistoryResponse{Analyses: analyses})
}
