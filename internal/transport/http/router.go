package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"

	"github.com/tkachev-artem/cryptocraze-sub002/internal/domain"
	"github.com/tkachev-artem/cryptocraze-sub002/internal/usecase"
)

type DealService interface {
	OpenDeal(ctx context.Context, req usecase.OpenDealRequest) (domain.Deal, error)
	CloseDeal(ctx context.Context, userID, dealID int64) (domain.SettlementResult, error)
	UpdateRiskParams(ctx context.Context, userID, dealID int64, takeProfit, stopLoss *float64) (domain.Deal, error)
	ListDeals(ctx context.Context, userID int64, status domain.DealStatus, limit int) ([]domain.Deal, error)
}

type RatingService interface {
	Stats(ctx context.Context, userID int64) (domain.UserStats, error)
	Rank(ctx context.Context, userID int64) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.UserStats, error)
}

type Router struct {
	app           *fiber.App
	dealService   DealService
	ratingService RatingService
}

func New(deals DealService, rating RatingService) *Router {
	app := fiber.New()

	r := &Router{
		app:           app,
		dealService:   deals,
		ratingService: rating,
	}

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Post("/deals", r.openDeal)
	v1.Post("/deals/:id/close", r.closeDeal)
	v1.Put("/deals/:id/risk", r.updateRiskParams)
	v1.Get("/users/:user_id/deals", r.listDeals)
	v1.Get("/users/:user_id/stats", r.getUserStats)
	v1.Get("/users/:user_id/rank", r.getUserRank)
	v1.Get("/leaderboard", r.getLeaderboard)

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return r
}

func (r *Router) App() *fiber.App {
	return r.app
}

type OpenDealRequest struct {
	UserID     int64    `json:"user_id"`
	Symbol     string   `json:"symbol"`
	Direction  string   `json:"direction"`
	Amount     float64  `json:"amount"`
	Multiplier int      `json:"multiplier"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
}

type CloseDealRequest struct {
	UserID int64 `json:"user_id"`
}

type RiskParamsRequest struct {
	UserID     int64    `json:"user_id"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
}

// openDeal godoc
// @Summary Open a leveraged deal at the current market price
// @Tags deals
// @Accept json
// @Produce json
// @Param request body OpenDealRequest true "Deal parameters"
// @Success 201 {object} domain.Deal
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /deals [post]
func (r *Router) openDeal(c *fiber.Ctx) error {
	if r.dealService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "deal service unavailable")
	}

	var payload OpenDealRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.UserID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "user_id required")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	deal, err := r.dealService.OpenDeal(ctx, usecase.OpenDealRequest{
		UserID:     payload.UserID,
		Symbol:     payload.Symbol,
		Direction:  domain.DealDirection(payload.Direction),
		Amount:     payload.Amount,
		Multiplier: payload.Multiplier,
		TakeProfit: payload.TakeProfit,
		StopLoss:   payload.StopLoss,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(deal)
}

// closeDeal godoc
// @Summary Close an open deal at the current market price
// @Tags deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body CloseDealRequest true "Owner"
// @Success 200 {object} domain.SettlementResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /deals/{id}/close [post]
func (r *Router) closeDeal(c *fiber.Ctx) error {
	if r.dealService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "deal service unavailable")
	}

	dealID, err := parseID(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid deal id")
	}

	var payload CloseDealRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.UserID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "user_id required")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 15*time.Second)
	defer cancel()

	result, err := r.dealService.CloseDeal(ctx, payload.UserID, dealID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(result)
}

// updateRiskParams godoc
// @Summary Update take-profit and stop-loss of an open deal
// @Tags deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body RiskParamsRequest true "New trigger prices"
// @Success 200 {object} domain.Deal
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /deals/{id}/risk [put]
func (r *Router) updateRiskParams(c *fiber.Ctx) error {
	if r.dealService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "deal service unavailable")
	}

	dealID, err := parseID(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid deal id")
	}

	var payload RiskParamsRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.UserID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "user_id required")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	deal, err := r.dealService.UpdateRiskParams(ctx, payload.UserID, dealID, payload.TakeProfit, payload.StopLoss)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(deal)
}

// listDeals godoc
// @Summary List a user's deals
// @Tags deals
// @Produce json
// @Param user_id path int true "User ID"
// @Param status query string false "Filter by status (open or closed)"
// @Param limit query int false "Maximum number of deals"
// @Success 200 {array} domain.Deal
// @Failure 400 {object} map[string]string
// @Router /users/{user_id}/deals [get]
func (r *Router) listDeals(c *fiber.Ctx) error {
	if r.dealService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "deal service unavailable")
	}

	userID, err := parseID(c.Params("user_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	status := domain.DealStatus(c.Query("status"))
	if status != "" && status != domain.DealStatusOpen && status != domain.DealStatusClosed {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(userContext(c), 5*time.Second)
	defer cancel()

	deals, err := r.dealService.ListDeals(ctx, userID, status, limit)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(deals)
}

// getUserStats godoc
// @Summary Aggregate trading statistics for a user
// @Tags rating
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} domain.UserStats
// @Failure 404 {object} map[string]string
// @Router /users/{user_id}/stats [get]
func (r *Router) getUserStats(c *fiber.Ctx) error {
	if r.ratingService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "rating service unavailable")
	}

	userID, err := parseID(c.Params("user_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	stats, err := r.ratingService.Stats(ctx, userID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(stats)
}

// getUserRank godoc
// @Summary Global leaderboard rank for a user
// @Tags rating
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} map[string]string
// @Router /users/{user_id}/rank [get]
func (r *Router) getUserRank(c *fiber.Ctx) error {
	if r.ratingService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "rating service unavailable")
	}

	userID, err := parseID(c.Params("user_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	rank, err := r.ratingService.Rank(ctx, userID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(fiber.Map{"rank": rank})
}

// getLeaderboard godoc
// @Summary Top users ordered by score
// @Tags rating
// @Produce json
// @Param limit query int false "Maximum number of entries"
// @Success 200 {array} domain.UserStats
// @Router /leaderboard [get]
func (r *Router) getLeaderboard(c *fiber.Ctx) error {
	if r.ratingService == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "rating service unavailable")
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(userContext(c), 5*time.Second)
	defer cancel()

	entries, err := r.ratingService.Leaderboard(ctx, limit)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(entries)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrDealNotFound), errors.Is(err, domain.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRiskParams), errors.Is(err, domain.ErrInvalidDealParams):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDealAlreadyClosed):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPriceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
