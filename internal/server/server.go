package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emipredict/internal/predict"
	"emipredict/models"
)

// Server exposes the prediction engine over HTTP. Transport only; all
// prediction logic lives in the engine.
type Server struct {
	app    *fiber.App
	engine *predict.Engine
	store  models.HistoryStore
	logger zerolog.Logger
}

// New wires the routes.
func New(engine *predict.Engine, store models.HistoryStore) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{AppName: "emipredict"}),
		engine: engine,
		store:  store,
		logger: log.With().Str("component", "http_server").Logger(),
	}

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/predict", s.handlePredict)
	api.Post("/predict/batch", s.handlePredictBatch)
	api.Get("/customers", s.handleCustomers)
	api.Get("/customer/:id/history", s.handleCustomerHistory)

	return s
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving requests on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"model_loaded": s.engine.Ready(c.Context()),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

type predictRequest struct {
	CustomerID     string `json:"customer_id"`
	UseExplanation bool   `json:"use_explanation"`
}

func (s *Server) handlePredict(c *fiber.Ctx) error {
	var body predictRequest
	if err := c.BodyParser(&body); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.CustomerID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "customer_id is required")
	}

	p, err := s.engine.PredictOne(c.Context(), body.CustomerID, time.Now(), body.UseExplanation)
	if err != nil {
		return s.predictionError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"prediction": predictionJSON(*p),
	})
}

type batchRequest struct {
	CustomerIDs    []string `json:"customer_ids"`
	UseExplanation bool     `json:"use_explanation"`
}

func (s *Server) handlePredictBatch(c *fiber.Ctx) error {
	var body batchRequest
	if err := c.BodyParser(&body); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.engine.PredictBatch(c.Context(), body.CustomerIDs, time.Now(), body.UseExplanation)
	if err != nil {
		s.logger.Error().Err(err).Msg("Batch prediction failed")
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	predictions := make([]fiber.Map, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		predictions = append(predictions, predictionJSON(p))
	}

	resp := fiber.Map{
		"success":     true,
		"predictions": predictions,
		"count":       len(predictions),
		"failed":      result.Failed,
	}
	if result.Insights != "" {
		resp["insights"] = result.Insights
	}
	return c.JSON(resp)
}

func (s *Server) handleCustomers(c *fiber.Ctx) error {
	summaries, err := s.store.ListCustomers(c.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing customers failed")
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	customers := make([]fiber.Map, 0, len(summaries))
	for _, sum := range summaries {
		customers = append(customers, fiber.Map{
			"customer_id":        sum.CustomerID,
			"total_payments":     sum.TotalPayments,
			"first_payment_date": dateOrEmpty(sum.FirstPaymentDate),
			"last_payment_date":  dateOrEmpty(sum.LastPaymentDate),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"customers": customers,
		"total":     len(customers),
	})
}

func (s *Server) handleCustomerHistory(c *fiber.Ctx) error {
	customerID := c.Params("id")

	history, err := s.store.History(c.Context(), customerID)
	if err != nil {
		if errors.Is(err, models.ErrCustomerNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "customer not found")
		}
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("Loading history failed")
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"customer_id":    history.CustomerID,
		"history":        history.Records,
		"total_payments": len(history.Records),
	})
}

func (s *Server) predictionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrCustomerNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInsufficientHistory):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrOracleUnavailable):
		return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Prediction failed")
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func predictionJSON(p models.Prediction) fiber.Map {
	out := fiber.Map{
		"customer_id":            p.CustomerID,
		"last_demand_date":       dateOrEmpty(p.LastDemandDate),
		"last_payment_date":      dateOrEmpty(p.LastPaymentDate),
		"next_demand_date":       dateOrEmpty(p.NextDemandDate),
		"predicted_payment_date": dateOrEmpty(p.PredictedPaymentDate),
		"average_delay_days":     p.AverageDelayDays,
		"confidence_score":       p.ConfidenceScore,
		"confidence_band":        predict.ConfidenceBand(p.ConfidenceScore),
	}
	if p.Explanation != "" {
		out["explanation"] = p.Explanation
	}
	return out
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
