package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/address-forecast/internal/weather"
)

const serviceName = "address-forecast"

var validate = validator.New()

// ForecastService is the part of *weather.Service the handlers need.
type ForecastService interface {
	Fetch(ctx context.Context, address string) (weather.Result, error)
	CacheTTL() time.Duration
}

// NewApp builds the Fiber app with middleware, health check and all routes.
func NewApp(service ForecastService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	RegisterRoutes(app, service)
	return app
}

// ErrorHandler renders unexpected handler errors in the API error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(errorBody{Message: err.Error(), Code: errorCodeFor(code)})
}

func errorCodeFor(status int) string {
	switch {
	case status == fiber.StatusNotFound:
		return "not_found"
	case status >= fiber.StatusInternalServerError:
		return "internal_error"
	default:
		return "invalid_request"
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service ForecastService) {
	h := &handler{service: service, log: slog.Default().With("service", "http")}

	v1 := app.Group("/api/v1")
	v1.Get("/forecast", h.forecastJSON)

	app.Get("/", h.forecastPage)
	app.Get("/forecasts", h.forecastPage)
}

type handler struct {
	service ForecastService
	log     *slog.Logger
}

// forecastQuery holds the query parameters shared by the JSON and HTML routes.
type forecastQuery struct {
	Address string `validate:"max=512"`
}

func parseForecastQuery(c *fiber.Ctx) (forecastQuery, error) {
	// fasthttp reuses the query buffer once the handler returns.
	q := forecastQuery{Address: strings.Clone(c.Query("address"))}
	if err := validate.Struct(q); err != nil {
		return q, errors.New("address must be at most 512 characters")
	}
	return q, nil
}

type errorBody struct {
	Message string `json:"error"`
	Code    string `json:"error_code"`
}

func (h *handler) forecastJSON(c *fiber.Ctx) error {
	q, err := parseForecastQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Message: err.Error(), Code: "invalid_request"})
	}

	result, err := h.service.Fetch(c.UserContext(), q.Address)
	if err != nil {
		var we *weather.Error
		if !errors.As(err, &we) {
			return err
		}
		return c.Status(StatusFor(we.Code)).JSON(errorBody{Message: we.Message, Code: string(we.Code)})
	}

	return c.JSON(result)
}

// StatusFor maps a forecast error code to an HTTP status.
func StatusFor(code weather.Code) int {
	switch code {
	case weather.CodeBlankAddress:
		return fiber.StatusBadRequest
	case weather.CodeAddressNotFound:
		return fiber.StatusNotFound
	case weather.CodeNetwork:
		return fiber.StatusGatewayTimeout
	case weather.CodeGeocodingUnavailable, weather.CodeWeatherUnavailable, weather.CodeSSL:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
