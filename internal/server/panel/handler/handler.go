package handler

import (
	"context"
	"time"

	"github.com/Alwanly/guang-panel/internal/config"
	"github.com/Alwanly/guang-panel/internal/models"
	"github.com/Alwanly/guang-panel/internal/server/panel/dto"
	"github.com/Alwanly/guang-panel/internal/server/panel/repository"
	"github.com/Alwanly/guang-panel/internal/server/panel/usecase"
	"github.com/Alwanly/guang-panel/pkg/deps"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/msglog"
	"github.com/Alwanly/guang-panel/pkg/poll"
	"github.com/Alwanly/guang-panel/pkg/validator"
	"github.com/Alwanly/guang-panel/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	Logger  *logger.CanonicalLogger
	UseCase *usecase.UseCase
	Config  *config.PanelConfig
}

// NewHandler wires the panel's repositories and use case, registers the
// poll tasks on d.Poller and mounts the API routes on d.Fiber.
func NewHandler(d deps.App, cfg *config.PanelConfig, facilities []config.FacilityConfig) (*Handler, error) {
	registry, err := repository.NewRegistry(facilities)
	if err != nil {
		return nil, err
	}

	messages, err := msglog.New(cfg.MessagesMaxShow)
	if err != nil {
		return nil, err
	}

	var settings repository.ISettingsRepository
	if d.Database != nil {
		settings = repository.NewSettingsRepository(d.Database)
	}

	uc := usecase.NewUseCase(usecase.UseCase{
		Backend:  repository.NewBackendClient(cfg, d.Logger.Component("backend")),
		Settings: settings,
		Registry: registry,
		Messages: messages,
		Board:    repository.NewScanBoard(cfg.ScanMaxRows, time.Now()),
		Beacon:   repository.NewBeaconState(),
		Poller:   d.Poller,
		Pub:      d.Pub,
		Config:   cfg,
		Logger:   d.Logger,
	})

	ctx := context.Background()
	if err := uc.RestoreCapacity(ctx); err != nil {
		d.Logger.WithError(err).Warn("keeping configured message capacity")
	}
	if err := uc.RegisterPollers(ctx); err != nil {
		return nil, err
	}

	h := &Handler{
		Logger:  d.Logger,
		UseCase: uc,
		Config:  cfg,
	}

	auth := d.Middleware.BasicAuth()

	// Health check endpoint (no auth required)
	d.Fiber.Get("/health", h.health)

	api := d.Fiber.Group("/api")

	api.Get("/facilities", h.listFacilities)
	api.Post("/facilities/refresh", auth, h.refreshFacilities)
	api.Post("/facilities/:name/spawn", auth, h.spawnWorkers)
	api.Post("/facilities/:name/stop", auth, h.stopWorkers)

	api.Get("/messages", h.listMessages)
	api.Post("/messages", auth, h.postMessage)
	api.Post("/messages/test", auth, h.testMessages)
	api.Put("/messages/capacity", auth, h.setCapacity)
	api.Delete("/messages", auth, h.clearMessages)
	api.Delete("/messages/:id", auth, h.removeMessage)

	api.Get("/pollers", h.listPollers)
	api.Put("/pollers/:name", auth, h.updatePoller)

	api.Get("/settings", h.listSettings)

	api.Get("/beacon", h.beacon)
	api.Get("/scans", h.scans)

	api.Post("/maintenance/db", auth, h.dbMaintenance)
	api.Post("/shutdown", auth, h.shutdown)

	return h, nil
}

// health godoc
// @Summary     Health check
// @Description Get panel health status (unauthenticated)
// @Tags        health
// @Produce     json
// @Success     200 {object} map[string]string
// @Router      /health [get]
func (h *Handler) health(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "health_check"))

	return c.JSON(fiber.Map{"status": "healthy"})
}

// listFacilities godoc
// @Summary      List facilities
// @Description  Registered backend facilities with their last known worker count
// @Tags         facilities
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=dto.FacilitiesResponse}
// @Router       /api/facilities [get]
func (h *Handler) listFacilities(c *fiber.Ctx) error {
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, dto.FacilitiesResponse{Facilities: h.UseCase.Facilities()}))
}

// refreshFacilities godoc
// @Summary      Refresh worker counts
// @Description  Fetch the current worker count of every facility from the backend
// @Tags         facilities
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=dto.FacilitiesResponse}
// @Failure      502 {object} wrapper.JSONResult "Backend failure"
// @Router       /api/facilities/refresh [post]
// @Security     BasicAuth
func (h *Handler) refreshFacilities(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "refresh_worker_counts"))

	if err := h.UseCase.RefreshWorkerCounts(c.UserContext()); err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, dto.FacilitiesResponse{Facilities: h.UseCase.Facilities()}))
}

// spawnWorkers godoc
// @Summary      Spawn workers
// @Description  Start workers of a facility. Without an amount the facility's default amount is used.
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Param        name path string true "Facility name"
// @Param        request body dto.WorkerRequest false "Amount of workers"
// @Success      200 {object} wrapper.JSONResult{data=dto.WorkerResponse}
// @Failure      400 {object} wrapper.JSONResult "Invalid amount"
// @Failure      404 {object} wrapper.JSONResult "Unknown facility"
// @Failure      502 {object} wrapper.JSONResult "Backend failure"
// @Router       /api/facilities/{name}/spawn [post]
// @Security     BasicAuth
func (h *Handler) spawnWorkers(c *fiber.Ctx) error {
	return h.workerControl(c, "spawn_workers", h.UseCase.SpawnWorkers)
}

// stopWorkers godoc
// @Summary      Stop workers
// @Description  Stop workers of a facility. Without an amount the facility's default amount is used.
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Param        name path string true "Facility name"
// @Param        request body dto.WorkerRequest false "Amount of workers"
// @Success      200 {object} wrapper.JSONResult{data=dto.WorkerResponse}
// @Failure      400 {object} wrapper.JSONResult "Invalid amount"
// @Failure      404 {object} wrapper.JSONResult "Unknown facility"
// @Failure      502 {object} wrapper.JSONResult "Backend failure"
// @Router       /api/facilities/{name}/stop [post]
// @Security     BasicAuth
func (h *Handler) stopWorkers(c *fiber.Ctx) error {
	return h.workerControl(c, "stop_workers", h.UseCase.StopWorkers)
}

type workerFunc func(ctx context.Context, name string, amount int) (models.Facility, error)

func (h *Handler) workerControl(c *fiber.Ctx, op string, fn workerFunc) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, op))

	name := c.Params("name")
	facility, err := h.UseCase.Facility(name)
	if err != nil {
		return h.failed(c, err)
	}

	req := new(dto.WorkerRequest)
	if len(c.Body()) > 0 {
		if res, ok := h.parse(c, req); !ok {
			return respond(c, res)
		}
	}

	amount := facility.DefaultAmount
	if req.Amount != nil {
		amount = *req.Amount
	}

	f, err := fn(c.UserContext(), name, amount)
	if err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, dto.WorkerResponse{Facility: f}))
}

// listMessages godoc
// @Summary      Message log
// @Description  Rendered message log, newest first
// @Tags         messages
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=dto.MessagesResponse}
// @Router       /api/messages [get]
func (h *Handler) listMessages(c *fiber.Ctx) error {
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, h.UseCase.MessageLog()))
}

// postMessage godoc
// @Summary      Post a message
// @Description  Append a message to the log (default level DEBUG)
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        request body dto.PostMessageRequest true "Message"
// @Success      201 {object} wrapper.JSONResult{data=dto.PostMessageResponse}
// @Failure      400 {object} wrapper.JSONResult "Invalid request body or validation error"
// @Failure      409 {object} wrapper.JSONResult{data=dto.PostMessageResponse} "Identical message already logged"
// @Router       /api/messages [post]
// @Security     BasicAuth
func (h *Handler) postMessage(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "post_message"))

	req := new(dto.PostMessageRequest)
	if res, ok := h.parse(c, req); !ok {
		return respond(c, res)
	}

	e, accepted, err := h.UseCase.PostMessage(req.Level, req.Message)
	if err != nil {
		return respond(c, wrapper.ResponseFailed(fiber.StatusBadRequest, err.Error(), nil))
	}
	logger.AddToContext(c.UserContext(),
		logger.String(logger.FieldMessageID, e.ID),
		logger.Bool("accepted", accepted),
	)

	res := dto.PostMessageResponse{Row: msglog.Render(e), Accepted: accepted}
	if !accepted {
		return respond(c, wrapper.ResponseFailed(fiber.StatusConflict, "duplicate message dropped", res))
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusCreated, res))
}

// removeMessage godoc
// @Summary      Remove a message
// @Description  Remove one entry from the log. Unknown ids are ignored.
// @Tags         messages
// @Produce      json
// @Param        id path string true "Message id"
// @Success      200 {object} wrapper.JSONResult
// @Router       /api/messages/{id} [delete]
// @Security     BasicAuth
func (h *Handler) removeMessage(c *fiber.Ctx) error {
	id := c.Params("id")
	logger.AddToContext(c.UserContext(),
		logger.String(logger.FieldOperation, "remove_message"),
		logger.String(logger.FieldMessageID, id),
	)

	removed := h.UseCase.RemoveMessage(id)
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, fiber.Map{"removed": removed}))
}

// clearMessages godoc
// @Summary      Clear the message log
// @Tags         messages
// @Produce      json
// @Success      200 {object} wrapper.JSONResult
// @Router       /api/messages [delete]
// @Security     BasicAuth
func (h *Handler) clearMessages(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "clear_messages"))

	h.UseCase.ClearMessages()
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, h.UseCase.MessageLog()))
}

// setCapacity godoc
// @Summary      Set message log capacity
// @Description  Change how many messages are kept. Excess entries are evicted right away.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        request body dto.CapacityRequest true "Capacity"
// @Success      200 {object} wrapper.JSONResult{data=dto.MessagesResponse}
// @Failure      400 {object} wrapper.JSONResult "Invalid capacity"
// @Router       /api/messages/capacity [put]
// @Security     BasicAuth
func (h *Handler) setCapacity(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "set_capacity"))

	req := new(dto.CapacityRequest)
	if res, ok := h.parse(c, req); !ok {
		return respond(c, res)
	}

	if err := h.UseCase.SetCapacity(c.UserContext(), *req.Capacity); err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, h.UseCase.MessageLog()))
}

// testMessages godoc
// @Summary      Request test messages
// @Description  Ask the backend to emit synthetic messages. A count of 0 does nothing.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        request body dto.TestMessagesRequest true "Test message parameters"
// @Success      202 {object} wrapper.JSONResult
// @Failure      400 {object} wrapper.JSONResult "Invalid request body or validation error"
// @Failure      502 {object} wrapper.JSONResult "Backend failure"
// @Router       /api/messages/test [post]
// @Security     BasicAuth
func (h *Handler) testMessages(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "test_messages"))

	req := new(dto.TestMessagesRequest)
	if res, ok := h.parse(c, req); !ok {
		return respond(c, res)
	}

	if err := h.UseCase.RequestTestMessages(c.UserContext(), req.Count, req.Rounds, req.Delay); err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusAccepted, req))
}

// listPollers godoc
// @Summary      List poll tasks
// @Tags         pollers
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=[]dto.PollerResponse}
// @Router       /api/pollers [get]
func (h *Handler) listPollers(c *fiber.Ctx) error {
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, h.UseCase.Pollers()))
}

// updatePoller godoc
// @Summary      Update a poll task
// @Description  Toggle a poll task and/or change its interval. Changes apply from the next cycle and are persisted.
// @Tags         pollers
// @Accept       json
// @Produce      json
// @Param        name path string true "Task name (beacon, update, workers)"
// @Param        request body dto.PollerUpdateRequest true "Changes"
// @Success      200 {object} wrapper.JSONResult{data=dto.PollerResponse}
// @Failure      400 {object} wrapper.JSONResult "Invalid interval"
// @Failure      404 {object} wrapper.JSONResult "Unknown task"
// @Router       /api/pollers/{name} [put]
// @Security     BasicAuth
func (h *Handler) updatePoller(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "update_poller"))

	req := new(dto.PollerUpdateRequest)
	if res, ok := h.parse(c, req); !ok {
		return respond(c, res)
	}

	res, err := h.UseCase.UpdatePoller(c.UserContext(), c.Params("name"), *req)
	if err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, res))
}

// beacon godoc
// @Summary      Beacon status
// @Description  Result of the latest liveness check of the backend
// @Tags         backend
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=models.BeaconStatus}
// @Router       /api/beacon [get]
func (h *Handler) beacon(c *fiber.Ctx) error {
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, h.UseCase.BeaconStatus()))
}

// scans godoc
// @Summary      Scan results
// @Description  Scan results accumulated per port
// @Tags         backend
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=dto.ScanBoardResponse}
// @Router       /api/scans [get]
func (h *Handler) scans(c *fiber.Ctx) error {
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, h.UseCase.ScanBoard()))
}

// dbMaintenance godoc
// @Summary      Database maintenance
// @Description  Trigger the backend's database maintenance
// @Tags         backend
// @Produce      json
// @Success      200 {object} wrapper.JSONResult
// @Failure      502 {object} wrapper.JSONResult "Backend failure"
// @Router       /api/maintenance/db [post]
// @Security     BasicAuth
func (h *Handler) dbMaintenance(c *fiber.Ctx) error {
	if err := h.UseCase.DBMaintenance(c.UserContext()); err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, usecase.MaintenanceDone))
}

// shutdown godoc
// @Summary      Shut down the backend
// @Description  Ask the backend to shut down. The body must carry confirm=true.
// @Tags         backend
// @Accept       json
// @Produce      json
// @Param        request body dto.ShutdownRequest true "Confirmation"
// @Success      200 {object} wrapper.JSONResult
// @Failure      400 {object} wrapper.JSONResult "Not confirmed"
// @Failure      502 {object} wrapper.JSONResult "Backend failure"
// @Router       /api/shutdown [post]
// @Security     BasicAuth
func (h *Handler) shutdown(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "shutdown_backend"))

	req := new(dto.ShutdownRequest)
	if res, ok := h.parse(c, req); !ok {
		return respond(c, res)
	}

	if err := h.UseCase.Shutdown(c.UserContext(), req.Confirm); err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, "shutdown requested"))
}

// listSettings godoc
// @Summary      List stored settings
// @Description  Persisted poller and message log preferences
// @Tags         settings
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=[]dto.SettingResponse}
// @Router       /api/settings [get]
func (h *Handler) listSettings(c *fiber.Ctx) error {
	settings, err := h.UseCase.StoredSettings(c.UserContext())
	if err != nil {
		return h.failed(c, err)
	}
	return respond(c, wrapper.ResponseSuccess(fiber.StatusOK, settings))
}

// parse decodes and validates the body. ok is false when the request has
// to be rejected with res.
func (h *Handler) parse(c *fiber.Ctx, req interface{}) (res wrapper.JSONResult, ok bool) {
	if err := c.BodyParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return wrapper.ResponseFailed(fiber.StatusBadRequest, "Invalid request body", nil), false
	}

	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return wrapper.ResponseFailed(fiber.StatusBadRequest, err.Error(), validator.TranslateError(err)), false
	}
	return res, true
}

// errorStatuses maps use case errors onto HTTP statuses. Backend errors
// carry their own status.
var errorStatuses = []wrapper.ErrorStatus{
	{Err: usecase.ErrUnknownFacility, Code: fiber.StatusNotFound},
	{Err: usecase.ErrUnknownTask, Code: fiber.StatusNotFound},
	{Err: usecase.ErrInvalidAmount, Code: fiber.StatusBadRequest},
	{Err: usecase.ErrNotConfirmed, Code: fiber.StatusBadRequest},
	{Err: poll.ErrInvalidInterval, Code: fiber.StatusBadRequest},
	{Err: msglog.ErrInvalidCapacity, Code: fiber.StatusBadRequest},
}

func (h *Handler) failed(c *fiber.Ctx, err error) error {
	logger.AddToContext(c.UserContext(), zap.Error(err))
	return respond(c, wrapper.ResponseFromError(err, errorStatuses...))
}

func respond(c *fiber.Ctx, res wrapper.JSONResult) error {
	return c.Status(res.Code).JSON(res)
}

