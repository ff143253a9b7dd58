package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/service/board"
)

// BoardService is the subset of board.Service the HTTP layer uses.
type BoardService interface {
	Get(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Task, error)
	Create(ctx context.Context, actorID uuid.UUID, in board.CreateTaskInput) (*domain.Task, error)
	Update(ctx context.Context, actorID, taskID uuid.UUID, in board.UpdateTaskInput) (*domain.Task, error)
	Move(ctx context.Context, actorID uuid.UUID, cmd board.MoveCommand) (*domain.Task, error)
	Assign(ctx context.Context, actorID, taskID, assigneeID uuid.UUID) (*domain.Task, error)
	Delete(ctx context.Context, actorID, taskID uuid.UUID) error
	Column(ctx context.Context, actorID, workspaceID uuid.UUID, status domain.TaskStatus) (ordering.Column, error)
	ProjectColumn(ctx context.Context, actorID, projectID uuid.UUID, status domain.TaskStatus) (ordering.Column, error)
	Rebalance(ctx context.Context, actorID, workspaceID uuid.UUID, status domain.TaskStatus) (ordering.Column, error)
}

var _ BoardService = (*board.Service)(nil)

// TaskHandler handles task and column HTTP requests.
type TaskHandler struct {
	board  BoardService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc BoardService, logger *slog.Logger) *TaskHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("board service cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		board:  svc,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// Routes registers the task endpoints on r. The caller mounts r under
// /api behind the auth middleware.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Get("/statuses", h.ListStatuses)

	r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
		r.Post("/tasks", h.CreateTask)
		r.Get("/board", h.GetBoard)
		r.Get("/columns/{status}", h.GetColumn)
		r.Post("/columns/{status}/rebalance", h.RebalanceColumn)
	})

	r.Get("/projects/{projectID}/columns/{status}", h.GetProjectColumn)

	r.Route("/tasks/{id}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Patch("/", h.UpdateTask)
		r.Delete("/", h.DeleteTask)
		r.Post("/move", h.MoveTask)
		r.Post("/assign", h.AssignTask)
	})
}

func (h *TaskHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// ListStatuses handles GET /statuses.
func (h *TaskHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses := domain.AllStatuses()
	out := make([]StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusResponse{Value: string(s), Title: s.DisplayName()})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// CreateTask handles POST /workspaces/{workspaceID}/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(w, r, "workspaceID", log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	in := board.CreateTaskInput{
		WorkspaceID: workspaceID,
		ProjectID:   optionalUUID(req.ProjectID),
		Name:        req.Name,
		Description: req.Description,
		AssigneeID:  optionalUUID(req.AssigneeID),
		DueAt:       req.DueAt,
		Position:    req.Position,
		Index:       req.Index,
	}
	if req.Status != "" {
		in.Status = parseStatus(req.Status)
	}

	task, err := h.board.Create(r.Context(), actorID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.board.Get(r.Context(), actorID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PATCH /tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	in := board.UpdateTaskInput{
		Name:        req.Name,
		Description: req.Description,
		DueAt:       req.DueAt,
		ClearDueAt:  req.ClearDueAt,
	}
	if req.Status != nil {
		status := parseStatus(*req.Status)
		in.Status = &status
	}

	task, err := h.board.Update(r.Context(), actorID, taskID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.board.Delete(r.Context(), actorID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveTask handles POST /tasks/{id}/move. The response carries the task as
// persisted, including its allocated position.
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req MoveTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	task, err := h.board.Move(r.Context(), actorID, board.MoveCommand{
		TaskID:         taskID,
		TargetStatus:   parseStatus(req.TargetStatus),
		TargetPosition: req.TargetPosition,
		TargetIndex:    req.TargetIndex,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to move task")
		return
	}

	log.Debug("task moved",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)),
		slog.Float64("position", task.Position))
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// AssignTask handles POST /tasks/{id}/assign.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	task, err := h.board.Assign(r.Context(), actorID, taskID, optionalUUID(req.AssigneeID))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to assign task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// GetBoard handles GET /workspaces/{workspaceID}/board.
func (h *TaskHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(w, r, "workspaceID", log)
	if !ok {
		return
	}

	resp := BoardResponse{WorkspaceID: workspaceID.String()}
	for _, status := range domain.AllStatuses() {
		col, err := h.board.Column(r.Context(), actorID, workspaceID, status)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to load board")
			return
		}
		resp.Columns = append(resp.Columns, columnToResponse(col))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetColumn handles GET /workspaces/{workspaceID}/columns/{status}.
func (h *TaskHandler) GetColumn(w http.ResponseWriter, r *http.Request) {
	h.columnRequest(w, r, "workspaceID", h.board.Column, "Failed to load column")
}

// GetProjectColumn handles GET /projects/{projectID}/columns/{status}.
func (h *TaskHandler) GetProjectColumn(w http.ResponseWriter, r *http.Request) {
	h.columnRequest(w, r, "projectID", h.board.ProjectColumn, "Failed to load column")
}

// RebalanceColumn handles POST /workspaces/{workspaceID}/columns/{status}/rebalance.
func (h *TaskHandler) RebalanceColumn(w http.ResponseWriter, r *http.Request) {
	h.columnRequest(w, r, "workspaceID", h.board.Rebalance, "Failed to rebalance column")
}

type columnFunc func(ctx context.Context, actorID, scopeID uuid.UUID, status domain.TaskStatus) (ordering.Column, error)

func (h *TaskHandler) columnRequest(
	w http.ResponseWriter,
	r *http.Request,
	scopeParam string,
	fn columnFunc,
	failMsg string,
) {
	log := h.log(r)
	actorID, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	scopeID, ok := pathUUID(w, r, scopeParam, log)
	if !ok {
		return
	}
	status, ok := pathStatus(w, r, log)
	if !ok {
		return
	}

	col, err := fn(r.Context(), actorID, scopeID, status)
	if err != nil {
		HandleAPIError(w, r, err, failMsg)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, columnToResponse(col))
}
