package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// createTaskRequest is the body of POST /api/tasks.
type createTaskRequest struct {
	Title    string `json:"title" binding:"required"`
	Notes    string `json:"notes"`
	Due      string `json:"due"`
	Priority string `json:"priority"`
	Reminder bool   `json:"reminder"`
}

// updateTaskRequest is the body of PUT /api/tasks/:id. Absent fields are left
// unchanged; an empty due string clears the due date.
type updateTaskRequest struct {
	Title    *string `json:"title"`
	Notes    *string `json:"notes"`
	Due      *string `json:"due"`
	Priority *string `json:"priority"`
	Reminder *bool   `json:"reminder"`
}

type taskListResponse struct {
	Tasks  []models.Task     `json:"tasks"`
	Counts core.TaskCounts   `json:"counts"`
	Filter models.FilterMode `json:"filter"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"state":               s.tasks.State().String(),
		"reminders_permitted": s.tasks.ReminderPermitted(),
	})
}

// handleList returns tasks for the requested filter.
// GET /api/tasks?filter=active
func (s *Server) handleList(c *gin.Context) {
	mode := models.FilterMode(c.DefaultQuery("filter", string(models.FilterAll)))
	if !mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filter must be one of all, active, completed"})
		return
	}
	if !s.refresh(c) {
		return
	}
	c.JSON(http.StatusOK, taskListResponse{
		Tasks:  models.FilterTasks(s.tasks.Tasks(), mode.Matches),
		Counts: s.tasks.Counts(),
		Filter: mode,
	})
}

// GET /api/tasks/:id
func (s *Server) handleGet(c *gin.Context) {
	task, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

// POST /api/tasks
func (s *Server) handleCreate(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := core.TaskDraft{
		Title:        req.Title,
		Notes:        req.Notes,
		WantReminder: req.Reminder,
		Priority:     models.Priority(strings.ToLower(req.Priority)),
	}
	if req.Due != "" {
		due, hasTime, err := core.ParseDue(req.Due, s.now())
		if err != nil {
			s.writeError(c, err)
			return
		}
		draft.DueDate = &due
		draft.HasTime = hasTime
	}

	task, err := s.tasks.AddTask(c.Request.Context(), draft)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// PUT /api/tasks/:id
func (s *Server) handleUpdate(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, ok := s.lookup(c)
	if !ok {
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.Priority != nil {
		task.Priority = models.Priority(strings.ToLower(*req.Priority))
	}
	if req.Due != nil {
		if *req.Due == "" {
			task.HasDueDate, task.HasTime, task.HasReminder = false, false, false
			task.DueDate = time.Time{}
		} else {
			due, hasTime, err := core.ParseDue(*req.Due, s.now())
			if err != nil {
				s.writeError(c, err)
				return
			}
			task.HasDueDate, task.DueDate, task.HasTime = true, due, hasTime
			if !hasTime {
				task.HasReminder = false
			}
		}
	}
	if req.Reminder != nil {
		task.HasReminder = *req.Reminder
	}

	updated, err := s.tasks.UpdateTask(c.Request.Context(), task)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /api/tasks/:id/toggle
func (s *Server) handleToggle(c *gin.Context) {
	task, ok := s.lookup(c)
	if !ok {
		return
	}
	updated, err := s.tasks.ToggleCompletion(c.Request.Context(), task)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DELETE /api/tasks/:id
func (s *Server) handleDelete(c *gin.Context) {
	task, ok := s.lookup(c)
	if !ok {
		return
	}
	if err := s.tasks.DeleteTask(c.Request.Context(), task); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/tasks/overdue
func (s *Server) handleOverdue(c *gin.Context) {
	if !s.refresh(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": nonNil(s.tasks.OverdueTasks())})
}

// GET /api/tasks/upcoming?days=3
func (s *Server) handleUpcoming(c *gin.Context) {
	days := s.tasks.UpcomingWindow()
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = n
	}
	if !s.refresh(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "tasks": nonNil(s.tasks.UpcomingTasks(days))})
}

// GET /api/tasks/today
func (s *Server) handleToday(c *gin.Context) {
	if !s.refresh(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": nonNil(s.tasks.DueTodayTasks())})
}

// refresh reloads from the store, which the CLI may have changed since the
// last request.
func (s *Server) refresh(c *gin.Context) bool {
	if err := s.tasks.LoadTasks(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return false
	}
	return true
}

func (s *Server) lookup(c *gin.Context) (models.Task, bool) {
	if !s.refresh(c) {
		return models.Task{}, false
	}
	id := c.Param("id")
	task, ok := s.tasks.Task(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task " + id + " not found"})
		return models.Task{}, false
	}
	return task, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrStorage):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("api request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": core.UserMessage(err)})
}

func nonNil(tasks []models.Task) []models.Task {
	if tasks == nil {
		return []models.Task{}
	}
	return tasks
}
