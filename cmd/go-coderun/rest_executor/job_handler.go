package restexecutor

import (
	"context"
	"net/http"

	"github.com/coderun/go-coderun/cmd/go-coderun/model"
	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JobService accepts jobs and reports their status
type JobService interface {
	EnqueueExecute(ctx context.Context, code string) (string, error)
	EnqueueProblem(ctx context.Context, p worker.Problem) (string, error)
	Status(ctx context.Context, id string) (*jobstore.Job, error)
}

type jobHandle struct {
	jobs   JobService
	logger *zap.Logger
}

// NewJobHandle creates a new job handle
func NewJobHandle(jobs JobService, logger *zap.Logger) Register {
	return &jobHandle{
		jobs:   jobs,
		logger: logger,
	}
}

func (h *jobHandle) Register(r *gin.Engine) {
	r.POST("/execute", h.handleExecute)
	r.POST("/execute-problem", h.handleExecuteProblem)
	r.GET("/result/:id", h.handleResult)
	r.GET("/result-problem/:id", h.handleResultProblem)
}

func (h *jobHandle) handleExecute(c *gin.Context) {
	var req model.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.jobs.EnqueueExecute(c.Request.Context(), req.Code)
	if err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Debug("execute job accepted", zap.String("id", id), zap.Int("codeSize", len(req.Code)))
	c.JSON(http.StatusOK, model.JobResponse{JobID: id})
}

func (h *jobHandle) handleExecuteProblem(c *gin.Context) {
	var req model.ProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.jobs.EnqueueProblem(c.Request.Context(), model.ConvertProblemRequest(&req))
	if err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Debug("problem job accepted", zap.String("id", id), zap.Int("cases", len(req.TestCases)))
	c.JSON(http.StatusOK, model.JobResponse{JobID: id})
}

func (h *jobHandle) handleResult(c *gin.Context) {
	j, ok := h.status(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.ConvertExecuteResult(j))
}

func (h *jobHandle) handleResultProblem(c *gin.Context) {
	j, ok := h.status(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.ConvertProblemResult(j))
}

func (h *jobHandle) status(c *gin.Context) (*jobstore.Job, bool) {
	j, err := h.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return j, true
}
