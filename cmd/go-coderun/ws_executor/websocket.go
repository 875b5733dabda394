package wsexecutor

import (
	"context"
	"net/http"
	"time"

	"github.com/coderun/go-coderun/cmd/go-coderun/model"
	restexecutor "github.com/coderun/go-coderun/cmd/go-coderun/rest_executor"
	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StatusSource reports job status
type StatusSource interface {
	Status(ctx context.Context, id string) (*jobstore.Job, error)
}

// New creates new websocket handle that pushes job status until the job is
// no longer pending
func New(jobs StatusSource, pollInterval time.Duration, logger *zap.Logger) restexecutor.Register {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &wsHandle{
		jobs:         jobs,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait           = 10 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

type wsHandle struct {
	jobs         StatusSource
	pollInterval time.Duration
	logger       *zap.Logger
}

func (h *wsHandle) Register(r *gin.Engine) {
	r.GET("/ws/result/:id", h.handleWS)
}

func (h *wsHandle) handleWS(c *gin.Context) {
	id := c.Param("id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.Error(err)
		return
	}
	defer conn.Close()

	// the read loop only observes the close from the client
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	var last types.JobStatus
	for {
		j, err := h.jobs.Status(ctx, id)
		if err != nil {
			h.logger.Warn("ws status error", zap.String("id", id), zap.Error(err))
			return
		}
		if j.Status != last {
			last = j.Status
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(convert(j)); err != nil {
				h.logger.Warn("ws write error", zap.String("id", id), zap.Error(err))
				return
			}
		}
		if j.Status != types.JobPending {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func convert(j *jobstore.Job) any {
	if j.Kind == types.JobProblem {
		return model.ConvertProblemResult(j)
	}
	return model.ConvertExecuteResult(j)
}
