package wsexecutor

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

// fakeJobs reports pending for the first polls then finished
type fakeJobs struct {
	mu      sync.Mutex
	pending int
}

func (f *fakeJobs) Status(_ context.Context, id string) (*jobstore.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "missing" {
		return &jobstore.Job{ID: id, Status: types.JobNotFound}, nil
	}
	if f.pending > 0 {
		f.pending--
		return &jobstore.Job{ID: id, Kind: types.JobExecute, Status: types.JobPending}, nil
	}
	return &jobstore.Job{ID: id, Kind: types.JobExecute, Status: types.JobFinished, Result: &envexec.Result{
		Outcome: envexec.OutcomeCompleted, Stdout: "done",
	}}, nil
}

func dial(t *testing.T, jobs StatusSource, id string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(jobs, time.Millisecond, zaptest.NewLogger(t)).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/result/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWSPushesUntilTerminal(t *testing.T) {
	conn := dial(t, &fakeJobs{pending: 3}, "a")

	var statuses []string
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatal(err)
			}
			break
		}
		statuses = append(statuses, msg["status"].(string))
		if msg["status"] == "finished" && msg["output"] != "done" {
			t.Fatalf("unexpected message %v", msg)
		}
	}
	if strings.Join(statuses, ",") != "pending,finished" {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestWSNotFound(t *testing.T) {
	conn := dial(t, &fakeJobs{}, "missing")

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg["status"] != "not_found" || msg["error"] != "Job not found" {
		t.Fatalf("unexpected message %v", msg)
	}
}
