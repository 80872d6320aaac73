package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/greeting-store/pkg/server"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthController(db Pinger) server.Controller {
	return &HealthController{db: db, timeout: 2 * time.Second}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.health).Methods(http.MethodGet)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := c.db.Ping(ctx); err != nil {
		resp = healthResponse{Status: "degraded", Database: "unreachable", Error: err.Error()}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
