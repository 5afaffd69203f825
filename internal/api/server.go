package api

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"loanplan/internal/plan"
	"loanplan/internal/store"
)

type Server struct {
	Store   store.Store
	Log     *zap.Logger
	Events  EventPublisher
	Planner plan.Config

	limiter *rate.Limiter
}

// NewServer creates a Server. If DATABASE_URL is unset, uses the in-memory
// store; if REDIS_URL is unset, run events stay in-process.
func NewServer(log *zap.Logger, planner plan.Config, rps float64, burst int) (*Server, error) {
	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		s = sp
	}

	var events EventPublisher = NopPublisher{}
	if url := os.Getenv("REDIS_URL"); url != "" {
		if rp, err := NewRedisPublisher(url); err == nil {
			events = rp
		} else {
			log.Warn("redis publisher unavailable, run events disabled", zap.Error(err))
		}
	}

	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &Server{
		Store:   s,
		Log:     log,
		Events:  events,
		Planner: planner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}
