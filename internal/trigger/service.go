package trigger

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smart-student/stats-engine/internal/aggregation"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/auth"
	"github.com/smart-student/stats-engine/internal/controller"
)

// Controller is the part of the rebuild controller the surfaces use.
type Controller interface {
	Rebuild(ctx context.Context, year int, sel v1.Selection, surface v1.Surface) *v1.RebuildResult
	Trigger(ctx context.Context, year int) (*controller.TriggerOutcome, error)
	Control(ctx context.Context, year int) (*v1.RebuildControl, error)
	Cache() aggregation.StatsCacheStore
}

// Options configures the invocation surfaces.
type Options struct {
	MaxBodySizeMB   int
	OnDemandTimeout time.Duration
	CallableTimeout time.Duration
	HookTimeout     time.Duration
	HookEnabled     bool
	// Location decides the current academic year when a request omits it.
	Location *time.Location
}

func (o Options) normalized() Options {
	n := o
	if n.MaxBodySizeMB <= 0 {
		n.MaxBodySizeMB = 1
	}
	if n.OnDemandTimeout <= 0 {
		n.OnDemandTimeout = 60 * time.Second
	}
	if n.CallableTimeout <= 0 {
		n.CallableTimeout = 540 * time.Second
	}
	if n.HookTimeout <= 0 {
		n.HookTimeout = 9 * time.Minute
	}
	if n.Location == nil {
		n.Location = time.UTC
	}
	return n
}

// Service exposes the rebuild surfaces over HTTP.
type Service struct {
	ctl              Controller
	verifier         *auth.Verifier
	opts             Options
	maxBodySizeBytes int64
	nowFn            func() time.Time
}

// NewService creates the trigger service. The callable route is only
// registered when verifier is non-nil.
func NewService(ctl Controller, verifier *auth.Verifier, opts Options) *Service {
	if ctl == nil {
		panic("trigger: controller must not be nil")
	}
	opts = opts.normalized()
	return &Service{
		ctl:              ctl,
		verifier:         verifier,
		opts:             opts,
		maxBodySizeBytes: int64(opts.MaxBodySizeMB) * 1024 * 1024,
		nowFn:            time.Now,
	}
}

// RegisterRoutes registers the trigger service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/stats/rebuild", s.HandleRebuild)
	r.GET("/api/stats/rebuild", s.HandleStatus)

	if s.opts.HookEnabled {
		r.POST("/api/stats/hooks/attendance-created", s.HandleAttendanceCreated)
	}
	if s.verifier != nil {
		r.POST("/v1/rpc/rebuildStats", s.verifier.Middleware(), s.HandleCallable)
	}
}

func (s *Service) currentYear() int {
	return s.nowFn().In(s.opts.Location).Year()
}
