// Package server exposes the webhook pipeline over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/hellausefulsoftware/cleaner/internal/webhook"
)

const (
	// ServiceName is reported by the health endpoint
	ServiceName = "cleaner"
	// GitHub does not send payloads larger than 25 MB
	maxBodyBytes          = 25 << 20
	defaultProcessTimeout = 8 * time.Second
)

// Processor runs one delivery through verification, dedup and routing
type Processor interface {
	Process(ctx context.Context, ev webhook.Event) webhook.Result
}

// Options configures the HTTP surface
type Options struct {
	Env string
	// ProcessTimeout bounds how long a webhook request waits for its pipeline
	ProcessTimeout time.Duration
}

// Server holds the gin engine and tracks pipelines still running after
// their request was answered
type Server struct {
	engine    *gin.Engine
	processor Processor
	opts      Options
	started   time.Time
	now       func() time.Time

	inflight sync.WaitGroup
}

// New creates the server and its routes
func New(processor Processor, opts Options) *Server {
	if opts.ProcessTimeout <= 0 {
		opts.ProcessTimeout = defaultProcessTimeout
	}

	s := &Server{
		processor: processor,
		opts:      opts,
		started:   time.Now(),
		now:       time.Now,
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(Recovery())
	engine.Use(Logger())

	engine.GET("/health", s.handleHealth)
	engine.POST("/webhook", s.handleWebhook)

	s.engine = engine
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Wait blocks until background pipelines finish or ctx is done
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipelines still running: %w", ctx.Err())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	now := s.now()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   ServiceName,
		"env":       s.opts.Env,
		"uptime":    now.Sub(s.started).Seconds(),
		"timestamp": now.UTC().Format(time.RFC3339Nano),
	})
}

var errPipelinePanic = errors.New("pipeline panic")

func (s *Server) handleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	ev := webhook.Event{
		Name:       c.GetHeader(webhook.HeaderEvent),
		DeliveryID: c.GetHeader(webhook.HeaderDelivery),
		Signature:  c.GetHeader(webhook.HeaderSignature),
		Body:       body,
		ReceivedAt: s.now(),
	}

	// Side effects must complete even if GitHub hangs up first
	ctx := context.WithoutCancel(c.Request.Context())
	done := make(chan webhook.Result, 1)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if p := recover(); p != nil {
				logging.Error("Webhook pipeline panicked", "delivery", ev.DeliveryID, "panic", p)
				done <- webhook.Result{Kind: webhook.Failed, Route: ev.Name, Err: fmt.Errorf("%w: %v", errPipelinePanic, p)}
			}
		}()
		done <- s.processor.Process(ctx, ev)
	}()

	timer := time.NewTimer(s.opts.ProcessTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		s.respond(c, ev, res)
	case <-timer.C:
		logging.Warn("Webhook still processing, acknowledging early",
			"delivery", ev.DeliveryID,
			"event", ev.Name,
			"timeout", s.opts.ProcessTimeout)
		c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	}
}

func (s *Server) respond(c *gin.Context, ev webhook.Event, res webhook.Result) {
	switch res.Kind {
	case webhook.Rejected:
		logging.Warn("Rejected webhook", "delivery", ev.DeliveryID, "event", ev.Name, "error", res.Err)
		c.JSON(http.StatusBadRequest, gin.H{"error": rejectMessage(res.Err)})
	case webhook.Malformed:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	case webhook.Failed:
		if errors.Is(res.Err, errPipelinePanic) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": res.Kind.String()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": res.Kind.String()})
	}
}

func rejectMessage(err error) string {
	switch {
	case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrMissingHeaders):
		return "missing webhook headers"
	case errors.Is(err, webhook.ErrInvalidSignature):
		return "invalid signature"
	default:
		return "invalid webhook request"
	}
}
