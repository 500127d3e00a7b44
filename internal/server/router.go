package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soliveri/stagehand/internal/probe"
	"github.com/soliveri/stagehand/internal/supervisor"
)

// Router provides the local control API served while supervising.
// Endpoints:
//
//	GET  /status    supervisor snapshot
//	GET  /healthz   proxies one probe against the backend health endpoint
//	POST /shutdown  drives the same idempotent shutdown path as a signal
type Router struct {
	sup       *supervisor.Supervisor
	checker   *probe.Checker
	healthURL string
	shutdown  func()
}

// NewRouter constructs the control router. shutdown must be safe to call
// any number of times.
func NewRouter(sup *supervisor.Supervisor, checker *probe.Checker, healthURL string, shutdown func()) *Router {
	return &Router{sup: sup, checker: checker, healthURL: healthURL, shutdown: shutdown}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/status", r.handleStatus)
	g.GET("/healthz", r.handleHealthz)
	g.POST("/shutdown", r.handleShutdown)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The caller shuts it down via http.Server's Close.
func NewServer(addr string, r *Router) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Snapshot())
}

func (r *Router) handleHealthz(c *gin.Context) {
	if r.checker.Check(c.Request.Context(), r.healthURL) {
		c.JSON(http.StatusOK, okResp{OK: true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, okResp{OK: false})
}

func (r *Router) handleShutdown(c *gin.Context) {
	go r.shutdown()
	c.JSON(http.StatusAccepted, okResp{OK: true})
}
