// Package server exposes a run over HTTP with a websocket event stream.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"scenecast/internal/bundle"
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/scene"
	"scenecast/internal/failure"
	"scenecast/internal/pipeline"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Pipeline is the part of the orchestrator the API drives
type Pipeline interface {
	Snapshot() run.Run
	Scene(n int) (scene.Scene, error)
	Submit(ctx context.Context, n int, stage scene.Stage) error
	EditScript(n int, text string) error
	Reset(n int, stage scene.Stage) error
	Merge(ctx context.Context) (string, error)
	Subscribe() (<-chan pipeline.Event, func())
}

type Server struct {
	// ctx outlives requests; generation started by a request runs under it
	ctx      context.Context
	pipeline Pipeline
	bundles  map[string]string
	upgrader websocket.Upgrader
}

// New creates a server. bundles maps a name accepted by /api/bundle to the
// directory that is zipped.
func New(ctx context.Context, p Pipeline, bundles map[string]string) *Server {
	return &Server{
		ctx:      ctx,
		pipeline: p,
		bundles:  bundles,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type editScriptRequest struct {
	Script string `json:"script" binding:"required"`
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	api := router.Group("/api")
	api.GET("/run", s.GetRun)
	api.GET("/scenes/:n", s.GetScene)
	api.PUT("/scenes/:n/script", s.EditScript)
	api.POST("/scenes/:n/:stage", s.SubmitStage)
	api.DELETE("/scenes/:n/:stage", s.ResetStage)
	api.POST("/merge", s.Merge)
	api.GET("/bundle", s.Bundle)
	api.GET("/events", s.Events)
	return router
}

// Run serves on addr until the server context is cancelled
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-s.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Failed to shut down server")
		}
	}()

	logrus.WithField("addr", addr).Info("Serving API")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (s *Server) GetRun(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Snapshot())
}

func (s *Server) GetScene(c *gin.Context) {
	n, ok := sceneParam(c)
	if !ok {
		return
	}
	sc, err := s.pipeline.Scene(n)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *Server) EditScript(c *gin.Context) {
	n, ok := sceneParam(c)
	if !ok {
		return
	}
	var req editScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.pipeline.EditScript(n, req.Script); err != nil {
		writeError(c, err)
		return
	}
	sc, _ := s.pipeline.Scene(n)
	c.JSON(http.StatusOK, sc)
}

func (s *Server) SubmitStage(c *gin.Context) {
	n, ok := sceneParam(c)
	if !ok {
		return
	}
	stage, err := scene.ParseStage(c.Param("stage"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.pipeline.Submit(s.ctx, n, stage); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"scene": n, "stage": stage, "state": scene.Generating})
}

// ResetStage discards a generated stage and its dependents
func (s *Server) ResetStage(c *gin.Context) {
	n, ok := sceneParam(c)
	if !ok {
		return
	}
	stage, err := scene.ParseStage(c.Param("stage"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.pipeline.Reset(n, stage); err != nil {
		writeError(c, err)
		return
	}
	sc, _ := s.pipeline.Scene(n)
	c.JSON(http.StatusOK, sc)
}

func (s *Server) Merge(c *gin.Context) {
	path, err := s.pipeline.Merge(s.ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) Bundle(c *gin.Context) {
	name := c.DefaultQuery("stage", "images")
	dir, ok := s.bundles[name]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown bundle %q", name)})
		return
	}

	var buf bytes.Buffer
	count, err := bundle.WriteZip(&buf, dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no files to bundle"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filepath.Base(dir)+".zip"))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// Events streams orchestrator events as JSON text frames until the client
// goes away
func (s *Server) Events(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.pipeline.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				logrus.WithError(err).Debug("Event client went away")
				return
			}
		}
	}
}

func sceneParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid scene %q", c.Param("n"))})
		return 0, false
	}
	return n, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch failure.KindOf(err) {
	case failure.Busy, failure.NotReady, failure.NothingToMerge:
		status = http.StatusConflict
	case failure.Permanent:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": failure.KindOf(err)})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request served")
	}
}
