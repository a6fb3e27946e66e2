// Package server exposes a labeller Session over HTTP for the web UI
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	labeller "github.com/menta2k/dataset-labeller"
)

// Options configure the HTTP server
type Options struct {
	// StaticDir holds the web UI; empty disables /static and /
	StaticDir   string
	Development bool
	Logger      *zap.Logger
}

// Server routes API requests to a Session
type Server struct {
	session *labeller.Session
	opts    Options
	router  *gin.Engine
}

func New(session *labeller.Session, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{session: session, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.opts.Logger), cors())

	api := r.Group("/api")
	api.GET("/system", s.systemInfo)
	api.GET("/dialog/folder", s.dialogDisabled("Folder"))
	api.GET("/dialog/file", s.dialogDisabled("File"))

	api.GET("/models", s.listModels)
	api.POST("/models/import", s.importModel)

	api.POST("/project/open", s.openProject)
	api.POST("/project/split", s.changeSplit)
	api.GET("/project/info", s.projectInfo)

	api.GET("/image", s.image)
	api.GET("/labels", s.labels)
	api.POST("/labels/save", s.saveLabels)

	api.GET("/classes", s.classes)
	api.POST("/classes", s.setClasses)

	api.POST("/remove", s.remove)
	api.GET("/restore/list", s.restoreList)
	api.POST("/restore", s.restore)

	api.POST("/detect", s.detect)
	api.POST("/export", s.export)

	if s.opts.StaticDir != "" {
		r.Static("/static", s.opts.StaticDir)
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(s.opts.StaticDir, "index.html"))
		})
	}
	return r
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.opts.Logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
