// Package web serves the single-page dashboard and the JSON/PNG endpoints
// it calls.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KaramelBytes/corrlab/internal/analysis"
	"github.com/KaramelBytes/corrlab/internal/chart"
	"github.com/KaramelBytes/corrlab/internal/i18n"
)

//go:embed templates/index.html
var templatesFS embed.FS

const sessionCookie = "corrlab_session"

// Options configures a Server.
type Options struct {
	DefaultLang    string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	Chart          chart.Options
	Load           analysis.Options
}

// Server wires the dashboard routes.
type Server struct {
	cat    *i18n.Catalog
	log    *zap.Logger
	opt    Options
	store  *Store
	engine *gin.Engine
}

// New builds a server. cat must already be validated.
func New(cat *i18n.Catalog, log *zap.Logger, opt Options) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cat.Supports(opt.DefaultLang) {
		return nil, errors.New("default language " + opt.DefaultLang + " is not in the locale catalog")
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 32 << 20
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	s := &Server{cat: cat, log: log, opt: opt, store: NewStore(opt.SessionTTL)}

	r := gin.New()
	r.Use(requestLogger(log), gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error("panic serving request", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}))
	r.MaxMultipartMemory = opt.MaxUploadBytes
	r.SetHTMLTemplate(tmpl)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/", s.handleIndex)
	api := r.Group("/api", s.withSession)
	{
		api.POST("/dataset", s.handleDataset)
		api.POST("/correlate", s.handleCorrelate)
		api.GET("/chart.png", s.handleChart)
		api.POST("/photo", s.handlePhoto)
		api.GET("/photo/original.png", s.handleOriginal)
		api.GET("/photo/processed.png", s.handleProcessed)
	}
	s.engine = r
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", addr))
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
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := c.Get(sessionKey); ok {
			fields = append(fields, zap.String("session", id.(string)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
