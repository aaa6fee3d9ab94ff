package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmarket-os/marketd/internal/core/application"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Service exposes the application over HTTP.
type Service struct {
	server *http.Server
}

func NewService(port uint32, appSvc application.Service) *Service {
	return &Service{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(appSvc),
		},
	}
}

func newRouter(appSvc application.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(panicRecovery(), requestLogger())

	h := newHandler(appSvc)

	v1 := router.Group("/v1")
	v1.POST("/sales", h.createSale)
	v1.GET("/sales/:contract/:asset", h.getSale)
	v1.DELETE("/sales/:contract/:asset", h.delistSale)
	v1.PUT("/sales/:contract/:asset/price", h.updatePrice)
	v1.POST("/sales/:contract/:asset/offer", h.offer)
	v1.GET("/settlements/:id", h.getSettlement)

	return router
}

func (s *Service) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server exited")
		}
	}()
	log.Infof("http server listening on %s", s.server.Addr)
	return nil
}

func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// nolint:all
	s.server.Shutdown(ctx)
	log.Debug("stopped http server")
}
