package rest_interface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	appconfig "github.com/vulpemventures/utxoprep/internal/app-config"
	"github.com/vulpemventures/utxoprep/internal/core/application"
	rest_handler "github.com/vulpemventures/utxoprep/internal/interfaces/rest/handler"
	rest_middleware "github.com/vulpemventures/utxoprep/internal/interfaces/rest/middleware"
	"golang.org/x/net/http2"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type service struct {
	config     ServiceConfig
	appConfig  *appconfig.AppConfig
	httpServer *http.Server

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewService(config ServiceConfig, appConfig *appconfig.AppConfig) (*service, error) {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("service: %s", format)
		log.Infof(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	if !config.insecure() {
		if err := generateTLSKeyPair(
			config.TLSLocation, config.ExtraIPs, config.ExtraDomains,
		); err != nil {
			return nil, fmt.Errorf("error while creating TLS keypair: %s", err)
		}
		logFn("created TLS keypair in path %s", config.TLSLocation)
	}

	return &service{config, appConfig, nil, logFn, warnFn}, nil
}

func (s *service) Start() error {
	if err := s.appConfig.LedgerService().Start(); err != nil {
		return fmt.Errorf("failed to start ledger service: %s", err)
	}
	s.log("started ledger service")

	srv, err := s.start()
	if err != nil {
		s.appConfig.LedgerService().Stop()
		return err
	}

	s.log("start listening on %s", s.config.address())

	s.httpServer = srv
	return nil
}

func (s *service) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.warn(err, "failed to gracefully stop http server")
		}
		s.log("stopped http server")
	}

	s.appConfig.LedgerService().Stop()
	s.log("stopped ledger service")
	s.appConfig.RepoManager().Close()
	s.log("closed connection with db")
	s.log("shutdown")
}

func (s *service) start() (*http.Server, error) {
	srv := &http.Server{
		Handler: NewRouter(
			s.appConfig.PrepareService(), s.appConfig.BuildInfo(),
		),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if !s.config.insecure() {
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			return nil, err
		}
	}

	lis, err := s.config.listener()
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.warn(err, "http server stopped unexpectedly")
		}
	}()

	return srv, nil
}

// NewRouter returns the handler serving the public REST api.
func NewRouter(
	prepareSvc *application.PrepareService, info application.BuildInfo,
) http.Handler {
	prepareHandler := rest_handler.NewPrepareHandler(prepareSvc)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		rest_middleware.Logger,
		rest_middleware.Recoverer(http.HandlerFunc(rest_handler.Unexpected)),
	)
	router.NotFound(rest_handler.NotFound)
	router.MethodNotAllowed(rest_handler.MethodNotAllowed)

	router.Get("/health", rest_handler.NewHealthHandler(info))
	router.Route("/api", func(r chi.Router) {
		r.Get("/prepare-unspent-outputs", prepareHandler.PrepareUnspentOutputs)
		r.Get("/prepare-unspent-outputs/", prepareHandler.PrepareUnspentOutputs)
		r.Get("/selections", prepareHandler.ListSelections)
		r.Get("/selections/{id}", prepareHandler.GetSelection)
	})

	return router
}
