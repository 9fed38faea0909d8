package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"omnichat/internal/constants"
	"omnichat/internal/database"
	"omnichat/internal/middleware"
	"omnichat/internal/models"
	"omnichat/internal/realtime"
	"omnichat/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server wires the HTTP surface: provider webhooks, realtime streams, the
// message history API and health.
type Server struct {
	cfg        *models.Config
	logger     *logrus.Logger
	gateway    *service.Gateway
	hub        *realtime.Hub
	db         *database.Database
	httpServer *http.Server
}

func NewServer(cfg *models.Config, gateway *service.Gateway, hub *realtime.Hub, db *database.Database, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		gateway: gateway,
		hub:     hub,
		db:      db,
	}

	router := mux.NewRouter()
	router.Use(middleware.Recover(logger))
	router.Use(middleware.Observability(logger))

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/webhook/{provider}", s.handleWebhook).Methods(http.MethodPost)
	router.Handle("/ws", realtime.NewWebSocketHandler(hub, logger)).Methods(http.MethodGet)
	router.Handle("/events", realtime.NewSSEHandler(hub, logger)).Methods(http.MethodGet)
	router.HandleFunc("/conversations/{id}/messages", s.handleListMessages).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func providerFromSlug(slug string) (models.IntegrationType, bool) {
	switch slug {
	case "evolution":
		return models.IntegrationEvolution, true
	case "waha":
		return models.IntegrationWAHA, true
	default:
		return "", false
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	typ, ok := providerFromSlug(mux.Vars(r)["provider"])
	if !ok {
		s.writeJSON(w, http.StatusNotFound, models.WebhookResult{
			Status: models.WebhookIgnored,
			Reason: "unknown provider",
		})
		return
	}

	var event models.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeJSON(w, http.StatusBadRequest, models.WebhookResult{
			Status: models.WebhookError,
			Reason: "malformed payload",
		})
		return
	}

	result, err := s.gateway.ProcessEvent(r.Context(), typ, &event)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"provider": typ,
			"event":    event.Type,
			"instance": event.Instance,
		}).Error("Webhook processing failed")
		// Still 200: a non-2xx would make the provider redeliver an event
		// we already know how to fail on.
		s.writeJSON(w, http.StatusOK, models.WebhookResult{
			Status: models.WebhookError,
			Reason: "processing failed",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	messages, err := s.db.ListMessages(r.Context(), conversationID, limit)
	if err != nil {
		s.logger.WithError(err).WithField("conversationId", conversationID).Error("Failed to list messages")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": conversationID,
		"messages":       messages,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": s.hub.SubscriberCount(),
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// startRetentionLoop prunes old messages once a day until ctx is canceled.
func startRetentionLoop(ctx context.Context, db *database.Database, retentionDays int, logger *logrus.Logger) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.CleanupOldMessages(ctx, retentionDays); err != nil {
					logger.WithError(err).Warn("Message retention cleanup failed")
				} else {
					logger.WithField("retentionDays", retentionDays).Debug("Message retention cleanup completed")
				}
			}
		}
	}()
}

// syncCallbackURLs points every connected integration's webhook at this
// deployment. Failures are logged per integration and do not block startup.
func syncCallbackURLs(ctx context.Context, db *database.Database, registry *service.AdapterRegistry, base string, logger *logrus.Logger) {
	if base == "" {
		logger.Info("No public callback base configured, skipping webhook registration")
		return
	}

	slugs := map[models.IntegrationType]string{
		models.IntegrationEvolution: "evolution",
		models.IntegrationWAHA:      "waha",
	}

	for typ, slug := range slugs {
		integrations, err := db.FindIntegrationsByTypeAndStatus(ctx, typ, models.IntegrationConnected)
		if err != nil {
			logger.WithError(err).WithField("provider", typ).Warn("Failed to load integrations for callback sync")
			continue
		}

		callbackURL := fmt.Sprintf("%s/webhook/%s", base, slug)
		for i := range integrations {
			integration := &integrations[i]
			adapter, err := registry.Get(integration)
			if err != nil {
				logger.WithError(err).WithField("integrationId", integration.ID).Warn("Failed to build adapter for callback sync")
				continue
			}
			if err := adapter.SetCallbackURL(ctx, callbackURL); err != nil {
				logger.WithError(err).WithField("integrationId", integration.ID).Warn("Failed to register callback URL")
				continue
			}
			if err := db.UpdateIntegrationCallbackURL(ctx, integration.ID, callbackURL); err != nil {
				logger.WithError(err).WithField("integrationId", integration.ID).Warn("Failed to record callback URL")
				continue
			}
			logger.WithFields(logrus.Fields{
				"integrationId": integration.ID,
				"callbackUrl":   callbackURL,
			}).Info("Callback URL registered")
		}
	}
}

func adapterTimeout() time.Duration {
	return time.Duration(constants.DefaultProviderTimeoutSec) * time.Second
}
