package controllers

import (
	"net/http"

	"github.com/sonkoltuk/sonkoltuk-backend/api/responses"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/config"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sonkoltuk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the datasources answer.
func HealthReady(cfg *config.Config, database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sonkoltuk-Env", cfg.App.Env)

		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
