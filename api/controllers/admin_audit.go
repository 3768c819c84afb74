package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sonkoltuk/sonkoltuk-backend/api/responses"
	"github.com/sonkoltuk/sonkoltuk-backend/api/validators"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/pagination"
)

const (
	defaultErrorWindowHours = 24
	maxErrorWindowHours     = 24 * 30
)

type auditErrorsResponse struct {
	WindowHours int                 `json:"window_hours"`
	Total       int64               `json:"total"`
	ByAction    []audit.ActionCount `json:"by_action"`
}

// AuditErrors reports engine error counts over a trailing window,
// overall and broken down by action.
func AuditErrors(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		windowHours, err := validators.ParseQueryInt(r, "window_hours", defaultErrorWindowHours, 1, maxErrorWindowHours)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		total, err := svc.RecentErrorCount(ctx, windowHours)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting recent errors"))
			return
		}
		byAction, err := svc.RecentErrorsByAction(ctx, windowHours)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grouping recent errors"))
			return
		}
		if byAction == nil {
			byAction = []audit.ActionCount{}
		}

		responses.WriteSuccess(w, auditErrorsResponse{
			WindowHours: windowHours,
			Total:       total,
			ByAction:    byAction,
		})
	}
}

// AuditTrail pages through an entity's audit history, newest first.
func AuditTrail(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Trail(ctx, chi.URLParam(r, "entity"), chi.URLParam(r, "entityID"), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Items == nil {
			result.Items = []models.AuditLog{}
		}

		responses.WriteSuccess(w, result)
	}
}
