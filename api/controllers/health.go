package controllers

import (
	"net/http"

	"github.com/anvo-dev/markethub-backend/api/responses"
	"github.com/anvo-dev/markethub-backend/pkg/db"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
)

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(dbP db.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
