package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/appointment-booking/internal/apperr"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/schedule"
	"github.com/hackgods/appointment-booking/internal/settings"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

// defaultBlockedRangeDays is how far ahead the blocked slot listing looks without an end date.
const defaultBlockedRangeDays = 30

// listBlockedHandler lists blocks touching the calendar days [start, end]. Both bounds accept a
// YYYY-MM-DD date or an ISO timestamp and default to today and today+30.
func listBlockedHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc := svc.Location()
		start := schedule.StartOfDay(time.Now().In(loc))
		if raw := r.URL.Query().Get("start"); raw != "" {
			d, err := schedule.ParseDate(raw, loc)
			if err != nil {
				writeDomainError(w, r, logger, apperr.Validation("start", "must be a date (YYYY-MM-DD) or an ISO timestamp"))
				return
			}
			start = d
		}
		end := start.AddDate(0, 0, defaultBlockedRangeDays)
		if raw := r.URL.Query().Get("end"); raw != "" {
			d, err := schedule.ParseDate(raw, loc)
			if err != nil {
				writeDomainError(w, r, logger, apperr.Validation("end", "must be a date (YYYY-MM-DD) or an ISO timestamp"))
				return
			}
			end = d
		}

		list, err := svc.ListBlocked(r.Context(), start, end.AddDate(0, 0, 1).Add(-time.Nanosecond))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createBlockedHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.BlockedSlotInput
		if !decodeJSON(w, r, &req) {
			return
		}
		b, err := svc.CreateBlocked(r.Context(), req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

func deleteBlockedHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := svc.DeleteBlocked(r.Context(), id); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSettingsHandler(svc *settings.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func updateSettingHandler(svc *settings.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settings.UpdateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		s, err := svc.Update(r.Context(), chi.URLParam(r, "key"), req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
