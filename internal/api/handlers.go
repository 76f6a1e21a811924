package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

func createAppointmentHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.CreateInput
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreatedResponse{ID: appt.ID})
	}
}

func availableSlotsHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := appointment.SlotsQuery{Date: r.URL.Query().Get("date")}
		if raw := r.URL.Query().Get("serviceId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Error:   "validation_failed",
					Details: "must be an integer",
					Field:   "serviceId",
				})
				return
			}
			q.ServiceID = id
		}

		slots, err := svc.GetAvailableSlots(r.Context(), q)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

// getAppointmentHandler backs the public confirmation page. Unknown ids yield a null body.
func getAppointmentHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		detail, err := svc.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				writeJSON(w, http.StatusOK, nil)
				return
			}
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func cancelAppointmentHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req appointment.CancelInput
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.Cancel(r.Context(), id, req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func listAppointmentsHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.GetAll(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func appointmentsByRangeHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		list, err := svc.GetByDateRange(r.Context(), appointment.RangeQuery{
			StartDate: query.Get("startDate"),
			EndDate:   query.Get("endDate"),
			Status:    query.Get("status"),
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func updateStatusHandler(svc *appointment.Service, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req appointment.UpdateStatusInput
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}
