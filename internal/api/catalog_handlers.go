package api

import (
	"errors"
	"net/http"

	"github.com/hackgods/appointment-booking/internal/catalog"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

func listServicesHandler(c *catalog.Catalog, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := c.GetAll(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, services)
	}
}

// getServiceHandler answers null for unknown or inactive services.
func getServiceHandler(c *catalog.Catalog, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		s, err := c.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, catalog.ErrServiceNotFound) {
				writeJSON(w, http.StatusOK, nil)
				return
			}
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func createServiceHandler(c *catalog.Catalog, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.CreateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		s, err := c.Create(r.Context(), req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

func updateServiceHandler(c *catalog.Catalog, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req catalog.UpdateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		s, err := c.Update(r.Context(), id, req)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func deleteServiceHandler(c *catalog.Catalog, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		s, err := c.Delete(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
