package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"examsim/internal/service"
	"examsim/internal/transport/rest/middleware"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decodeBody decodes a JSON request body and runs its validate tags
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("validation failed: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// writeServiceError maps store and session service errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var active *service.SessionActiveError
	var svcErr *service.ServiceError
	switch {
	case errors.As(err, &active):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":         active.Message,
			"activeSession": active.Active,
		})
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrStale):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &svcErr) && (svcErr.Status == http.StatusUnauthorized || svcErr.Status == http.StatusForbidden):
		writeError(w, svcErr.Status, err.Error())
	case errors.As(err, &svcErr) && svcErr.Status >= 400 && svcErr.Status < 500:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[REST] ERROR: request %s: %v", middleware.GetRequestID(r.Context()), err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
