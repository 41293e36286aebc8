package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"
)

// ProviderErrorData is the envelope payload of a PROVIDER_ERROR
type ProviderErrorData struct {
	ProviderStatus int    `json:"provider_status"`
	ProviderBody   string `json:"provider_body"`
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, envelope models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope)
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSONResponse(w, http.StatusOK, models.SuccessEnvelope(message, data))
}

// writeErrorResponse maps err onto its status code and error envelope
func writeErrorResponse(w http.ResponseWriter, log *logger.Logger, err error) {
	gwErr := services.AsGatewayError(err)

	var data interface{}
	if gwErr.Code == services.ErrorCodeProvider {
		data = ProviderErrorData{
			ProviderStatus: gwErr.ProviderStatus,
			ProviderBody:   gwErr.ProviderBody,
		}
	}
	if gwErr.Code == services.ErrorCodeConfiguration && log != nil {
		log.WithError(err).Error("Request failed with a configuration error")
	}

	writeJSONResponse(w, gwErr.HTTPStatus, models.ErrorEnvelope(string(gwErr.Code), gwErr.Message, data))
}

// decodeJSONBody decodes a JSON request body into dest. The body must hold exactly one JSON value.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		return services.NewBadRequestError("request body must be a JSON object", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return services.NewBadRequestError("request body must contain a single JSON value", err)
	}
	return nil
}
