package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
)

// errorBody is the JSON shape every failure response carries.
type errorBody struct {
	Code       string           `json:"code"`
	Message    string           `json:"message"`
	Violations []errorViolation `json:"violations,omitempty"`
}

type errorViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// writeError maps a domain error to its HTTP status and JSON body. Unknown
// errors are logged and masked as 500s.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("unhandled error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    string(apperrors.CodeUnknown),
			Message: "internal error",
		})
		return
	}
	body := errorBody{
		Code:    string(domainErr.Code),
		Message: domainErr.Message,
	}
	for _, v := range domainErr.Violations {
		body.Violations = append(body.Violations, errorViolation{
			Field:       v.Field,
			Description: v.Description,
		})
	}
	if domainErr.Code == apperrors.CodeStoreUnavailable {
		log.Printf("store unavailable: %v", domainErr.Unwrap())
	}
	writeJSON(w, domainErr.Code.HTTPStatus(), body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
