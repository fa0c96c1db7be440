package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// envelope is the JSON body of every API response.
type envelope map[string]any

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns the first failed field of a validator error into
// a readable sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fe.Field() + " is invalid"
}

// badRequest is an error whose message is shown to clients as is.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// decodeJSON reads a JSON body into dst and validates it.
// normalizer is implemented by requests that clean up fields before validation.
type normalizer interface {
	normalize()
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest{"File too large"}
		}
		return badRequest{"invalid request body"}
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return badRequest{validationMessage(err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	body["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{"success": false, "message": message})
}

// internalError logs err and answers with a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, log *zap.Logger, msg string, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, "internal error")
}
