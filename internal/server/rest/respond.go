package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-playground/validator/v10"
)

const (
	detailInvalidCredentials = "Could not validate credentials"
	detailInternal           = "Internal server error"
)

type errorBody struct {
	Detail string `json:"detail"`
}

type messageBody struct {
	Message string `json:"message"`
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

// fail logs err with its real cause and answers with status/detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, status int, detail string) {
	log := s.logger.Warn
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)

	if status == http.StatusUnauthorized {
		writeUnauthorized(w, detail)
		return
	}
	writeDetail(w, status, detail)
}

// failUpstream answers third-party failures: a non-2xx answer keeps its
// status, anything else is a 500.
func (s *Server) failUpstream(w http.ResponseWriter, r *http.Request, err error, detail string) {
	var ue *common.UpstreamError
	if errors.As(err, &ue) {
		s.fail(w, r, err, ue.StatusCode, detail)
		return
	}
	s.fail(w, r, err, http.StatusInternalServerError, detailInternal)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", common.ErrorValidation, err)
	}
	return nil
}

// check runs the struct's validate tags and turns failures into
// a readable common.ErrorValidation.
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}

func validationDetail(err error) string {
	return strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
}
