package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/4ry1337/openvis/pkg/errors"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   errors.Code `json:"error"`
	Message string      `json:"message"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidURL, errors.ErrCodeInvalidInterval:
		return http.StatusBadRequest
	case errors.ErrCodeAlreadyConnected:
		return http.StatusConflict
	case errors.ErrCodeNotConnected:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork, errors.ErrCodeUnreachable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeEndpointNotFound, errors.ErrCodeValidation, errors.ErrCodeFetch:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("encode response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError && code == errors.ErrCodeInternal {
		s.log.Error("request failed", "err", err)
	}
	s.respondJSON(w, status, errorResponse{Error: code, Message: errors.UserMessage(err)})
}

// decode reads a JSON body into v and validates its tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "invalid request body: %v", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s", describe(err))
	}
	return nil
}

// describe turns validator errors into one readable line.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed %s", fe.Field(), fe.Tag())
}
