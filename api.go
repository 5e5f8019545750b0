package main

import (
	"context"
	"github.com/CodedInternet/gosupercar/onboard"
	"github.com/CodedInternet/gosupercar/onboard/errors"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"net/http"
)

//---
// Error responses
//---

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(status int, text string, err error) *ErrResponse {
	resp := &ErrResponse{Err: err, HTTPStatusCode: status, StatusText: text}
	if err != nil {
		resp.ErrorText = err.Error()
	}
	return resp
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(http.StatusBadRequest, "Invalid request.", err)
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(http.StatusUnauthorized, "Unauthorized.", err)
}

func ErrPermissionDenied(err error) render.Renderer {
	return newErrResponse(http.StatusForbidden, "Permission denied.", err)
}

func ErrNotFoundError(err error) render.Renderer {
	return newErrResponse(http.StatusNotFound, "Resource not found.", err)
}

func ErrRender(err error) render.Renderer {
	return newErrResponse(http.StatusInternalServerError, "Error processing request.", err)
}

var (
	ErrNotFound = newErrResponse(http.StatusNotFound, "Resource not found.", nil)
	ErrConflict = newErrResponse(http.StatusConflict, "Remote already connected.", nil)
)

//---
// Payloads
//---

// ConfigPayload decodes over the current config so absent fields keep their value.
type ConfigPayload struct {
	*onboard.Config
}

func (p *ConfigPayload) Bind(r *http.Request) error {
	return nil
}

type MotorConfigPayload struct {
	*hardware.MotorConfig
}

func (p *MotorConfigPayload) Bind(r *http.Request) error {
	return nil
}

//---
// Views
//---

type ctxKey string

const (
	CTX_JWT   ctxKey = "jwt"
	CTX_MOTOR ctxKey = "motor"
)

// MotorCtx loads the actuator named by the {motor} URL parameter.
func (s *server) MotorCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "motor")
		motor, ok := s.car.Motor(name)
		if !ok {
			render.Render(w, r, ErrNotFoundError(errors.MotorNameError{Name: name}))
			return
		}

		ctx := context.WithValue(r.Context(), CTX_MOTOR, motor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) GetState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.car.State())
}

func (s *server) GetConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.car.Config())
}

func (s *server) PutConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.car.Config()
	if err := render.Bind(r, &ConfigPayload{&cfg}); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	applied := s.car.SetConfig(cfg)
	if err := s.store.SaveConfig(applied); err != nil {
		s.log.Errorw("unable to save config", "error", err)
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, applied)
}

func (s *server) GetMotorConfig(w http.ResponseWriter, r *http.Request) {
	motor := r.Context().Value(CTX_MOTOR).(*hardware.Actuator)
	render.JSON(w, r, motor.Config())
}

func (s *server) PutMotorConfig(w http.ResponseWriter, r *http.Request) {
	motor := r.Context().Value(CTX_MOTOR).(*hardware.Actuator)

	cfg := motor.Config()
	if err := render.Bind(r, &MotorConfigPayload{&cfg}); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	motor.SetConfig(cfg)
	applied := motor.Config()
	if err := s.store.SaveMotorConfig(motor.Name, applied); err != nil {
		s.log.Errorw("unable to save config", "motor", motor.Name, "error", err)
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, applied)
}
