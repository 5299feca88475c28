// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/piascik/Mookodi-sub000/internal/xlog"
	"github.com/piascik/Mookodi-sub000/mechanism"
)

// Handler serves the instrument RPC surface (spec.md §4.6) over HTTP+JSON.
type Handler struct {
	Controller *mechanism.Controller
	log        *xlog.Logger
}

// NewHandler wires a Handler over an already-configured Controller.
func NewHandler(controller *mechanism.Controller, log *xlog.Logger) *Handler {
	return &Handler{Controller: controller, log: log}
}

// Mux returns an http.Handler serving every instrument RPC operation.
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ctrl_slit", h.handleCtrl(h.Controller.CtrlSlit))
	mux.HandleFunc("/ctrl_grism", h.handleCtrl(h.Controller.CtrlGrism))
	mux.HandleFunc("/ctrl_mirror", h.handleCtrl(h.Controller.CtrlMirror))
	mux.HandleFunc("/ctrl_lamp", h.handleToggle(h.Controller.CtrlLamp))
	mux.HandleFunc("/ctrl_arc", h.handleToggle(h.Controller.CtrlArc))
	mux.HandleFunc("/ctrl_filter", h.handleCtrlFilter)
	mux.HandleFunc("/ctrl_filters", h.handleCtrlFilters)
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Message: err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// handleCtrl wraps the three deploy/stow mechanisms, which share the
// (Command, time.Duration) -> (DeployState, error) shape.
func (h *Handler) handleCtrl(op func(mechanism.Command, time.Duration) (mechanism.DeployState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CtrlRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cmd, err := parseCommand(req.State)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := op(cmd, time.Duration(req.TimeoutMS)*time.Millisecond)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, DeployResponse{State: state.String()})
	}
}

// handleToggle wraps ctrl_lamp/ctrl_arc, which share the
// Command -> (DeployState, error) shape (no timeout, no limit sensors).
func (h *Handler) handleToggle(op func(mechanism.Command) (mechanism.DeployState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ToggleRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cmd, err := parseCommand(req.State)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := op(cmd)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, DeployResponse{State: state.String()})
	}
}

func (h *Handler) handleCtrlFilter(w http.ResponseWriter, r *http.Request) {
	var req CtrlFilterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := parseActuator(req.Which)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := parseFilterTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := h.Controller.CtrlFilter(id, target, time.Duration(req.TimeoutMS)*time.Millisecond)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, FilterResponse{State: state.String()})
}

func (h *Handler) handleCtrlFilters(w http.ResponseWriter, r *http.Request) {
	var req CtrlFiltersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target0, err := parseFilterTarget(req.Target0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target1, err := parseFilterTarget(req.Target1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state0, state1, err := h.Controller.CtrlFilters(target0, target1, time.Duration(req.TimeoutMS)*time.Millisecond)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, FiltersResponse{State0: state0.String(), State1: state1.String()})
}
