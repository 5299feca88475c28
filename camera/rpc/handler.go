// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/piascik/Mookodi-sub000/camera"
	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/fitsheader"
	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

// Handler serves the camera RPC surface (spec.md §4.4) over HTTP+JSON.
type Handler struct {
	Adapter  *camera.Adapter
	Worker   *camera.Worker
	Campaign *camera.Campaign
	log      *xlog.Logger

	broadcaster *streamBroadcaster
}

// NewHandler wires a mux over the given adapter/worker/campaign, matching
// the camera RPC handler's ownership described in spec.md §9.
func NewHandler(adapter *camera.Adapter, worker *camera.Worker, campaign *camera.Campaign, log *xlog.Logger) *Handler {
	return &Handler{Adapter: adapter, Worker: worker, Campaign: campaign, log: log, broadcaster: newStreamBroadcaster()}
}

// Mux returns an http.Handler serving every camera RPC operation plus the
// /status/stream websocket telemetry feed, grounded on cmd/lepton/server.go's
// http.NewServeMux wiring.
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/set_binning", h.handleSetBinning)
	mux.HandleFunc("/set_window", h.handleSetWindow)
	mux.HandleFunc("/clear_window", h.handleClearWindow)
	mux.HandleFunc("/set_readout_speed", h.handleSetReadoutSpeed)
	mux.HandleFunc("/set_gain", h.handleSetGain)
	mux.HandleFunc("/set_fits_headers", h.handleSetFitsHeaders)
	mux.HandleFunc("/add_fits_header", h.handleAddFitsHeader)
	mux.HandleFunc("/clear_fits_headers", h.handleClearFitsHeaders)
	mux.HandleFunc("/start_expose", h.handleStartExpose)
	mux.HandleFunc("/start_multbias", h.handleStartMultbias)
	mux.HandleFunc("/start_multdark", h.handleStartMultdark)
	mux.HandleFunc("/start_multrun", h.handleStartMultrun)
	mux.HandleFunc("/abort_exposure", h.handleAbort)
	mux.HandleFunc("/cool_down", h.handleCoolDown)
	mux.HandleFunc("/warm_up", h.handleWarmUp)
	mux.HandleFunc("/get_state", h.handleGetState)
	mux.HandleFunc("/get_image_data", h.handleGetImageData)
	mux.HandleFunc("/get_last_image_filename", h.handleGetLastImageFilename)
	mux.HandleFunc("/get_image_filenames", h.handleGetImageFilenames)
	mux.Handle("/status/stream", h.broadcaster.handler())
	go h.pollState()
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) handleSetBinning(w http.ResponseWriter, r *http.Request) {
	var req SetBinningRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	if err := h.Adapter.SetBinning(req.HBin, req.VBin); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var req SetWindowRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	win := camera.Window{XStart: req.XStart, YStart: req.YStart, XEnd: req.XEnd, YEnd: req.YEnd}
	if err := h.Adapter.SetWindow(win); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleClearWindow(w http.ResponseWriter, r *http.Request) {
	if err := h.Adapter.ClearWindow(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleSetReadoutSpeed(w http.ResponseWriter, r *http.Request) {
	var req SetReadoutSpeedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	speed, err := parseReadoutSpeed(req.Speed)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Adapter.SetReadoutSpeed(speed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleSetGain(w http.ResponseWriter, r *http.Request) {
	var req SetGainRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	gain, err := parseGain(req.Gain)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Adapter.SetGain(gain); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleSetFitsHeaders(w http.ResponseWriter, r *http.Request) {
	var req SetFitsHeadersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	h.Adapter.Headers.Clear()
	for _, c := range req.Cards {
		card, err := toCard(c)
		if err != nil {
			writeError(w, err)
			return
		}
		h.Adapter.Headers.Set(card)
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleAddFitsHeader(w http.ResponseWriter, r *http.Request) {
	var c FitsCard
	if err := decodeBody(r, &c); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	card, err := toCard(c)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Adapter.Headers.Set(card)
	writeJSON(w, struct{}{})
}

func (h *Handler) handleClearFitsHeaders(w http.ResponseWriter, r *http.Request) {
	h.Adapter.Headers.Clear()
	writeJSON(w, struct{}{})
}

func (h *Handler) handleStartExpose(w http.ResponseWriter, r *http.Request) {
	h.startCampaign(w, r, camera.Science, false)
}

func (h *Handler) handleStartMultbias(w http.ResponseWriter, r *http.Request) {
	h.startCampaign(w, r, camera.Bias, true)
}

func (h *Handler) handleStartMultdark(w http.ResponseWriter, r *http.Request) {
	h.startCampaign(w, r, camera.Dark, true)
}

func (h *Handler) handleStartMultrun(w http.ResponseWriter, r *http.Request) {
	h.startCampaign(w, r, camera.Science, true)
}

func (h *Handler) startCampaign(w http.ResponseWriter, r *http.Request, kind camera.Kind, forceSave bool) {
	var req StartExposeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, &camera.Error{Kind: camera.ConfigError, Message: err.Error()})
		return
	}
	if req.Count < 1 {
		req.Count = 1
	}
	save := req.Save || forceSave
	if err := h.Worker.Start(kind, req.Count, req.ExposureLengthMS, save); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	if err := h.Worker.Abort(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleCoolDown(w http.ResponseWriter, r *http.Request) {
	if err := h.Adapter.CoolDown(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleWarmUp(w http.ResponseWriter, r *http.Request) {
	if err := h.Adapter.WarmUp(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.composeState())
}

// composeState builds get_state's snapshot per spec.md §4.4's driver
// status mapping table. Temperature is read live unless the detector is
// mid-exposure/readout, in which case the cached, time-stamped value is
// used.
func (h *Handler) composeState() StateResponse {
	ncols, nrows, hbin, vbin := h.Adapter.Cache.Dimensions()
	win, enabled := h.Adapter.Cache.Window()
	flipX, flipY := h.Adapter.Cache.Flips()

	status := h.Adapter.Detector.ExposureStatus()
	state, elapsed, remaining := mapExposureState(status, h.Adapter.Detector.ExposureStartTime(), h.Adapter.Detector.ExposureLength())

	var temp detector.Temperature
	if status == detector.StatusExpose || status == detector.StatusReadout {
		temp = h.Adapter.Detector.CachedTemperature()
	} else if t, err := h.Adapter.Detector.Temperature(); err == nil {
		temp = t
	} else {
		temp = detector.Temperature{Status: detector.TemperatureUnknown}
	}

	return StateResponse{
		NCols: ncols, NRows: nrows, HBin: hbin, VBin: vbin,
		WindowEnabled: enabled,
		Window:        [4]int{win.XStart, win.YStart, win.XEnd, win.YEnd},
		ReadoutSpeed:  h.Adapter.Cache.ReadoutSpeed().String(),
		Gain:          h.Adapter.Cache.Gain().String(),
		FlipX:         flipX, FlipY: flipY,
		ExposureState: state.String(),
		ExposureIndex: h.Campaign.ExposureIndex(),
		ExposureCount: h.Campaign.ExposureCount(),
		ElapsedMS:     elapsed,
		RemainingMS:   remaining,
		TemperatureK:      temp.Kelvin,
		TemperatureStatus: temp.Status.String(),
		LastFilename:      h.Campaign.LastFilename(),
		Busy:              h.Campaign.IsBusy(),
	}
}

// mapExposureState implements spec.md §4.4's table exactly.
func mapExposureState(status detector.DriverStatus, start time.Time, length time.Duration) (camera.ExposureState, int64, int64) {
	lengthMS := length.Milliseconds()
	switch status {
	case detector.StatusWaitStart:
		return camera.Setup, 0, 0
	case detector.StatusExpose:
		elapsed := time.Since(start).Milliseconds()
		if elapsed > lengthMS {
			elapsed = lengthMS
		}
		if elapsed < 0 {
			elapsed = 0
		}
		return camera.Exposing, elapsed, lengthMS - elapsed
	case detector.StatusReadout:
		return camera.Readout, lengthMS, 0
	default:
		return camera.Idle, 0, 0
	}
}

func (h *Handler) handleGetImageData(w http.ResponseWriter, r *http.Request) {
	buf, width, height := h.Campaign.ImageData()
	writeJSON(w, ImageDataResponse{Width: width, Height: height, Pixels: buf})
}

func (h *Handler) handleGetLastImageFilename(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Filename string `json:"filename"`
	}{h.Campaign.LastFilename()})
}

func (h *Handler) handleGetImageFilenames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Filenames []string `json:"filenames"`
	}{h.Campaign.FilenameList()})
}

func parseReadoutSpeed(s string) (detector.ReadoutSpeed, error) {
	switch s {
	case "SLOW":
		return detector.Slow, nil
	case "FAST":
		return detector.Fast, nil
	default:
		return 0, &camera.Error{Kind: camera.ConfigError, Message: fmt.Sprintf("unknown readout speed %q", s)}
	}
}

func parseGain(s string) (detector.Gain, error) {
	switch s {
	case "ONE":
		return detector.GainOne, nil
	case "TWO":
		return detector.GainTwo, nil
	case "FOUR":
		return detector.GainFour, nil
	default:
		return 0, &camera.Error{Kind: camera.ConfigError, Message: fmt.Sprintf("unknown gain %q", s)}
	}
}

func toCard(c FitsCard) (fitsheader.Card, error) {
	switch c.Type {
	case CardInteger:
		v, ok := c.Value.(float64) // JSON numbers decode as float64
		if !ok {
			return fitsheader.Card{}, &camera.Error{Kind: camera.ConfigError, Message: fmt.Sprintf("card %s: expected integer value", c.Keyword)}
		}
		return fitsheader.IntCard(c.Keyword, int64(v), c.Units, c.Comment), nil
	case CardFloat:
		v, ok := c.Value.(float64)
		if !ok {
			return fitsheader.Card{}, &camera.Error{Kind: camera.ConfigError, Message: fmt.Sprintf("card %s: expected float value", c.Keyword)}
		}
		return fitsheader.FloatCard(c.Keyword, v, c.Units, c.Comment), nil
	case CardString:
		v, ok := c.Value.(string)
		if !ok {
			return fitsheader.Card{}, &camera.Error{Kind: camera.ConfigError, Message: fmt.Sprintf("card %s: expected string value", c.Keyword)}
		}
		return fitsheader.StringCard(c.Keyword, v, c.Units, c.Comment), nil
	default:
		return fitsheader.Card{}, &camera.Error{Kind: camera.ConfigError, Message: fmt.Sprintf("card %s: unknown type %q", c.Keyword, c.Type)}
	}
}

// pollState feeds the websocket broadcaster, generalizing
// cmd/lepton/server.go's AddImg/stream pattern from image frames to
// periodic status snapshots.
func (h *Handler) pollState() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		h.broadcaster.publish(h.composeState())
	}
}
