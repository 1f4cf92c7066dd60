// Package httpapi exposes a transmitter over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/encoder"
)

// Transmitter is the part of *sdrtx.Controller the API drives
type Transmitter interface {
	Status() sdrtx.Status
	Send(codewords []int) (int, error)
	SetCorrection(ppm float64)
	Correction() float64
}

var _ Transmitter = (*sdrtx.Controller)(nil)

// ReloadFunc re-initializes the transmitter from its configuration
type ReloadFunc func() error

type Handler struct {
	tx     Transmitter
	reload ReloadFunc
	log    *slog.Logger
	r      *mux.Router
}

func NewHandler(tx Transmitter, reload ReloadFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := mux.NewRouter()
	h := &Handler{tx: tx, reload: reload, log: logger, r: r}

	r.HandleFunc("/api/status", h.statusHandler).Methods("GET")
	r.HandleFunc("/api/transmit", h.transmitHandler).Methods("POST")
	r.HandleFunc("/api/correction", h.getCorrectionHandler).Methods("GET")
	r.HandleFunc("/api/correction", h.putCorrectionHandler).Methods("PUT")
	r.HandleFunc("/api/reload", h.reloadHandler).Methods("POST")

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.r.ServeHTTP(w, r)
}

// ListenAndServe serves h on addr until ctx is done
func ListenAndServe(ctx context.Context, h *Handler, addr string) error {
	h.log.Info("starting HTTP service", "addr", addr)

	srv := http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		h.log.Info("shutting down HTTP service")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errs:
		return err
	}
}

type Status struct {
	Initialized bool    `json:"initialized"`
	Serial      string  `json:"serial,omitempty"`
	GPIO        string  `json:"gpio,omitempty"`
	Device      string  `json:"device,omitempty"`
	TxDelayMS   int64   `json:"tx_delay_ms"`
	Correction  float64 `json:"correction"`
}

type TransmitRequest struct {
	Codewords []int `json:"codewords"`
	TestPage  bool  `json:"test_page,omitempty"`
}

type TransmitResponse struct {
	Codewords int `json:"codewords"`
	Bytes     int `json:"bytes"`
}

type Correction struct {
	PPM *float64 `json:"ppm"`
}

func (h *Handler) statusHandler(w http.ResponseWriter, _ *http.Request) {
	st := h.tx.Status()
	writeJSON(w, http.StatusOK, Status{
		Initialized: st.Initialized,
		Serial:      st.Serial,
		GPIO:        st.GPIO,
		Device:      st.Device,
		TxDelayMS:   st.TxDelay.Milliseconds(),
		Correction:  st.Correction,
	})
}

func (h *Handler) transmitHandler(w http.ResponseWriter, req *http.Request) {
	var payload TransmitRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	words := payload.Codewords
	if payload.TestPage {
		words = encoder.TestPage()
	}
	if len(words) == 0 {
		http.Error(w, "no codewords", http.StatusBadRequest)
		return
	}

	n, err := h.tx.Send(words)
	if err != nil {
		h.transmitError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransmitResponse{Codewords: len(words), Bytes: n})
}

func (h *Handler) transmitError(w http.ResponseWriter, err error) {
	var (
		armErr  *sdrtx.ArmError
		playErr *sdrtx.PlayError
	)
	switch {
	case errors.Is(err, sdrtx.ErrUninitialized):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &armErr), errors.As(err, &playErr):
		h.log.Error("transmit failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.log.Error("transmit failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) getCorrectionHandler(w http.ResponseWriter, _ *http.Request) {
	ppm := h.tx.Correction()
	writeJSON(w, http.StatusOK, Correction{PPM: &ppm})
}

func (h *Handler) putCorrectionHandler(w http.ResponseWriter, req *http.Request) {
	var payload Correction
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.PPM == nil {
		http.Error(w, "missing ppm", http.StatusBadRequest)
		return
	}

	h.tx.SetCorrection(*payload.PPM)
	h.getCorrectionHandler(w, req)
}

func (h *Handler) reloadHandler(w http.ResponseWriter, req *http.Request) {
	if h.reload == nil {
		http.Error(w, "reload not supported", http.StatusNotImplemented)
		return
	}
	if err := h.reload(); err != nil {
		h.log.Error("reload failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.statusHandler(w, req)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
