// Package handler exposes a single till over HTTP.
package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/till-checkout/internal/checkout"
	"github.com/xenking/till-checkout/internal/domain/product"
)

const maxScanBody = 1 << 10

// NewCheckoutFunc starts a new checkout session with an empty till.
type NewCheckoutFunc func() (*checkout.Checkout, error)

// Handler serves the scan, total and reset operations of one till lane. The
// lane has exactly one checkout at a time; reset replaces it.
type Handler struct {
	newCheckout NewCheckoutFunc

	mu      sync.Mutex
	current *checkout.Checkout

	scans  metric.Int64Counter
	totals metric.Int64Histogram
}

// New creates a Handler and opens the first checkout.
func New(newCheckout NewCheckoutFunc, mp metric.MeterProvider) (*Handler, error) {
	co, err := newCheckout()
	if err != nil {
		return nil, errors.Wrap(err, "new checkout")
	}

	meter := mp.Meter("github.com/xenking/till-checkout/internal/handler")
	scans, err := meter.Int64Counter("till.scans",
		metric.WithDescription("Scanned items by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "scans counter")
	}
	totals, err := meter.Int64Histogram("till.total",
		metric.WithDescription("Till totals in minor currency units"),
		metric.WithUnit("{minor_unit}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "totals histogram")
	}

	return &Handler{
		newCheckout: newCheckout,
		current:     co,
		scans:       scans,
		totals:      totals,
	}, nil
}

// Register adds the lane routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scan", h.Scan)
	mux.HandleFunc("GET /api/total", h.Total)
	mux.HandleFunc("POST /api/reset", h.Reset)
}

func (h *Handler) checkout() *checkout.Checkout {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.current
}

// scan records sku on the current checkout. The lock is held for the whole
// scan so a concurrent Reset cannot discard the till it lands on.
func (h *Handler) scan(ctx context.Context, sku string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.current.Scan(ctx, sku); err != nil {
		return 0, err
	}
	return h.current.Quantity(sku), nil
}

// Scan handles POST /api/scan with a {"sku": "..."} body.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sku, err := decodeScan(jx.Decode(http.MaxBytesReader(w, r.Body, maxScanBody), 256))
	if err != nil {
		h.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "bad_request")))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("till.sku", sku))

	qty, err := h.scan(ctx, sku)
	if err != nil {
		h.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", resultOf(err))))
		h.writeCheckoutError(ctx, w, err)
		return
	}
	h.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("sku", func(e *jx.Encoder) { e.Str(sku) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(qty) })
	})
}

// Total handles GET /api/total.
func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.checkout().TotalPrice(ctx)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	h.totals.Record(ctx, total)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("total", func(e *jx.Encoder) { e.Int64(total) })
	})
}

// Reset handles POST /api/reset by starting a new checkout.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	co, err := h.newCheckout()
	if err != nil {
		h.writeCheckoutError(r.Context(), w, err)
		return
	}

	h.mu.Lock()
	h.current = co
	h.mu.Unlock()

	zctx.From(r.Context()).Info("Checkout reset")
	w.WriteHeader(http.StatusNoContent)
}

func decodeScan(d *jx.Decoder) (string, error) {
	var sku string
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "sku" {
			return d.Skip()
		}
		var err error
		sku, err = d.Str()
		return err
	}); err != nil {
		return "", errors.Wrap(err, "decode scan request")
	}
	return sku, nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, checkout.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, product.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (h *Handler) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch resultOf(err) {
	case "invalid":
		writeError(w, http.StatusBadRequest, err.Error())
	case "not_found":
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zctx.From(ctx).Error("Checkout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
}

func writeJSON(w http.ResponseWriter, status int, fields func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(fields)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
