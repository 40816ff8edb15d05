package http

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"pennywise/internal/calculator"
	"pennywise/internal/core"
	"pennywise/internal/log"
)

const maxKeysPerRequest = 256

// calculatorRequest carries the client's last state and the keys pressed
// since. A missing state starts a fresh session.
type calculatorRequest struct {
	State *calculator.State `json:"state,omitempty"`
	Keys  []string          `json:"keys"`
}

type calculatorResponse struct {
	State calculator.State `json:"state"`
	Value float64          `json:"value"`
	// Amount is Value rounded to cents, empty when it is not a valid
	// expense amount.
	Amount string `json:"amount,omitempty"`
}

// handleCalculatorKeys handles POST /api/calculator/keys. The server keeps
// no session: the state travels with every request.
func (s *Server) handleCalculatorKeys(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.keys")
	defer span.End()

	var req calculatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondError(w, r, "calculator", err)
		return
	}
	if len(req.Keys) > maxKeysPerRequest {
		span.SetStatus(codes.Error, "too many keys")
		writeError(w, r, http.StatusBadRequest, "too many keys in one request")
		return
	}
	keys, err := calculator.ParseKeys(req.Keys)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	state := calculator.Initial()
	if req.State != nil {
		state = *req.State
	}
	if err := state.Validate(s.engine.Limits()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	for _, k := range keys {
		state = s.engine.Apply(state, k)
		s.calc.keys.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", k.Kind.String())))
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	s.calc.duration.Record(ctx, elapsed)
	s.calc.sessions.Add(ctx, 1)

	resp := calculatorResponse{State: state, Value: s.engine.CurrentValue(state)}
	if m, err := core.MoneyFromFloat(resp.Value); err == nil {
		resp.Amount = m.String()
	}

	span.SetAttributes(
		attribute.Int("calculator.keys", len(keys)),
		attribute.Bool("calculator.has_error", state.HasError),
	)
	if state.HasError {
		s.calc.errors.Add(ctx, 1)
		span.AddEvent("calculator.error", trace.WithAttributes(attribute.String("message", state.ErrorMessage)))
		log.FromContext(ctx).WithComponent(log.ComponentCalculator).DebugContext(ctx, "Calculator entered error state",
			"message", state.ErrorMessage,
			"keys", len(keys))
	}
	span.SetStatus(codes.Ok, "")

	writeJSON(w, http.StatusOK, resp)
}
