// Package web provides the admission webhook and API handlers for manifestgate.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/kubegov/manifestgate/internal/manifest"
	"github.com/kubegov/manifestgate/internal/metrics"
	"github.com/kubegov/manifestgate/internal/policy"
	"github.com/kubegov/manifestgate/internal/store"
	"github.com/kubegov/manifestgate/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
)

//go:embed templates/decisions.html
var templateFS embed.FS

var decisionsTmpl = template.Must(template.ParseFS(templateFS, "templates/decisions.html"))

const maxReviewBody = 4 << 20 // admission payloads beyond this are rejected

// Handler serves the validating admission endpoint and keeps a bounded
// ring of recent decisions for the API and UI.
type Handler struct {
	Engine    *policy.Engine
	Collector *metrics.Collector
	Tracer    trace.Tracer
	Log       *slog.Logger

	// WarnOnly admits everything and surfaces violations as warnings.
	WarnOnly bool
	// FailOpen admits requests that cannot be decoded or evaluated.
	FailOpen bool
	// OnResult, when set, receives every evaluated result.
	OnResult func(store.Result)

	mu     sync.Mutex
	recent []store.Result
}

const recentLimit = 200

// ValidateHandler handles AdmissionReview POSTs from the API server.
func (h *Handler) ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxReviewBody))
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		var review admissionv1.AdmissionReview
		if err := json.Unmarshal(body, &review); err != nil || review.Request == nil {
			h.Log.Warn("malformed admission review", "error", err)
			http.Error(w, "malformed AdmissionReview", http.StatusBadRequest)
			return
		}

		resp := h.decide(r, &review)
		review.Response = resp
		review.Request = nil

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(&review); err != nil {
			h.Log.Error("writing admission response", "error", err)
		}
	}
}

// decide evaluates the admission request's object against the active policy.
func (h *Handler) decide(r *http.Request, review *admissionv1.AdmissionReview) *admissionv1.AdmissionResponse {
	req := review.Request
	started := time.Now()

	m, err := manifest.ParseObject(req.Object.Raw)
	if err != nil {
		h.Log.Warn("undecodable admission object",
			"kind", req.Kind.Kind, "namespace", req.Namespace, "name", req.Name, "error", err)
		if h.FailOpen {
			return allowedResponse(req.UID, "manifestgate: object not decodable, admitted fail-open")
		}
		return deniedResponse(req.UID, fmt.Sprintf("manifestgate: object not decodable: %v", err))
	}

	_, span := telemetry.StartEvaluation(r.Context(), h.Tracer, m.Kind, m.Metadata.Namespace, m.Metadata.Name)
	defer span.End()

	decision := h.Engine.Evaluate(m, started)
	telemetry.RecordDecision(span, decision)
	if h.Collector != nil {
		h.Collector.ObserveDecision(m.Kind, decision, time.Since(started))
	}

	result := store.Result{
		Kind:      m.Kind,
		Namespace: m.Metadata.Namespace,
		Name:      m.Metadata.Name,
		Source:    "webhook",
		Decision:  decision,
	}
	h.record(result)

	if decision.Allowed {
		return allowedResponse(req.UID, "")
	}

	h.Log.Info("admission decision",
		"kind", m.Kind, "namespace", m.Metadata.Namespace, "name", m.Metadata.Name,
		"allowed", h.WarnOnly, "violations", len(decision.Violations))

	if h.WarnOnly {
		resp := allowedResponse(req.UID, "")
		for _, v := range decision.Violations {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("[%s] %s", v.Code, v.Message))
		}
		return resp
	}
	return deniedResponse(req.UID, denialMessage(decision.Violations))
}

func (h *Handler) record(result store.Result) {
	h.mu.Lock()
	h.recent = append(h.recent, result)
	if len(h.recent) > recentLimit {
		h.recent = h.recent[len(h.recent)-recentLimit:]
	}
	h.mu.Unlock()

	if h.OnResult != nil {
		h.OnResult(result)
	}
}

// Recent returns a copy of the recent decisions, newest last.
func (h *Handler) Recent() []store.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]store.Result, len(h.recent))
	copy(out, h.recent)
	return out
}

// DecisionsHandler returns recent admission decisions as JSON.
func (h *Handler) DecisionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := store.Snapshot{At: time.Now(), Results: h.Recent()}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// UIHandler serves the denials web UI, filtering to denied decisions only.
func (h *Handler) UIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		recent := h.Recent()

		var rows []decisionRow
		var critCount, warnCount int
		for i := len(recent) - 1; i >= 0; i-- { // newest first
			res := &recent[i]
			if res.Decision.Allowed {
				continue
			}
			for _, v := range res.Decision.Violations {
				switch v.Severity {
				case store.SeverityCritical:
					critCount++
				case store.SeverityWarn:
					warnCount++
				}
				rows = append(rows, decisionRow{
					Severity: string(v.Severity),
					SevClass: string(v.Severity),
					Code:     string(v.Code),
					Where:    formatWhere(res),
					Message:  v.Message,
					Owner:    v.Owner,
					Fix:      v.Fix,
				})
			}
		}

		data := pageData{
			Generated:     time.Now().UTC().Format(time.RFC3339),
			CriticalCount: critCount,
			WarnCount:     warnCount,
			Decisions:     rows,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := decisionsTmpl.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// HealthzHandler returns 200 with body "ok".
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok")) //nolint:errcheck // best-effort response
	}
}

type pageData struct {
	Generated     string
	Decisions     []decisionRow
	CriticalCount int
	WarnCount     int
}

type decisionRow struct {
	Severity string
	SevClass string
	Code     string
	Where    string
	Message  string
	Owner    string
	Fix      string
}

func formatWhere(r *store.Result) string {
	if r.Namespace != "" {
		return r.Kind + " " + r.Namespace + "/" + r.Name
	}
	return r.Kind + " " + r.Name
}

func denialMessage(violations []store.Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, fmt.Sprintf("[%s] %s", v.Code, v.Message))
	}
	return "manifestgate: " + strings.Join(parts, "; ")
}

func allowedResponse(uid types.UID, message string) *admissionv1.AdmissionResponse {
	resp := &admissionv1.AdmissionResponse{UID: uid, Allowed: true}
	if message != "" {
		resp.Result = &metav1.Status{Message: message}
	}
	return resp
}

func deniedResponse(uid types.UID, message string) *admissionv1.AdmissionResponse {
	return &admissionv1.AdmissionResponse{
		UID:     uid,
		Allowed: false,
		Result: &metav1.Status{
			Status:  metav1.StatusFailure,
			Reason:  metav1.StatusReasonForbidden,
			Message: message,
		},
	}
}
