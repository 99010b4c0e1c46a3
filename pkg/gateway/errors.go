package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// apiError is the platform's problem-JSON error body.
type apiError struct {
	Status        int            `json:"status"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Errors        []string       `json:"errors,omitempty"`
	InvalidParams []paramProblem `json:"invalidParams,omitempty"`
	MissingParams []paramProblem `json:"missingParams,omitempty"`
	FieldErrors   []fieldError   `json:"fieldErrors,omitempty"`
}

type paramProblem struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
	Type   string `json:"type,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeAPIError maps a non-2xx response into a classified remote error.
// "Already in use" conflicts get their own code so certificate batches can
// record them per-entity and continue.
func decodeAPIError(status int, body []byte) *reconcile.ReconcileError {
	var problem apiError
	if err := json.Unmarshal(body, &problem); err != nil || problem.Title == "" {
		return remoteError(status, fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	}

	detail := problem.Title
	for _, p := range problem.InvalidParams {
		detail += fmt.Sprintf("; invalid %s (%s)", p.Name, p.Reason)
	}
	for _, p := range problem.MissingParams {
		detail += fmt.Sprintf("; missing %s", p.Name)
	}
	for _, f := range problem.FieldErrors {
		detail += fmt.Sprintf("; %s: %s (%s)", f.Field, f.Message, f.Code)
		if strings.EqualFold(f.Code, "ALREADY_IN_USE") {
			return reconcile.NewRemoteError(detail, nil).WithCode(reconcile.ErrCodeAlreadyInUse)
		}
	}
	for _, e := range problem.Errors {
		detail += "; " + e
		if strings.Contains(strings.ToLower(e), "already in use") {
			return reconcile.NewRemoteError(detail, nil).WithCode(reconcile.ErrCodeAlreadyInUse)
		}
	}

	return remoteError(status, detail)
}

func remoteError(status int, detail string) *reconcile.ReconcileError {
	err := reconcile.NewRemoteError(detail, nil)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return err.WithCode(reconcile.ErrCodeUnauthorized)
	case status == http.StatusNotFound:
		return err.WithCode(reconcile.ErrCodeNotFound)
	case status == http.StatusConflict:
		return err.WithCode(reconcile.ErrCodeAlreadyInUse)
	case status >= 400 && status < 500:
		return err.WithCode(reconcile.ErrCodeMalformedRequest)
	default:
		return err
	}
}
