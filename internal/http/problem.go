package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenantry/internal/auth"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/tenancy"
)

const problemContentType = "application/problem+json"

const problemTypeBase = "https://tenantry.dev/problems/"

// Problem is an RFC 7807 problem document.
//
// It carries no per-request fields, so two responses for the same error are
// byte-identical.
type Problem struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Status       int    `json:"status"`
	Detail       string `json:"detail,omitempty"`
	RequiredRole string `json:"required_role,omitempty"`
	ActualRole   string `json:"actual_role,omitempty"`
}

var (
	problemAccessDenied = Problem{
		Type:   problemTypeBase + "access-denied",
		Title:  "Access denied",
		Status: http.StatusForbidden,
		Detail: "You do not have access to this resource.",
	}
	problemUnauthenticated = Problem{
		Type:   problemTypeBase + "unauthenticated",
		Title:  "Unauthenticated",
		Status: http.StatusUnauthorized,
		Detail: "A valid bearer token is required.",
	}
	problemAssignmentNotFound = Problem{
		Type:   problemTypeBase + "role-assignment-not-found",
		Title:  "Role assignment not found",
		Status: http.StatusNotFound,
	}
	problemDuplicateAssignment = Problem{
		Type:   problemTypeBase + "duplicate-role-assignment",
		Title:  "Duplicate role assignment",
		Status: http.StatusConflict,
		Detail: "The user already holds a role on this tenant.",
	}
	problemNotFound = Problem{
		Type:   problemTypeBase + "not-found",
		Title:  "Not found",
		Status: http.StatusNotFound,
	}
	problemBadRequest = Problem{
		Type:   problemTypeBase + "bad-request",
		Title:  "Bad request",
		Status: http.StatusBadRequest,
	}
	problemInternal = Problem{
		Type:   problemTypeBase + "internal",
		Title:  "Internal server error",
		Status: http.StatusInternalServerError,
	}
)

// ErrBadRequest marks malformed client input. Wrap it to add a detail message.
var ErrBadRequest = errors.New("bad request")

// ProblemFor maps an error to its problem document. It is a pure function of
// the error's kind.
func ProblemFor(err error) Problem {
	var insufficient *authz.InsufficientRoleError

	switch {
	case errors.As(err, &insufficient):
		return Problem{
			Type:         problemTypeBase + "insufficient-role",
			Title:        "Insufficient role",
			Status:       http.StatusForbidden,
			Detail:       "Your role on this tenant does not permit this operation.",
			RequiredRole: insufficient.Required.String(),
			ActualRole:   insufficient.Actual.String(),
		}
	case errors.Is(err, authz.ErrAccessDenied), errors.Is(err, store.ErrTenantNotFound):
		return problemAccessDenied
	case errors.Is(err, auth.ErrUnauthenticated):
		return problemUnauthenticated
	case errors.Is(err, store.ErrRoleAssignmentNotFound):
		return problemAssignmentNotFound
	case errors.Is(err, store.ErrDuplicateRoleAssignment):
		return problemDuplicateAssignment
	case errors.Is(err, store.ErrAccountNotFound):
		return problemNotFound
	case errors.Is(err, ErrBadRequest):
		p := problemBadRequest
		p.Detail = err.Error()
		return p
	default:
		return problemInternal
	}
}

// WriteError writes the problem document for err. Server side failures are
// logged with the full error; the response never includes it.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	p := ProblemFor(err)

	logger := zerolog.Ctx(r.Context())
	switch {
	case errors.Is(err, tenancy.ErrContextNotSet):
		logger.Error().Err(err).Msg("tenant-scoped code ran without a tenant context")
	case p.Status >= http.StatusInternalServerError:
		logger.Error().Err(err).Msg("request failed")
	default:
		logger.Debug().Err(err).Int("status", p.Status).Msg("request rejected")
	}

	WriteProblem(w, p)
}

// WriteProblem serializes p with the problem content type.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", problemContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes v as a JSON response body with status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
