package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/workflow"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Scope      workflow.Scope `json:"scope,omitempty"`
	StatusCode int            `json:"upstream_status,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeBusy           = "BUSY"
	CodeSuperseded     = "SUPERSEDED"
	CodePrecondition   = "PRECONDITION_FAILED"
	CodeUpstream       = "UPSTREAM_ERROR"
	CodeMalformed      = "MALFORMED_RESPONSE"
	CodeInternal       = "INTERNAL_ERROR"
)

// errorResponse maps a workflow error to a status code and body
func errorResponse(err error) (int, ErrorBody) {
	var (
		pe        *workflow.PreconditionError
		ue        *workflow.UpstreamError
		malformed *draft.MalformedResponseError
	)

	switch {
	case errors.Is(err, workflow.ErrBusy):
		return http.StatusConflict, ErrorBody{ErrorDetail{Code: CodeBusy, Message: err.Error()}}
	case errors.Is(err, workflow.ErrSuperseded):
		return http.StatusConflict, ErrorBody{ErrorDetail{Code: CodeSuperseded, Message: err.Error()}}
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, ErrorBody{ErrorDetail{Code: CodePrecondition, Message: pe.Reason, Scope: pe.Scope}}
	case errors.As(err, &malformed):
		return http.StatusBadGateway, ErrorBody{ErrorDetail{Code: CodeMalformed, Message: malformed.Reason, Scope: workflow.ScopeGenerate}}
	case errors.As(err, &ue):
		return http.StatusBadGateway, ErrorBody{ErrorDetail{Code: CodeUpstream, Message: ue.Message, Scope: ue.Scope, StatusCode: ue.StatusCode}}
	default:
		return http.StatusInternalServerError, ErrorBody{ErrorDetail{Code: CodeInternal, Message: err.Error()}}
	}
}

func writeError(c echo.Context, err error) error {
	status, body := errorResponse(err)
	return c.JSON(status, body)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorBody{ErrorDetail{Code: CodeInvalidRequest, Message: message}})
}
