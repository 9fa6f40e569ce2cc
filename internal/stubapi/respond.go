package stubapi

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/wishgift/api/transport"
)

// apiError is a handler failure mapped to an HTTP status.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func fail(status int, message string) *apiError {
	return &apiError{status: status, message: message}
}

var (
	errForbidden = fail(fasthttp.StatusForbidden, "access denied")
	errNotFound  = fail(fasthttp.StatusNotFound, "not found")
)

func respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func respondError(ctx *fasthttp.RequestCtx, status int, message string) {
	respondJSON(ctx, status, transport.NewError(message))
}

// respond writes payload or the error status when err is set.
func respond(ctx *fasthttp.RequestCtx, status int, payload interface{}, err *apiError) {
	if err != nil {
		respondError(ctx, err.status, err.message)
		return
	}
	if payload == nil {
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		return
	}
	respondJSON(ctx, status, payload)
}

func decodeBody(ctx *fasthttp.RequestCtx, dst interface{}) *apiError {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return fail(fasthttp.StatusBadRequest, "invalid request body")
	}
	return nil
}

func param(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}
