package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
	appLogger "github.com/fastygo/wishgift/pkg/logger"
)

const (
	HeaderRequestID = "X-Request-ID"
	bearerPrefix    = "Bearer "
)

// Client issues REST calls with a fixed credential. Clients are immutable;
// a credential change goes through Gateway.Configure.
type Client struct {
	baseURL   string
	token     string
	timeout   time.Duration
	transport *fasthttp.Client
	observers []ResponseObserver
	logger    *zap.Logger
}

// Authenticated reports whether requests carry an Authorization header.
func (c *Client) Authenticated() bool {
	return c != nil && c.token != ""
}

// StatusError is a non-2xx API response decoded from the uniform error body.
type StatusError struct {
	Status    int
	Message   string
	Timestamp time.Time
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr.Status
	}
	return 0
}

// MessageOf returns the server-provided message of err, or fallback.
func MessageOf(err error, fallback string) string {
	var sErr *StatusError
	if errors.As(err, &sErr) && sErr.Message != "" {
		return sErr.Message
	}
	return fallback
}

// BearerToken extracts the credential from an outgoing request, or "".
func BearerToken(req *fasthttp.Request) string {
	if req == nil {
		return ""
	}
	header := string(req.Header.Peek(fasthttp.HeaderAuthorization))
	if len(header) <= len(bearerPrefix) || header[:len(bearerPrefix)] != bearerPrefix {
		return ""
	}
	return header[len(bearerPrefix):]
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.ErrCodeNetwork, domain.MsgConnection, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	reqID := appLogger.RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.Set(HeaderRequestID, reqID)
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, bearerPrefix+c.token)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return domain.ErrInvalidPayload.Wrap(err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	log := c.logger.With(zap.String("method", method), zap.String("path", path), zap.String("request_id", reqID))

	err := c.transport.DoDeadline(req, resp, deadline)
	if err != nil {
		c.notify(req, nil, err)
		log.Warn("api request failed", zap.Error(err))
		return domain.WrapError(domain.ErrCodeNetwork, domain.MsgConnection, err)
	}
	c.notify(req, resp, nil)

	status := resp.StatusCode()
	log.Debug("api response", zap.Int("status", status))
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return decodeStatusError(status, resp.Body())
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "invalid response payload", err)
	}
	return nil
}

func (c *Client) notify(req *fasthttp.Request, resp *fasthttp.Response, err error) {
	for _, observer := range c.observers {
		observer(req, resp, err)
	}
}

func decodeStatusError(status int, body []byte) *StatusError {
	sErr := &StatusError{Status: status}
	var payload transport.ErrorResponse
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		sErr.Message = payload.Message
		sErr.Timestamp = payload.Timestamp
	}
	return sErr
}
