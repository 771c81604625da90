package client

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// ProbeClient is the HTTP client every provider probe goes through, built on
// resty with one shared transport.
type ProbeClient struct {
	client *resty.Client
}

// NewProbeClient builds the probe client from transport-level configuration.
// The client-level timeout is the hard cap for a whole request; individual
// probes usually carry a tighter per-request deadline.
func NewProbeClient(cfg *config.Config) *ProbeClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.DialTimeout,
		}).DialContext,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}

	return &ProbeClient{
		client: resty.New().
			SetTransport(transport).
			SetHeader("Accept", "application/json").
			SetTimeout(cfg.RequestTimeout),
	}
}

// Probe performs one HTTP probe. Whenever the remote produced a response it
// is returned as data regardless of status code; transport failures come
// back as a *ProbeError classified by kind. A canceled parent context
// surfaces as the context's own error.
func (c *ProbeClient) Probe(ctx context.Context, req ProbeRequest) (*ProbeResponse, error) {
	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	request := c.client.R().
		SetContext(reqCtx).
		SetHeaders(req.Headers).
		SetQueryParams(req.Query)
	if req.Body != nil {
		request.SetBody(req.Body)
	}

	utils.Logger.Debug("probe start",
		zap.String("method", req.Method),
		zap.String("url", req.URL))

	start := time.Now()
	response, err := request.Execute(req.Method, req.URL)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		perr := classifyTransportError(err)
		utils.Logger.Warn("probe transport failure",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.String("kind", string(perr.Kind)),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, perr
	}

	body := strings.TrimSpace(response.String())
	logProbe(req.Method, response.Request.URL, response.StatusCode(), body, duration)

	return &ProbeResponse{
		StatusCode: response.StatusCode(),
		Body:       body,
		Duration:   duration,
	}, nil
}

// Auth rejections and throttles are routine outcomes of key validation, so
// they stay at debug; unexpected statuses get warnings.
func logProbe(method, url string, status int, body string, duration time.Duration) {
	if len(body) > 1000 {
		body = body[:1000] + "…"
	}
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", status),
		zap.Duration("duration", duration),
	}
	switch {
	case status == 401 || status == 403 || status == 429:
		utils.Logger.Debug("probe rejected", append(fields, zap.String("body", body))...)
	case status >= 500:
		utils.Logger.Warn("probe got server error", append(fields, zap.String("body", body))...)
	case status >= 400:
		utils.Logger.Warn("probe got client error", append(fields, zap.String("body", body))...)
	default:
		utils.Logger.Debug("probe completed", fields...)
	}
}

func classifyTransportError(err error) *ProbeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProbeError{Kind: ErrKindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProbeError{Kind: ErrKindTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ProbeError{Kind: ErrKindConnection, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ProbeError{Kind: ErrKindConnection, Err: err}
	}
	return &ProbeError{Kind: ErrKindNetwork, Err: err}
}
