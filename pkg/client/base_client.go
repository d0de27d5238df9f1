package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
)

const maxBodySize = 4 << 20

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BaseClient sends single-shot requests through a circuit breaker. It never
// retries; every failure goes back to the caller classified.
type BaseClient struct {
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
}

type ClientConfig struct {
	Timeout        time.Duration
	Threshold      int
	BreakerTimeout time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// errServerStatus marks 5xx responses as breaker failures while still
// handing the response to the caller.
var errServerStatus = errors.New("server error status")

func NewBaseClient(name string, config ClientConfig, logger *zap.Logger) *BaseClient {
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}
	return newBaseClient(name, httpClient, config, logger)
}

func newBaseClient(name string, httpClient HTTPClient, config ClientConfig, logger *zap.Logger) *BaseClient {
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = 3
	}

	breakerSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(threshold) && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BaseClient{
		client:         httpClient,
		logger:         logger.With(zap.String("client", name)),
		circuitBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
	}
}

// Do executes req with ctx. Transport failures and an open breaker come back
// as apperr network errors, caller cancellation as apperr cancelled. Any HTTP
// status is returned as a Response for the caller to interpret.
func (c *BaseClient) Do(ctx context.Context, req *http.Request) (*Response, error) {
	requestID := ulid.Make().String()
	req = req.WithContext(ctx)
	req.Header.Set("X-Request-Id", requestID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	logger := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path))

	started := time.Now()
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("reading response body failed: %w", err)
		}

		out := &Response{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode >= 500 {
			return out, errServerStatus
		}
		return out, nil
	})

	if errors.Is(err, errServerStatus) {
		logger.Warn("Server error response",
			zap.Int("status", result.(*Response).StatusCode),
			zap.Duration("duration", time.Since(started)))
		return result.(*Response), nil
	}

	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			logger.Debug("Request cancelled", zap.Duration("duration", time.Since(started)))
			return nil, apperr.New(apperr.KindCancelled, ctxErr)
		}
		logger.Warn("HTTP request failed",
			zap.Duration("duration", time.Since(started)),
			zap.Error(err))
		return nil, apperr.New(apperr.KindNetwork, err)
	}

	resp := result.(*Response)
	logger.Debug("Request completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(resp.Body)),
		zap.Duration("duration", time.Since(started)))

	return resp, nil
}
