package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryingClient decorates a Client with exponential backoff around the
// transient-failure-prone calls (query, describe), so a single dropped
// connection mid-operation doesn't abort an entire multi-step extraction
// or load. Bulk insert/update are not retried here: a partial bulk
// failure is a per-record result (§7 kind 4), not a transport error, and
// retrying a whole batch risks duplicate inserts.
type RetryingClient struct {
	Client
	logger            zerolog.Logger
	initialInterval   time.Duration
	maxElapsedTime    time.Duration
}

// NewRetryingClient wraps client with the default exponential backoff
// policy (500ms initial interval, 30s max elapsed time).
func NewRetryingClient(client Client, logger zerolog.Logger) *RetryingClient {
	return &RetryingClient{
		Client:          client,
		logger:          logger,
		initialInterval: 500 * time.Millisecond,
		maxElapsedTime:  30 * time.Second,
	}
}

func (c *RetryingClient) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = c.maxElapsedTime
	return backoff.WithContext(b, ctx)
}

func (c *RetryingClient) retry(ctx context.Context, call string, op func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil {
			c.logger.Warn().Str("call", call).Int("attempt", attempt).Err(err).Msg("transport call failed, retrying")
		}
		return err
	}, c.backOff(ctx))
}

func (c *RetryingClient) Query(ctx context.Context, soql string) ([]Row, error) {
	var rows []Row
	err := c.retry(ctx, "query", func() error {
		var err error
		rows, err = c.Client.Query(ctx, soql)
		return err
	})
	return rows, err
}

func (c *RetryingClient) QueryAll(ctx context.Context, soql string) ([]Row, error) {
	var rows []Row
	err := c.retry(ctx, "query_all", func() error {
		var err error
		rows, err = c.Client.QueryAll(ctx, soql)
		return err
	})
	return rows, err
}

func (c *RetryingClient) Describe(ctx context.Context, sobject string) ([]FieldDescriptor, error) {
	var fields []FieldDescriptor
	err := c.retry(ctx, "describe", func() error {
		var err error
		fields, err = c.Client.Describe(ctx, sobject)
		return err
	})
	return fields, err
}

func (c *RetryingClient) GlobalDescribe(ctx context.Context) ([]SObjectInfo, error) {
	var sobjects []SObjectInfo
	err := c.retry(ctx, "global_describe", func() error {
		var err error
		sobjects, err = c.Client.GlobalDescribe(ctx)
		return err
	})
	return sobjects, err
}
