package cdc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	defaultAttempts         = 10
	defaultDelay            = 3 * time.Second
	defaultRequestTimeout   = 10 * time.Second
	connectorsPath          = "/connectors"
	maxErrorBodyBytes       = 512
	logMsgRegistered        = "cdc connector registered"
	logMsgAlreadyRegistered = "cdc connector already registered"
	logMsgRegistrationRetry = "cdc connector registration failed, retrying"
	logAttrConnector        = "connector"
	logAttrAttempt          = "attempt"
	logAttrError            = "error"
)

var ErrEmptyBaseURL = errors.New("kafka connect base url must not be empty")
var ErrInvalidAttempts = errors.New("attempts must be positive")
var ErrRegistrationRejected = errors.New("kafka connect rejected the connector")
var ErrRegistrationFailed = errors.New("registering connector failed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option defines a functional option for configuring Registrar.
type Option func(*Registrar) error

// WithHTTPClient replaces the default client with a 10s timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Registrar) error {
		r.client = client
		return nil
	}
}

// WithRetry sets how often and how far apart registration is attempted.
// Kafka Connect usually comes up after the generator, so the defaults wait for about half a minute.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(r *Registrar) error {
		if attempts == 0 {
			return ErrInvalidAttempts
		}

		r.attempts = attempts
		r.delay = delay

		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger shop.Logger) Option {
	return func(r *Registrar) error {
		r.logger = logger
		return nil
	}
}

// Registrar registers connectors with the Kafka Connect REST API.
type Registrar struct {
	baseURL  string
	client   *http.Client
	attempts uint
	delay    time.Duration
	logger   shop.Logger
}

// NewRegistrar creates a Registrar for the Kafka Connect instance at baseURL, e.g. http://debezium:8083.
func NewRegistrar(baseURL string, options ...Option) (*Registrar, error) {
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	r := &Registrar{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: defaultRequestTimeout},
		attempts: defaultAttempts,
		delay:    defaultDelay,
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register creates the connector. A connector that already exists (HTTP 409) is not an error.
// Transport errors and 5xx responses are retried, other 4xx responses fail immediately.
func (r *Registrar) Register(ctx context.Context, config ConnectorConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(config.Payload())
	if err != nil {
		return errors.Join(ErrRegistrationFailed, err)
	}

	var lastErr error

	err = retry.Do(
		func() error {
			lastErr = r.post(ctx, config.Name, body)
			if errors.Is(lastErr, ErrRegistrationRejected) {
				return retry.Unrecoverable(lastErr)
			}

			return lastErr
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			if r.logger != nil {
				r.logger.Warn(logMsgRegistrationRetry, logAttrConnector, config.Name, logAttrAttempt, n+1, logAttrError, err.Error())
			}
		}),
	)

	switch {
	case err == nil:
		return nil
	case lastErr != nil:
		return errors.Join(ErrRegistrationFailed, lastErr)
	default:
		return errors.Join(ErrRegistrationFailed, err)
	}
}

func (r *Registrar) post(ctx context.Context, name string, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+connectorsPath, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := r.client.Do(request)
	if err != nil {
		return err
	}
	defer func() { _ = response.Body.Close() }() // nothing left to report

	switch {
	case response.StatusCode == http.StatusCreated || response.StatusCode == http.StatusOK:
		if r.logger != nil {
			r.logger.Info(logMsgRegistered, logAttrConnector, name)
		}

		return nil

	case response.StatusCode == http.StatusConflict:
		if r.logger != nil {
			r.logger.Info(logMsgAlreadyRegistered, logAttrConnector, name)
		}

		return nil

	case response.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("kafka connect answered %d: %s", response.StatusCode, readSnippet(response.Body))

	default:
		return fmt.Errorf("%w: status %d: %s", ErrRegistrationRejected, response.StatusCode, readSnippet(response.Body))
	}
}

func readSnippet(body io.Reader) string {
	snippet, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	return strings.TrimSpace(string(snippet))
}
