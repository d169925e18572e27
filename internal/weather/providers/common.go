package providers

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/address-forecast/internal/common"
	"github.com/i474232898/address-forecast/internal/weather"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 5 * time.Second
	defaultUserAgent      = "address-forecast/1.0"
)

// HTTPClientConfig bundles outbound transport settings shared by providers.
type HTTPClientConfig struct {
	ConnectTimeout time.Duration // dial + TLS handshake
	ReadTimeout    time.Duration // waiting for response headers
	UserAgent      string

	// SkipTLSVerify disables certificate verification. Only set from a
	// development configuration.
	SkipTLSVerify bool
}

// BreakerConfig controls when a provider circuit opens.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening (0 = 5)
	OpenTimeout time.Duration // open -> half-open (0 = 30s)
}

var (
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
	errCallerGone  = errors.New("request abandoned by caller")
)

// newRestyClient builds a client with bounded connect and read timeouts.
// No retries are configured.
func newRestyClient(cfg HTTPClientConfig, log *slog.Logger) *resty.Client {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = defaultConnectTimeout
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = defaultReadTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	if cfg.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // development only
	}

	return resty.New().
		SetTransport(transport).
		SetTimeout(connect+read).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: log})
}

func newCircuitBreaker(name string, cfg BreakerConfig, log *slog.Logger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A caller that cancels or times out says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed", "event", "circuit_state", "circuit", name, "from", from.String(), "to", to.String())
		},
	})
}

// doGet issues a single GET through the circuit breaker. Transport failures
// and 5xx responses count against the breaker, unless ctx itself was
// cancelled or expired. Any response that arrived is returned to the caller
// for status handling.
func doGet(
	ctx context.Context,
	client *resty.Client,
	cb *gobreaker.CircuitBreaker,
	url string,
	params map[string]string,
) (*resty.Response, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(url)
		if execErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, execErr)
			}
			return nil, execErr
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerError
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	if err != nil && !errors.Is(err, errServerError) {
		return nil, err
	}

	resp, ok := result.(*resty.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// classify maps a transport failure to ssl_error or timeout_or_network.
func classify(err error) weather.Code {
	if isTLSError(err) {
		return weather.CodeSSL
	}
	return weather.CodeNetwork
}

func isTLSError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &unknownAuthority),
		errors.As(err, &hostname),
		errors.As(err, &invalid),
		errors.As(err, &verification),
		errors.As(err, &recordHeader):
		return true
	}
	// The transport replaces the record header error when the peer speaks
	// plain HTTP.
	return common.ContainsAnyFold(err.Error(), "x509:", "tls: ", "certificate", "server gave http response to https client")
}

// transportDetail describes a failure for the logs.
func transportDetail(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), "event", "http_client")
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...), "event", "http_client")
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), "event", "http_client")
}
