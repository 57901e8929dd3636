package connection

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Prober answers whether the backend host is reachable at all.
// Probe never fails; a false result means offline, timed out or unreachable.
type Prober interface {
	Probe(ctx context.Context, timeout time.Duration) bool
}

// HTTPProber sends a HEAD request to the probe URL and falls back to a raw
// TCP dial. Any HTTP response counts as reachable, including error statuses.
type HTTPProber struct {
	target  *url.URL
	client  *http.Client
	dialer  *net.Dialer
	network NetworkStatus
	logger  zerolog.Logger
}

// NewHTTPProber creates a prober for probeURL. A nil client uses a
// client that does not follow redirects.
func NewHTTPProber(probeURL string, client *http.Client, network NetworkStatus, logger zerolog.Logger) (*HTTPProber, error) {
	target, err := url.Parse(probeURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &HTTPProber{
		target:  target,
		client:  client,
		dialer:  &net.Dialer{},
		network: network,
		logger:  logger,
	}, nil
}

// Probe reports whether the probe URL answers within timeout. It returns
// false without any I/O while the device is offline.
func (p *HTTPProber) Probe(ctx context.Context, timeout time.Duration) bool {
	if p.network != nil && !p.network.Online() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.target.String(), nil)
	if err == nil {
		resp, err := p.client.Do(req)
		if err == nil {
			resp.Body.Close()
			return true
		}
		p.logger.Debug().Err(err).Msg("HEAD probe failed, trying dial")
	}

	if ctx.Err() != nil {
		return false
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", p.hostPort())
	if err != nil {
		p.logger.Debug().Err(err).Msg("Dial probe failed")
		return false
	}
	conn.Close()
	return true
}

func (p *HTTPProber) hostPort() string {
	if p.target.Port() != "" {
		return p.target.Host
	}
	port := "80"
	if p.target.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(p.target.Hostname(), port)
}
