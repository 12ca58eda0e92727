// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clearance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"

	"github.com/xtekky/deepseek4free/lib/apierror"
	"github.com/xtekky/deepseek4free/lib/clock"
	"github.com/xtekky/deepseek4free/lib/netutil"
)

// Defaults for ServiceRefresher.
const (
	DefaultServiceURL      = "http://localhost:8000"
	DefaultServiceAttempts = 5
	DefaultServiceInterval = 5 * time.Second
)

// ServiceRefresher fetches snapshots from the browser-automation
// service: GET {ServiceURL}/cookies?url={Target} returning
// {"cookies": {...}, "user_agent": "..."}.
//
// Connection failures are retried (the service is often still starting
// when the first refresh is needed). An HTTP error from the service is
// not: it means the browser could not solve the challenge.
type ServiceRefresher struct {
	// ServiceURL is the service root. Default DefaultServiceURL.
	ServiceURL string

	// Target is the page the browser should clear. Private, loopback,
	// and non-HTTP targets are refused.
	Target string

	// Proxy, when set, is passed to the service for the browser to use.
	Proxy string

	// Attempts bounds connection attempts. Default 5.
	Attempts int

	// Interval separates connection attempts. Default 5s.
	Interval time.Duration

	// HTTPClient talks to the service. Nil uses a plain client with
	// no timeout: solving a challenge takes several seconds.
	HTTPClient *http.Client

	Clock  clock.Clock
	Logger *slog.Logger
}

// Refresh asks the service for a fresh snapshot. Every failure is an
// *apierror.Error of kind KindCookieRefresh.
func (refresher *ServiceRefresher) Refresh(ctx context.Context) (Snapshot, error) {
	if err := CheckTarget(refresher.Target); err != nil {
		return Snapshot{}, apierror.Wrap(apierror.KindCookieRefresh, err, "refusing clearance target")
	}

	requestURL, err := refresher.requestURL()
	if err != nil {
		return Snapshot{}, apierror.Wrap(apierror.KindCookieRefresh, err, "building clearance service URL")
	}

	attempts := refresher.Attempts
	if attempts <= 0 {
		attempts = DefaultServiceAttempts
	}
	interval := refresher.Interval
	if interval <= 0 {
		interval = DefaultServiceInterval
	}
	clk := refresher.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := refresher.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("refreshing clearance cookies", "service", refresher.serviceURL(), "target", refresher.Target)
	start := clk.Now()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		snapshot, retry, err := refresher.fetch(ctx, requestURL)
		if err == nil {
			logger.Info("clearance cookies refreshed",
				"cookies", snapshot.Names(),
				"clearance", snapshot.HasClearance(),
				"duration", clk.Now().Sub(start),
			)
			return snapshot, nil
		}
		lastErr = err
		if !retry || attempt == attempts {
			break
		}

		logger.Warn("clearance service unreachable, retrying",
			"attempt", attempt,
			"attempts", attempts,
			"interval", interval,
			"error", err,
		)
		if err := clock.Sleep(ctx, clk, interval); err != nil {
			return Snapshot{}, apierror.Wrap(apierror.KindCookieRefresh, err, "waiting for clearance service")
		}
	}
	return Snapshot{}, lastErr
}

func (refresher *ServiceRefresher) serviceURL() string {
	if refresher.ServiceURL == "" {
		return DefaultServiceURL
	}
	return strings.TrimRight(refresher.ServiceURL, "/")
}

func (refresher *ServiceRefresher) requestURL() (string, error) {
	base, err := url.Parse(refresher.serviceURL() + "/cookies")
	if err != nil {
		return "", err
	}
	query := url.Values{"url": {refresher.Target}}
	if refresher.Proxy != "" {
		query.Set("proxy", refresher.Proxy)
	}
	base.RawQuery = query.Encode()
	return base.String(), nil
}

// fetch performs one request. retry reports whether the failure was a
// connection-level one worth another attempt.
func (refresher *ServiceRefresher) fetch(ctx context.Context, requestURL string) (snapshot Snapshot, retry bool, err error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Snapshot{}, false, apierror.Wrap(apierror.KindCookieRefresh, err, "building clearance request")
	}
	request.Header.Set("accept", "application/json")

	client := refresher.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	response, err := client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return Snapshot{}, false, apierror.Wrap(apierror.KindCookieRefresh, ctx.Err(), "clearance request cancelled")
		}
		return Snapshot{}, true, apierror.Wrap(apierror.KindCookieRefresh, err, "contacting clearance service")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body := netutil.ReadPrefix(response.Body, netutil.MaxPrefixSize)
		return Snapshot{}, false, &apierror.Error{
			Kind:       apierror.KindCookieRefresh,
			StatusCode: response.StatusCode,
			Body:       apierror.Snippet(serviceDetail(body)),
			Message:    "clearance service failed",
		}
	}

	var payload struct {
		Cookies   map[string]string `json:"cookies"`
		UserAgent string            `json:"user_agent"`
	}
	if err := netutil.DecodeResponse(response.Body, &payload); err != nil {
		return Snapshot{}, false, apierror.Wrap(apierror.KindCookieRefresh, err, "decoding clearance response")
	}
	if len(payload.Cookies) == 0 {
		return Snapshot{}, false, apierror.New(apierror.KindCookieRefresh, "clearance service returned no cookies")
	}
	return Snapshot{Cookies: payload.Cookies, UserAgent: payload.UserAgent}, false, nil
}

// serviceDetail extracts {"detail": "..."} from an error body, falling
// back to the raw first line.
func serviceDetail(body []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return envelope.Detail
	}
	return netutil.FirstLine(body)
}

// CheckTarget rejects clearance targets the browser must never be
// pointed at: non-HTTP schemes, localhost, and loopback, private,
// link-local, or unspecified addresses.
func CheckTarget(target string) error {
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parsing target: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("target %q must be an http or https URL", target)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("target %q has no host", target)
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return errors.New("target must not be localhost")
	}
	if address, err := netip.ParseAddr(host); err == nil {
		if address.IsLoopback() || address.IsPrivate() || address.IsUnspecified() ||
			address.IsLinkLocalUnicast() || address.IsLinkLocalMulticast() {
			return fmt.Errorf("target address %s is not public", address)
		}
	}
	return nil
}
