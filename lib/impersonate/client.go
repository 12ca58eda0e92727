// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impersonate

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	tlsclient "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// DefaultProfile is the fingerprint used when Options.Profile is empty.
const DefaultProfile = "chrome_133"

// DefaultUserAgent matches DefaultProfile. It is sent until a clearance
// refresh supplies the agent string of the browser that solved the
// challenge.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"

// Options configures NewClient.
type Options struct {
	// Profile names a tls-client profile, e.g. "chrome_133" or
	// "firefox_132". See Profiles.
	Profile string

	// Proxy is an optional http://, https://, or socks5:// URL.
	Proxy string

	// Logger receives transport diagnostics at Debug. Nil discards
	// them.
	Logger *slog.Logger
}

// Profiles returns the accepted profile names, sorted.
func Profiles() []string {
	return slices.Sorted(maps.Keys(profiles.MappedTLSClients))
}

// NewClient returns a fingerprinting client. TLS extension order is
// randomized the way current Chrome does.
func NewClient(options Options) (tlsclient.HttpClient, error) {
	name := options.Profile
	if name == "" {
		name = DefaultProfile
	}
	profile, ok := profiles.MappedTLSClients[name]
	if !ok {
		return nil, fmt.Errorf("impersonate: unknown profile %q", name)
	}

	clientOptions := []tlsclient.HttpClientOption{
		tlsclient.WithClientProfile(profile),
		tlsclient.WithTimeoutSeconds(0),
		tlsclient.WithRandomTLSExtensionOrder(),
	}
	if options.Proxy != "" {
		clientOptions = append(clientOptions, tlsclient.WithProxyUrl(options.Proxy))
	}

	var logger tlsclient.Logger = tlsclient.NewNoopLogger()
	if options.Logger != nil {
		logger = slogAdapter{logger: options.Logger.With("component", "transport")}
	}

	client, err := tlsclient.NewHttpClient(logger, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("impersonate: creating %s client: %w", name, err)
	}
	return client, nil
}

// slogAdapter routes tls-client's printf-style logging into slog. All
// of it lands at Debug except errors.
type slogAdapter struct {
	logger *slog.Logger
}

func (adapter slogAdapter) Debug(format string, args ...any) {
	adapter.logger.Debug(fmt.Sprintf(format, args...))
}

func (adapter slogAdapter) Info(format string, args ...any) {
	adapter.logger.Debug(fmt.Sprintf(format, args...))
}

func (adapter slogAdapter) Warn(format string, args ...any) {
	adapter.logger.Debug(fmt.Sprintf(format, args...))
}

func (adapter slogAdapter) Error(format string, args ...any) {
	adapter.logger.Error(fmt.Sprintf(format, args...))
}
