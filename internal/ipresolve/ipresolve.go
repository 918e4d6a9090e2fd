// Package ipresolve determines the public address a registration comes from.
package ipresolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"tiergate/lib/api/cont"
	"tiergate/lib/sl"
)

var ErrNoAddress = errors.New("no public address")

type Config struct {
	URL     string
	Timeout time.Duration
}

// Lookup asks an external echo service for the caller's public address.
// The service answers {"ip": "<address>"}.
type Lookup struct {
	hc  *http.Client
	url string
	log *slog.Logger
}

func NewLookup(cfg Config, logger *slog.Logger) *Lookup {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Lookup{
		hc:  &http.Client{Timeout: timeout},
		url: cfg.URL,
		log: logger.With(sl.Module("ipresolve.lookup")),
	}
}

func (l *Lookup) PublicIP(ctx context.Context) (string, error) {
	status := "ERROR"
	t1 := time.Now()
	defer func() {
		l.log.Debug("ip lookup completed",
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
			slog.String("status", status))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip lookup: %w", err)
	}
	defer resp.Body.Close()
	status = resp.Status

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ip lookup %s: %s", resp.Status, body)
	}

	var data struct {
		IP string `json:"ip"`
	}
	if err = json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decode ip lookup: %w", err)
	}
	addr, err := netip.ParseAddr(data.IP)
	if err != nil {
		return "", fmt.Errorf("ip lookup returned %q: %w", data.IP, err)
	}
	return addr.Unmap().String(), nil
}

type PublicIPSource interface {
	PublicIP(ctx context.Context) (string, error)
}

// Resolver prefers the peer address stored in the request context and asks
// the lookup service only when that address is missing or not public, which
// is the case on a developer machine or behind a private-network proxy.
type Resolver struct {
	lookup PublicIPSource
	log    *slog.Logger
}

func NewResolver(lookup PublicIPSource, logger *slog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		log:    logger.With(sl.Module("ipresolve")),
	}
}

func (r *Resolver) ResolveIP(ctx context.Context) (string, error) {
	if addr, ok := publicAddr(cont.GetClientIP(ctx)); ok {
		return addr, nil
	}
	if r.lookup == nil {
		return "", ErrNoAddress
	}
	ip, err := r.lookup.PublicIP(ctx)
	if err != nil {
		r.log.Warn("public ip lookup", sl.Err(err))
		return "", err
	}
	return ip, nil
}

// publicAddr parses a bare address or host:port and reports whether it is
// routable on the public internet.
func publicAddr(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		ap, perr := netip.ParseAddrPort(raw)
		if perr != nil {
			return "", false
		}
		addr = ap.Addr()
	}
	addr = addr.Unmap()
	if !addr.IsValid() || addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsUnspecified() || addr.IsMulticast() {
		return "", false
	}
	return addr.String(), true
}
