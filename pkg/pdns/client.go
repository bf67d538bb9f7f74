package pdns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbeacon/dnssync/pkg/breaker"
	"github.com/hostbeacon/dnssync/pkg/log"
	"github.com/hostbeacon/dnssync/pkg/metrics"
	"github.com/hostbeacon/dnssync/pkg/pool"
	"github.com/hostbeacon/dnssync/pkg/retry"
	"github.com/hostbeacon/dnssync/pkg/types"
)

// Config for the control-plane client
type Config struct {
	// URL is the base URL of the control-plane API
	URL string

	// APIKey is sent as the X-API-Key header
	APIKey string

	// ServerID is the control-plane server instance, normally "localhost"
	ServerID string

	// CallTimeout bounds a single HTTP request
	CallTimeout time.Duration

	// OperationDeadline bounds one operation including all retries
	OperationDeadline time.Duration
}

// Client performs typed zone and RRset operations against a PowerDNS-style
// control-plane HTTP API. Every operation acquires a pooled connection,
// passes the circuit breaker gate, runs under the retry policy, and
// releases the connection on all exit paths.
type Client struct {
	cfg     Config
	pool    *pool.Pool
	breaker *breaker.Breaker
	policy  *retry.Policy
	logger  zerolog.Logger
}

// New creates a client. The pool, breaker and retry policy are injected
// so tests can run isolated instances.
func New(cfg Config, p *pool.Pool, b *breaker.Breaker, policy *retry.Policy) *Client {
	if cfg.ServerID == "" {
		cfg.ServerID = "localhost"
	}
	return &Client{
		cfg:     cfg,
		pool:    p,
		breaker: b,
		policy:  policy,
		logger:  log.WithComponent("pdns"),
	}
}

// rrsetPatch is the wire shape for RRset mutations
type rrsetPatch struct {
	RRSets []types.RRSet `json:"rrsets"`
}

// createZoneRequest is the wire shape for zone creation
type createZoneRequest struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Nameservers []string `json:"nameservers"`
}

// GetZone fetches a zone including its RRsets
func (c *Client) GetZone(ctx context.Context, zone string) (*types.Zone, error) {
	var z types.Zone
	err := c.do(ctx, "get_zone", http.MethodGet, c.zonePath(zone), nil, &z)
	if err != nil {
		return nil, err
	}
	return &z, nil
}

// ZoneExists reports whether the zone exists on the control plane
func (c *Client) ZoneExists(ctx context.Context, zone string) (bool, error) {
	_, err := c.GetZone(ctx, zone)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateZone creates a Native zone with the given nameservers. Calling it
// on an existing zone with identical parameters is a no-op; mismatched
// parameters fail with a conflict.
func (c *Client) CreateZone(ctx context.Context, zone string, nameservers []string) error {
	existing, err := c.GetZone(ctx, zone)
	if err == nil {
		if existing.Kind == "Native" && sameNameservers(existing.Nameservers, nameservers) {
			return nil
		}
		return &Error{
			Kind:    KindConflict,
			Op:      "create_zone",
			Message: fmt.Sprintf("zone %s exists with different parameters", zone),
		}
	}
	if !IsNotFound(err) {
		return err
	}

	req := createZoneRequest{
		Name:        zone,
		Kind:        "Native",
		Nameservers: nameservers,
	}
	if err := c.do(ctx, "create_zone", http.MethodPost, c.zonesPath(), req, nil); err != nil {
		return err
	}

	c.logger.Info().Str("zone", zone).Strs("nameservers", nameservers).Msg("zone created")
	return nil
}

// UpsertRecord replaces the RRset for (zone, name, type) with a single
// record. REPLACE semantics make the call idempotent: repeating it leaves
// DNS state unchanged and never produces duplicate RRsets.
func (c *Client) UpsertRecord(ctx context.Context, zone, name, recordType string, ttl int, content string) error {
	patch := rrsetPatch{
		RRSets: []types.RRSet{
			{
				Name:       name,
				Type:       recordType,
				TTL:        ttl,
				ChangeType: types.ChangeTypeReplace,
				Records: []types.Record{
					{Content: content, Disabled: false},
				},
			},
		},
	}
	return c.do(ctx, "upsert_record", http.MethodPatch, c.zonePath(zone), patch, nil)
}

// DeleteRecord removes the RRset for (zone, name, type). Deleting a
// record that does not exist succeeds silently.
func (c *Client) DeleteRecord(ctx context.Context, zone, name, recordType string) error {
	patch := rrsetPatch{
		RRSets: []types.RRSet{
			{
				Name:       name,
				Type:       recordType,
				ChangeType: types.ChangeTypeDelete,
				Records:    []types.Record{},
			},
		},
	}
	return c.do(ctx, "delete_record", http.MethodPatch, c.zonePath(zone), patch, nil)
}

// do runs one operation under the operation deadline and retry policy
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OperationDeadline)
	defer cancel()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindInvalid, Op: op, Err: err}
		}
	}

	return c.policy.Do(ctx, func(ctx context.Context) error {
		return c.attempt(ctx, op, method, path, payload, out)
	})
}

// attempt performs a single gated, pooled HTTP call
func (c *Client) attempt(ctx context.Context, op, method, path string, payload []byte, out interface{}) error {
	if !c.breaker.Allow() {
		return &Error{Kind: KindUnavailable, Op: op, Message: "circuit breaker open"}
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		// Pool exhaustion counts as a backend-unavailable signal; it
		// also resolves a half-open probe admitted by Allow above
		c.breaker.OnFailure()
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	status, err := c.roundTrip(ctx, conn, method, path, payload, out)
	if err != nil {
		c.breaker.OnFailure()
		c.pool.Discard(conn)
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	if status >= 400 {
		kind := classifyStatus(status)
		if kind == KindUnavailable {
			c.breaker.OnFailure()
		} else {
			// The backend answered; 4xx means our request was wrong,
			// not that the dependency is unhealthy
			c.breaker.OnSuccess()
		}
		c.pool.Release(conn)
		return &Error{Kind: kind, Op: op, StatusCode: status,
			Message: fmt.Sprintf("%s %s returned %d", method, path, status)}
	}

	c.breaker.OnSuccess()
	c.pool.Release(conn)
	return nil
}

// roundTrip performs the HTTP exchange on a pooled connection, returning
// the response status. A non-nil error means the call never produced a
// response (timeout, connection reset).
func (c *Client) roundTrip(ctx context.Context, conn *pool.Conn, method, path string, payload []byte, out interface{}) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	timer := metrics.NewTimer()
	resp, err := conn.Client.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, method)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(method, "error").Inc()
		return 0, err
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("api request")

	if resp.StatusCode >= 400 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) zonesPath() string {
	return fmt.Sprintf("/api/v1/servers/%s/zones", c.cfg.ServerID)
}

func (c *Client) zonePath(zone string) string {
	return fmt.Sprintf("/api/v1/servers/%s/zones/%s", c.cfg.ServerID, url.PathEscape(zone))
}

// sameNameservers compares nameserver lists as sets
func sameNameservers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
