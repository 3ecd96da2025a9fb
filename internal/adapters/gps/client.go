// Package gps consumes the third-party fleet-tracking provider. The feed is
// read-only: the provider owns the devices and the session, this package
// just normalizes its readings.
package gps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/pkg/metrics"
)

// coordScale converts the provider's integer microdegrees to decimal degrees.
const coordScale = 1e6

// Client implements ports.VehicleFeed against the provider's device-status
// endpoint. One HTTP call per device; calls are fanned out with a bounded
// number of workers.
type Client struct {
	baseURL       string
	session       string
	fleet         map[string]string // device number -> fleet number
	staleAfter    int               // seconds without a fix before a reading is stale
	maxConcurrent int
	http          *http.Client
	now           func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// NewClient creates a feed client. fleet maps GPS device numbers to the
// fleet numbers painted on the buses; only mapped devices are polled.
func NewClient(baseURL, session string, fleet map[string]string, staleAfter, maxConcurrent, timeoutSeconds int, opts ...Option) *Client {
	if staleAfter <= 0 {
		staleAfter = 100
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}
	c := &Client{
		baseURL:       baseURL,
		session:       session,
		fleet:         fleet,
		staleAfter:    staleAfter,
		maxConcurrent: maxConcurrent,
		http:          &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type deviceStatus struct {
	ID  string  `json:"id"`
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
	PS  string  `json:"ps"`
	GT  string  `json:"gt"`
	SP  float64 `json:"sp"`
	OL  int     `json:"ol"`
	HX  float64 `json:"hx"` // heading in degrees, 0 = north
	PK  int     `json:"pk"` // seconds since the last fix
}

type statusResponse struct {
	Result int            `json:"result"`
	Status []deviceStatus `json:"status"`
}

// FleetPositions polls every mapped device and returns the readings that
// came back. A device that fails or reports nothing is skipped; the caller
// decides what an empty fleet means.
func (c *Client) FleetPositions(ctx context.Context) ([]domain.VehiclePosition, error) {
	devices := make([]string, 0, len(c.fleet))
	for id := range c.fleet {
		devices = append(devices, id)
	}
	sort.Strings(devices)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		positions []domain.VehiclePosition
	)
	sem := make(chan struct{}, c.maxConcurrent)

	for _, device := range devices {
		wg.Add(1)
		go func(devID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			vp, err := c.devicePosition(ctx, devID)
			if err != nil {
				metrics.GPSDeviceErrors.WithLabelValues(devID).Inc()
				return
			}
			if vp == nil {
				return
			}
			mu.Lock()
			positions = append(positions, *vp)
			mu.Unlock()
		}(device)
	}
	wg.Wait()

	sort.Slice(positions, func(i, j int) bool { return positions[i].VehicleID < positions[j].VehicleID })
	return positions, nil
}

// devicePosition fetches one device. A nil position with nil error means the
// provider had no reading for it.
func (c *Client) devicePosition(ctx context.Context, devID string) (*domain.VehiclePosition, error) {
	u := fmt.Sprintf("%s/StandardApiAction_getDeviceStatus.action?jsession=%s&devIdno=%s&toMap=1",
		c.baseURL, url.QueryEscape(c.session), url.QueryEscape(devID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", devID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device %s: HTTP %d", devID, resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("device %s: decode: %w", devID, err)
	}
	if body.Result != 0 || len(body.Status) == 0 {
		return nil, nil
	}

	st := body.Status[0]
	fleetNo := c.fleet[devID]
	if fleetNo == "" {
		fleetNo = devID
	}

	return &domain.VehiclePosition{
		Time:      c.now().UTC(),
		VehicleID: fleetNo,
		DeviceID:  devID,
		Location: domain.GeoPoint{
			Lat: st.Lat / coordScale,
			Lon: st.Lng / coordScale,
		},
		Speed:   st.SP,
		Heading: st.HX,
		Online:  st.OL == 1,
		Stale:   st.PK > c.staleAfter,
	}, nil
}
