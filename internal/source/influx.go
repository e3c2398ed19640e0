package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"gas_usage/internal/logger"
	"gas_usage/internal/models"
)

// Measurement and tag layout of the plant's InfluxDB 1.x database.
const (
	sensorMeasurement = "BD361-0"     // per-minute PLC units, tagged by "unit"
	gasMeasurement    = "energy_data" // meter readings, tagged type='gas'

	// Sparse event-like units (s_run stays 1 until it goes 0) are
	// densified server-side: LAST per minute, FILL(previous).
	minuteInterval = "1m"
)

// queryTimeout bounds one InfluxQL request. Long ranges over 1m bins are
// slow on the plant historian.
const queryTimeout = 10 * time.Minute

// Config holds the InfluxDB connection parameters.
type Config struct {
	Host            string
	Port            string
	Database        string
	RetentionPolicy string
	Username        string
	Password        string
	SSL             bool
}

// BaseURL renders the server root, e.g. http://localhost:8087.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, c.Host, c.Port)
}

func (c Config) retention() string {
	if c.RetentionPolicy == "" {
		return "autogen"
	}
	return c.RetentionPolicy
}

// InfluxClient implements RawSeriesSource over the InfluxDB 1.x HTTP
// query API (InfluxQL).
type InfluxClient struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewInfluxClient builds a client for the configured server.
func NewInfluxClient(cfg Config, log *logger.Logger) *InfluxClient {
	return &InfluxClient{
		cfg:    cfg,
		client: &http.Client{Timeout: queryTimeout},
		log:    log,
	}
}

// point is one decoded (time, value) pair.
type point struct {
	ts  time.Time
	val float64
}

// FetchMinutely fetches the given channels on a one-minute grid over
// [start, end). Each channel is densified with LAST + FILL(previous); the
// s_run channel is retried against its boolean field when the float field
// has no points. Channels that return nothing are simply absent from the
// frame.
func (c *InfluxClient) FetchMinutely(ctx context.Context, channels []string, start, end time.Time) (*models.MinuteFrame, error) {
	columns := make(map[string]map[int64]float64, len(channels))
	instants := make(map[int64]struct{})

	for _, name := range channels {
		pts, err := c.queryUnit(ctx, name, "value_f", start, end)
		if err != nil {
			return nil, err
		}
		if len(pts) == 0 && name == models.ChannelSRun {
			pts, err = c.queryUnit(ctx, name, "value_b", start, end)
			if err != nil {
				return nil, err
			}
		}
		if len(pts) == 0 {
			if c.log != nil {
				c.log.Debugw("channel returned no points", "unit", name)
			}
			continue
		}
		col := make(map[int64]float64, len(pts))
		for _, p := range pts {
			key := p.ts.Unix()
			if _, seen := col[key]; seen {
				continue // duplicate minute, first wins
			}
			col[key] = p.val
			instants[key] = struct{}{}
		}
		columns[name] = col
	}

	if len(columns) == 0 {
		return models.NewMinuteFrame(nil), nil
	}

	keys := make([]int64, 0, len(instants))
	for k := range instants {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	times := make([]time.Time, len(keys))
	for i, k := range keys {
		times[i] = time.Unix(k, 0).UTC()
	}

	frame := models.NewMinuteFrame(times)
	for name, col := range columns {
		vals := frame.MissingColumn()
		for i, k := range keys {
			if v, ok := col[k]; ok {
				vals[i] = v
			}
		}
		frame.SetColumn(name, vals)
	}
	return frame, nil
}

// FetchGasRaw fetches ungrouped gas-meter points over [start, end). No
// GROUP BY or aggregation is applied server-side.
func (c *InfluxClient) FetchGasRaw(ctx context.Context, start, end time.Time) ([]models.GasReading, error) {
	q := fmt.Sprintf(
		`SELECT "value" FROM %q.%q WHERE time >= '%s' AND time < '%s' AND "type"='gas'`,
		c.cfg.retention(), gasMeasurement, formatTime(start), formatTime(end),
	)
	pts, err := c.runQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	readings := make([]models.GasReading, 0, len(pts))
	for _, p := range pts {
		readings = append(readings, models.GasReading{Time: p.ts, Value: p.val})
	}
	return readings, nil
}

// queryUnit fetches one PLC unit densified onto the minute grid.
func (c *InfluxClient) queryUnit(ctx context.Context, unit, field string, start, end time.Time) ([]point, error) {
	q := fmt.Sprintf(
		`SELECT LAST(%q) AS "value" FROM %q.%q WHERE time >= '%s' AND time < '%s' AND "unit"='%s' GROUP BY time(%s) FILL(previous)`,
		field, c.cfg.retention(), sensorMeasurement,
		formatTime(start), formatTime(end), unit, minuteInterval,
	)
	return c.runQuery(ctx, q)
}

// influxResponse mirrors the /query JSON envelope.
type influxResponse struct {
	Results []struct {
		Series []struct {
			Name    string          `json:"name"`
			Columns []string        `json:"columns"`
			Values  [][]interface{} `json:"values"`
		} `json:"series"`
		Err string `json:"error"`
	} `json:"results"`
	Err string `json:"error"`
}

// runQuery executes one InfluxQL statement and decodes the first series.
// An empty result is not an error; transport and server failures wrap
// ErrUnavailable.
func (c *InfluxClient) runQuery(ctx context.Context, query string) ([]point, error) {
	params := url.Values{}
	params.Set("db", c.cfg.Database)
	params.Set("q", query)
	if c.cfg.Username != "" && c.cfg.Password != "" {
		params.Set("u", c.cfg.Username)
		params.Set("p", c.cfg.Password)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL()+"/query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: query returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded influxResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if decoded.Err != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, decoded.Err)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}
	result := decoded.Results[0]
	if result.Err != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, result.Err)
	}
	if len(result.Series) == 0 {
		return nil, nil
	}

	series := result.Series[0]
	timeIdx, valueIdx := -1, -1
	for i, col := range series.Columns {
		switch {
		case col == "time":
			timeIdx = i
		case valueIdx == -1:
			valueIdx = i
		}
	}
	if timeIdx == -1 || valueIdx == -1 {
		return nil, fmt.Errorf("%w: unexpected series columns %v", ErrUnavailable, series.Columns)
	}

	pts := make([]point, 0, len(series.Values))
	for _, row := range series.Values {
		if len(row) <= timeIdx || len(row) <= valueIdx {
			continue
		}
		ts, err := parseInfluxTime(row[timeIdx])
		if err != nil {
			continue
		}
		v, ok := coerceValue(row[valueIdx])
		if !ok {
			continue // FILL(previous) still yields nulls before the first point
		}
		pts = append(pts, point{ts: ts, val: v})
	}
	return pts, nil
}

// formatTime renders a timestamp for InfluxQL (RFC3339, UTC).
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func parseInfluxTime(raw interface{}) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("non-string time %v", raw)
	}
	return time.Parse(time.RFC3339, s)
}

// coerceValue normalizes a JSON cell to float64. Booleans map to 0/1 so
// the boolean s_run field behaves like its float twin.
func coerceValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if v == "true" {
			return 1, true
		}
		if v == "false" {
			return 0, true
		}
		return 0, false
	default:
		return 0, false
	}
}
