// Package tools implements the five domain tools the router dispatches
// to. Each tool wraps its upstream API client in the shared resilience
// composition (cache, then circuit breaker, then retries) and degrades
// to indexed or empty answers instead of failing the whole question.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gridmind/gridmind/core"
)

// Station is one charging station from the alternative fuel stations API.
type Station struct {
	StationName      string   `json:"station_name"`
	StreetAddress    string   `json:"street_address"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	Zip              string   `json:"zip"`
	EVNetwork        string   `json:"ev_network"`
	EVConnectorTypes []string `json:"ev_connector_types"`
	EVDCFastNum      int      `json:"ev_dc_fast_num"`
	EVLevel2Num      int      `json:"ev_level2_evse_num"`
}

// RatePlan is one utility rate record from the utility rates database.
type RatePlan struct {
	Utility            string  `json:"utility"`
	Name               string  `json:"name"`
	Sector             string  `json:"sector"`
	AvgResidentialRate float64 `json:"avg_residential_rate"`
	AvgCommercialRate  float64 `json:"avg_commercial_rate"`
	HasTimeOfUse       bool    `json:"has_time_of_use"`
}

// SolarEstimate is the PVWatts production estimate for a system.
type SolarEstimate struct {
	SystemCapacityKW float64   `json:"system_capacity_kw"`
	ACAnnualKWh      float64   `json:"ac_annual_kwh"`
	ACMonthlyKWh     []float64 `json:"ac_monthly_kwh"`
	SolradAnnual     float64   `json:"solrad_annual"`
}

// Measure is one building efficiency measure from the component library.
type Measure struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// OptimizationOutcome is the settled result of one optimizer run.
type OptimizationOutcome struct {
	NPV             float64 `json:"npv"`
	PVSizeKW        float64 `json:"pv_size_kw"`
	StorageSizeKWh  float64 `json:"storage_size_kwh"`
	PaybackYears    float64 `json:"payback_years"`
	LifecycleCostUS float64 `json:"lifecycle_cost_usd"`
}

// StationAPI fetches charging stations by location.
type StationAPI interface {
	ByZip(ctx context.Context, zip string, limit int) ([]Station, error)
	ByState(ctx context.Context, state string, limit int) ([]Station, error)
}

// RateAPI fetches utility rate plans.
type RateAPI interface {
	ByZip(ctx context.Context, zip string) ([]RatePlan, error)
}

// SolarAPI estimates production for a system at a point.
type SolarAPI interface {
	Estimate(ctx context.Context, lat, lon, capacityKW float64) (*SolarEstimate, error)
}

// BuildingsAPI searches the measure library.
type BuildingsAPI interface {
	SearchMeasures(ctx context.Context, query string, limit int) ([]Measure, error)
}

// OptimizerAPI runs one energy system optimization. Runs are slow
// (minutes); implementations submit a job and poll.
type OptimizerAPI interface {
	Optimize(ctx context.Context, zip string, params map[string]interface{}) (*OptimizationOutcome, error)
}

// classifyHTTPError maps transport and status failures onto the core
// taxonomy. Retry and breaker behavior depends on this mapping.
func classifyHTTPError(err error, status int) error {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", core.ErrRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d", core.ErrRequestFailed, status)
	default:
		return fmt.Errorf("upstream returned status %d", status)
	}
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return classifyHTTPError(err, 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyHTTPError(nil, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// NRELStationClient talks to the alternative fuel stations API.
type NRELStationClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewStationClient creates a client for the stations API.
func NewStationClient(cfg core.APIConfig) *NRELStationClient {
	return &NRELStationClient{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: cfg.StationsBaseURL,
		apiKey:  cfg.NRELAPIKey,
	}
}

type stationsResponse struct {
	FuelStations []Station `json:"fuel_stations"`
}

func (c *NRELStationClient) ByZip(ctx context.Context, zip string, limit int) ([]Station, error) {
	params := url.Values{
		"api_key":   {c.apiKey},
		"zip":       {zip},
		"fuel_type": {"ELEC"},
		"limit":     {strconv.Itoa(limit)},
	}
	var out stationsResponse
	if err := getJSON(ctx, c.client, c.baseURL+".json?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out.FuelStations, nil
}

func (c *NRELStationClient) ByState(ctx context.Context, state string, limit int) ([]Station, error) {
	params := url.Values{
		"api_key":   {c.apiKey},
		"state":     {state},
		"fuel_type": {"ELEC"},
		"limit":     {strconv.Itoa(limit)},
	}
	var out stationsResponse
	if err := getJSON(ctx, c.client, c.baseURL+".json?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out.FuelStations, nil
}

// OpenEIRateClient talks to the utility rate database.
type OpenEIRateClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewRateClient creates a client for the rates API.
func NewRateClient(cfg core.APIConfig) *OpenEIRateClient {
	return &OpenEIRateClient{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: cfg.RatesBaseURL,
		apiKey:  cfg.NRELAPIKey,
	}
}

type ratesResponse struct {
	Items []struct {
		Utility     string  `json:"utility"`
		Name        string  `json:"name"`
		Sector      string  `json:"sector"`
		AvgRate     float64 `json:"avg_residential_rate"`
		AvgComRate  float64 `json:"avg_commercial_rate"`
		EnergyRates []struct {
			Period int `json:"period"`
		} `json:"energyratestructure"`
	} `json:"items"`
}

func (c *OpenEIRateClient) ByZip(ctx context.Context, zip string) ([]RatePlan, error) {
	params := url.Values{
		"version": {"latest"},
		"format":  {"json"},
		"api_key": {c.apiKey},
		"address": {zip},
		"detail":  {"full"},
		"limit":   {"5"},
	}
	var out ratesResponse
	if err := getJSON(ctx, c.client, c.baseURL+"?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	plans := make([]RatePlan, 0, len(out.Items))
	for _, item := range out.Items {
		plans = append(plans, RatePlan{
			Utility:            item.Utility,
			Name:               item.Name,
			Sector:             item.Sector,
			AvgResidentialRate: item.AvgRate,
			AvgCommercialRate:  item.AvgComRate,
			HasTimeOfUse:       len(item.EnergyRates) > 1,
		})
	}
	return plans, nil
}

// PVWattsClient talks to the solar production estimate API.
type PVWattsClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewSolarClient creates a client for the solar API.
func NewSolarClient(cfg core.APIConfig) *PVWattsClient {
	return &PVWattsClient{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: cfg.SolarBaseURL,
		apiKey:  cfg.NRELAPIKey,
	}
}

type pvwattsResponse struct {
	Outputs struct {
		ACAnnual     float64   `json:"ac_annual"`
		ACMonthly    []float64 `json:"ac_monthly"`
		SolradAnnual float64   `json:"solrad_annual"`
	} `json:"outputs"`
	Errors []string `json:"errors"`
}

func (c *PVWattsClient) Estimate(ctx context.Context, lat, lon, capacityKW float64) (*SolarEstimate, error) {
	params := url.Values{
		"api_key":         {c.apiKey},
		"lat":             {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":             {strconv.FormatFloat(lon, 'f', 4, 64)},
		"system_capacity": {strconv.FormatFloat(capacityKW, 'f', 1, 64)},
		"azimuth":         {"180"},
		"tilt":            {"20"},
		"array_type":      {"1"},
		"module_type":     {"1"},
		"losses":          {"14"},
	}
	var out pvwattsResponse
	if err := getJSON(ctx, c.client, c.baseURL+".json?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrRequestFailed, out.Errors[0])
	}
	return &SolarEstimate{
		SystemCapacityKW: capacityKW,
		ACAnnualKWh:      out.Outputs.ACAnnual,
		ACMonthlyKWh:     out.Outputs.ACMonthly,
		SolradAnnual:     out.Outputs.SolradAnnual,
	}, nil
}

// BCLClient talks to the building component library.
type BCLClient struct {
	client  *http.Client
	baseURL string
}

// NewBuildingsClient creates a client for the measure library.
func NewBuildingsClient(cfg core.APIConfig) *BCLClient {
	return &BCLClient{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: cfg.BuildingsBaseURL,
	}
}

type bclResponse struct {
	Result []struct {
		Measure struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			ModelerDesc string `json:"modeler_description"`
			Tags        string `json:"tags"`
		} `json:"measure"`
	} `json:"result"`
}

func (c *BCLClient) SearchMeasures(ctx context.Context, query string, limit int) ([]Measure, error) {
	params := url.Values{
		"fq[]":        {"bundle:measure"},
		"api_version": {"2.0"},
		"show_rows":   {strconv.Itoa(limit)},
	}
	rawURL := fmt.Sprintf("%s/search/%s.json?%s", c.baseURL, url.PathEscape(query), params.Encode())

	var out bclResponse
	if err := getJSON(ctx, c.client, rawURL, &out); err != nil {
		return nil, err
	}

	measures := make([]Measure, 0, len(out.Result))
	for _, r := range out.Result {
		measures = append(measures, Measure{
			Name:        r.Measure.Name,
			Description: r.Measure.Description,
			Category:    r.Measure.Tags,
		})
	}
	return measures, nil
}

// REoptClient talks to the energy system optimizer: submit a job, then
// poll until it settles. Optimizer runs take minutes, so the poll loop
// uses its own generous timeout rather than the per-request one.
type REoptClient struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewOptimizerClient creates a client for the optimizer API.
func NewOptimizerClient(cfg core.APIConfig) *REoptClient {
	return &REoptClient{
		client:       &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:      cfg.OptimizerBaseURL,
		apiKey:       cfg.NRELAPIKey,
		pollInterval: 10 * time.Second,
		pollTimeout:  cfg.OptimizerTimeout,
	}
}

type reoptSubmitResponse struct {
	RunUUID string `json:"run_uuid"`
}

type reoptResults struct {
	Status  string `json:"status"`
	Outputs struct {
		Financial struct {
			NPV           float64 `json:"npv"`
			PaybackYears  float64 `json:"simple_payback_years"`
			LifecycleCost float64 `json:"lcc"`
		} `json:"Financial"`
		PV struct {
			SizeKW float64 `json:"size_kw"`
		} `json:"PV"`
		Storage struct {
			SizeKWh float64 `json:"size_kwh"`
		} `json:"ElectricStorage"`
	} `json:"outputs"`
}

func (c *REoptClient) Optimize(ctx context.Context, zip string, params map[string]interface{}) (*OptimizationOutcome, error) {
	payload := map[string]interface{}{
		"Site":      map[string]interface{}{"zip": zip},
		"Financial": params,
		"PV":        map[string]interface{}{},
		"ElectricStorage": map[string]interface{}{
			"can_grid_charge": true,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	submitURL := fmt.Sprintf("%s/job?api_key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err, 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, classifyHTTPError(nil, resp.StatusCode)
	}
	var submitted reoptSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, fmt.Errorf("decoding submit response: %w", err)
	}
	if submitted.RunUUID == "" {
		return nil, fmt.Errorf("%w: optimizer returned no run id", core.ErrRequestFailed)
	}

	return c.poll(ctx, submitted.RunUUID)
}

func (c *REoptClient) poll(ctx context.Context, runUUID string) (*OptimizationOutcome, error) {
	deadline := time.Now().Add(c.pollTimeout)
	resultsURL := fmt.Sprintf("%s/job/%s/results?api_key=%s", c.baseURL, runUUID, url.QueryEscape(c.apiKey))

	for {
		var results reoptResults
		if err := getJSON(ctx, c.client, resultsURL, &results); err != nil {
			return nil, err
		}

		switch results.Status {
		case "optimal", "Optimal":
			return &OptimizationOutcome{
				NPV:             results.Outputs.Financial.NPV,
				PVSizeKW:        results.Outputs.PV.SizeKW,
				StorageSizeKWh:  results.Outputs.Storage.SizeKWh,
				PaybackYears:    results.Outputs.Financial.PaybackYears,
				LifecycleCostUS: results.Outputs.Financial.LifecycleCost,
			}, nil
		case "error", "infeasible":
			return nil, fmt.Errorf("%w: optimization ended with status %q", core.ErrRequestFailed, results.Status)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: optimization still %q after %v", core.ErrTimeout, results.Status, c.pollTimeout)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
