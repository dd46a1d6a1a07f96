// Package lms reconciles a contract's client against the external LMS, the
// system of record for whether a student is still actively enrolled
// (spec.md SS4.6).
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/ierr"
)

// Record is what the reconciler returns for a located client.
type Record struct {
	EducationalStatus string
	// StatusChangeDate is the drop or certification date parsed from the
	// LMS record, civil-date truncated. Nil if the record carries neither
	// field or neither parses.
	StatusChangeDate *time.Time
}

// Client looks up a client's enrollment record in the LMS.
type Client interface {
	// FetchByExternalID fetches the page keyed by the LMS's own id for the
	// client. Returns (nil, nil) if no page exists for that id.
	FetchByExternalID(ctx context.Context, externalID string) (*Record, error)
	// FetchByEmail fetches the page keyed by the client's email, used when
	// no external id is linked yet. Returns (nil, nil) if none is found.
	FetchByEmail(ctx context.Context, email string) (*Record, error)
}

// HTTPConfig configures the default HTTP-backed Client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient is the production Client, talking to the LMS's page-query API
// over HTTP, in the style of the teacher's internal/httpclient.
type HTTPClient struct {
	cfg        HTTPConfig
	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient from cfg.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type lmsPage struct {
	Properties map[string]lmsProperty `json:"properties"`
}

type lmsProperty struct {
	Select *struct {
		Name string `json:"name"`
	} `json:"select"`
	Date *struct {
		Start string `json:"start"`
	} `json:"date"`
}

// educationalStatusField and the date fields are the LMS's select/date
// property names; the drop-date field takes precedence over the
// certification-date field when both are present (spec.md SS4.6).
const (
	educationalStatusField = "Educational Status"
	dropDateField           = "Drop Date"
	certificationDateField  = "Certification Date"
)

func (c *HTTPClient) FetchByExternalID(ctx context.Context, externalID string) (*Record, error) {
	return c.fetchPage(ctx, "/pages/"+externalID)
}

func (c *HTTPClient) FetchByEmail(ctx context.Context, email string) (*Record, error) {
	return c.fetchPage(ctx, "/pages?email="+email)
}

func (c *HTTPClient) fetchPage(ctx context.Context, path string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Please check the LMS base URL").
			Mark(ierr.ErrDependencyUnavailable)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The LMS did not respond").
			Mark(ierr.ErrDependencyUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed reading the LMS response").
			Mark(ierr.ErrDependencyUnavailable)
	}
	if resp.StatusCode >= 400 {
		return nil, ierr.NewError("lms request failed").
			WithReportableDetails(map[string]any{"status_code": resp.StatusCode, "body": string(body)}).
			Mark(ierr.ErrDependencyUnavailable)
	}

	var page lmsPage
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&page); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The LMS response was not valid JSON").
			Mark(ierr.ErrDependencyUnavailable)
	}
	return recordFromPage(page), nil
}

func recordFromPage(page lmsPage) *Record {
	rec := &Record{}
	if prop, ok := page.Properties[educationalStatusField]; ok && prop.Select != nil {
		rec.EducationalStatus = prop.Select.Name
	}

	if d := extractDate(page, dropDateField); d != nil {
		rec.StatusChangeDate = d
	} else if d := extractDate(page, certificationDateField); d != nil {
		rec.StatusChangeDate = d
	}
	return rec
}

func extractDate(page lmsPage, field string) *time.Time {
	prop, ok := page.Properties[field]
	if !ok || prop.Date == nil || prop.Date.Start == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", prop.Date.Start)
	if err != nil {
		return nil
	}
	return &parsed
}
