package wellness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alzcare/alzcare/internal/platform/auth"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
)

// RiskSummary is the patient's current Alzheimer risk as reported by the
// main server.
type RiskSummary struct {
	MedicalRecordID uuid.UUID `json:"medical_record_id"`
	RiskScore       float64   `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
}

// RiskSource looks up a patient's current risk. A nil summary with a nil
// error means the patient has no medical record.
type RiskSource interface {
	CurrentRisk(ctx context.Context, patientID uuid.UUID) (*RiskSummary, error)
}

// BackendClient calls alzcare-server over HTTP, forwarding the caller's
// bearer token.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *telemetry.Metrics
}

func NewBackendClient(baseURL string, timeout time.Duration, metrics *telemetry.Metrics) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
}

type backendRecord struct {
	ID        uuid.UUID `json:"id"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel string    `json:"risk_level"`
}

func (c *BackendClient) CurrentRisk(ctx context.Context, patientID uuid.UUID) (summary *RiskSummary, err error) {
	defer func() { c.metrics.BackendRequest("current_risk", err) }()

	url := fmt.Sprintf("%s/api/v1/medical-records/patient/%s", c.baseURL, patientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	// Records arrive newest first.
	var records []backendRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &RiskSummary{
		MedicalRecordID: records[0].ID,
		RiskScore:       records[0].RiskScore,
		RiskLevel:       records[0].RiskLevel,
	}, nil
}
