package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Stage endpoint paths on the enrichment service.
const (
	pathQuickCriteria    = "/generate-quick-criteria"
	pathEnhancedMetadata = "/generate-metadata"
	pathEnhancedFacts    = "/generate-food-facts"
)

// httpTimeout bounds a single stage call. Model-backed endpoints can take
// tens of seconds on a cold model, so this is deliberately generous.
const httpTimeout = 90 * time.Second

// HTTPEnricher calls a remote enrichment service that fronts the model.
// Each stage is a multipart POST carrying the photo and the accumulated
// text context.
type HTTPEnricher struct {
	baseURL    string
	httpClient *http.Client
}

var _ Enricher = (*HTTPEnricher)(nil)

// NewHTTPEnricher returns an enricher backed by the service at baseURL.
func NewHTTPEnricher(baseURL string) *HTTPEnricher {
	return &HTTPEnricher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// QuickCriteria implements Enricher.
func (e *HTTPEnricher) QuickCriteria(ctx context.Context, img Image, mealName, restaurant string) (*QuickCriteria, error) {
	fields := map[string]string{
		"meal_name":  mealName,
		"restaurant": restaurant,
	}
	var out QuickCriteria
	if err := e.postStage(ctx, pathQuickCriteria, img, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnhancedMetadata implements Enricher.
func (e *HTTPEnricher) EnhancedMetadata(ctx context.Context, img Image, mealName, restaurant, cuisineContext string) (*EnhancedMetadata, error) {
	fields := map[string]string{
		"meal_name":  mealName,
		"restaurant": restaurant,
		"cuisine":    cuisineContext,
	}
	var out EnhancedMetadata
	if err := e.postStage(ctx, pathEnhancedMetadata, img, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnhancedFacts implements Enricher.
func (e *HTTPEnricher) EnhancedFacts(ctx context.Context, img Image, qc QuickCriteria, md *EnhancedMetadata) (*EnhancedFacts, error) {
	criteria, err := json.Marshal(qc)
	if err != nil {
		return nil, fmt.Errorf("marshaling quick criteria: %w", err)
	}
	fields := map[string]string{
		"quick_criteria": string(criteria),
	}
	if md != nil {
		metadata, err := json.Marshal(md)
		if err != nil {
			return nil, fmt.Errorf("marshaling enhanced metadata: %w", err)
		}
		fields["metadata"] = string(metadata)
	}
	var out EnhancedFacts
	if err := e.postStage(ctx, pathEnhancedFacts, img, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// postStage sends one multipart stage request and decodes the JSON reply
// into out.
func (e *HTTPEnricher) postStage(ctx context.Context, path string, img Image, fields map[string]string, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := img.Filename
	if filename == "" {
		filename = "meal.jpg"
	}
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("creating photo part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("writing photo part: %w", err)
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("writing field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	// The multipart writer's content type carries the generated boundary.
	// Setting a bare "multipart/form-data" here would make the body
	// unparseable on the server side.
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("Enrichment service returned non-OK status")
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
