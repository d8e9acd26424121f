// Package classifier talks to the external ML services that classify complaint text,
// caption media and flag manipulated images or videos.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"civicconnect/internal/config"
	"civicconnect/internal/domain"
	"civicconnect/internal/models"
	"civicconnect/pkg/logger"
)

// Classification is the normalised answer of the text classifier.
type Classification struct {
	Department string  `json:"department"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"` // 0-100
}

// FakeReport is the verdict of the fake-media detector.
type FakeReport struct {
	IsFake bool    `json:"is_fake"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

// Gateway performs single-attempt calls with per-call timeouts. Every failure wraps
// domain.ErrClassificationUnavailable.
type Gateway struct {
	baseURL     string
	fakeURL     string
	textClient  *http.Client
	mediaClient *http.Client
}

// New builds a Gateway from configuration. Empty URLs disable the matching calls.
func New(cfg config.ClassifierConfig) *Gateway {
	return &Gateway{
		baseURL:     cfg.URL,
		fakeURL:     cfg.FakeDetectionURL,
		textClient:  &http.Client{Timeout: cfg.Timeout},
		mediaClient: &http.Client{Timeout: cfg.MediaTimeout},
	}
}

// FakeDetectionEnabled reports whether a fake-media detector is configured.
func (g *Gateway) FakeDetectionEnabled() bool {
	return g.fakeURL != ""
}

func unavailable(op string, err error) error {
	return fmt.Errorf("classifier %s: %w: %v", op, domain.ErrClassificationUnavailable, err)
}

// Classify predicts department, priority and confidence for complaint text.
func (g *Gateway) Classify(ctx context.Context, text string) (*Classification, error) {
	if g.baseURL == "" {
		return nil, unavailable("predict", fmt.Errorf("CLASSIFIER_URL not set"))
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, unavailable("predict", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, unavailable("predict", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Department string  `json:"department"`
		Priority   string  `json:"priority"`
		Confidence float64 `json:"confidence"`
	}
	if err := g.do(g.textClient, req, "predict", &out); err != nil {
		return nil, err
	}

	return &Classification{
		Department: out.Department,
		Priority:   models.NormalizePriority(out.Priority),
		Confidence: scaleConfidence(out.Confidence),
	}, nil
}

// Caption describes an image.
func (g *Gateway) Caption(ctx context.Context, filename string, image io.Reader) (string, error) {
	return g.describe(ctx, "/caption", "image", filename, image)
}

// AnalyzeVideo describes a video.
func (g *Gateway) AnalyzeVideo(ctx context.Context, filename string, video io.Reader) (string, error) {
	return g.describe(ctx, "/analyze_video", "video", filename, video)
}

func (g *Gateway) describe(ctx context.Context, path, field, filename string, r io.Reader) (string, error) {
	if g.baseURL == "" {
		return "", unavailable(path, fmt.Errorf("CLASSIFIER_URL not set"))
	}

	req, err := newMultipartRequest(ctx, g.baseURL+path, field, filename, r)
	if err != nil {
		return "", unavailable(path, err)
	}

	var out struct {
		Description string `json:"description"`
	}
	if err := g.do(g.mediaClient, req, path, &out); err != nil {
		return "", err
	}
	return out.Description, nil
}

// DetectFakeImage asks the fake-media detector about an image.
func (g *Gateway) DetectFakeImage(ctx context.Context, filename string, image io.Reader) (*FakeReport, error) {
	return g.detect(ctx, "/detect_fake_image", "image", filename, image)
}

// DetectFakeVideo asks the fake-media detector about a video.
func (g *Gateway) DetectFakeVideo(ctx context.Context, filename string, video io.Reader) (*FakeReport, error) {
	return g.detect(ctx, "/detect_fake_video", "video", filename, video)
}

func (g *Gateway) detect(ctx context.Context, path, field, filename string, r io.Reader) (*FakeReport, error) {
	if g.fakeURL == "" {
		return nil, unavailable(path, fmt.Errorf("FAKE_DETECTION_URL not set"))
	}

	req, err := newMultipartRequest(ctx, g.fakeURL+path, field, filename, r)
	if err != nil {
		return nil, unavailable(path, err)
	}

	var out FakeReport
	if err := g.do(g.mediaClient, req, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func newMultipartRequest(ctx context.Context, url, field, filename string, r io.Reader) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func (g *Gateway) do(client *http.Client, req *http.Request, op string, out interface{}) error {
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		logger.WithError(err).WithField("op", op).Warn("Classifier request failed")
		return unavailable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return unavailable(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable(op, fmt.Errorf("decode json: %w", err))
	}

	logger.LogPerformance("classifier "+op, time.Since(start), nil)
	return nil
}

// scaleConfidence maps a 0..1 probability onto 0..100 and clamps the result.
func scaleConfidence(c float64) float64 {
	if c > 0 && c <= 1 {
		c *= 100
	}
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}
