package image

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"strings"
	"time"
)

// DefaultPollinationsURL is the public keyless endpoint
const DefaultPollinationsURL = "https://image.pollinations.ai"

// PollinationsService fetches images from Pollinations.ai
type PollinationsService struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewPollinationsService creates a service. Empty arguments use defaults.
func NewPollinationsService(baseURL, model string) *PollinationsService {
	if baseURL == "" {
		baseURL = DefaultPollinationsURL
	}
	if model == "" {
		model = "flux"
	}
	return &PollinationsService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Generate requests one image sized for aspect. The first attempt for a
// prompt always uses the same seed; retries move to a new one.
func (p *PollinationsService) Generate(ctx context.Context, prompt string, aspect style.AspectRatio, attempt int) ([]byte, error) {
	width, height := aspect.Size()

	imageURL := fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		p.baseURL, url.PathEscape(prompt), width, height, url.QueryEscape(p.model), Seed(prompt, attempt))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, failure.New(failure.Permanent, "pollinations", err)
	}
	req.Header.Set("User-Agent", "scenecast/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, failure.New(failure.Transient, "pollinations", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, failure.Newf(llm.KindForStatus(resp.StatusCode), "pollinations", "HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.New(failure.Transient, "pollinations", fmt.Errorf("failed to read response body: %w", err))
	}
	if ct := resp.Header.Get("Content-Type"); len(data) == 0 || (ct != "" && !strings.HasPrefix(ct, "image/")) {
		return nil, failure.Newf(failure.Empty, "pollinations", "no image payload (%d bytes, %s)", len(data), ct)
	}
	return data, nil
}

// Seed derives the Pollinations seed for prompt on the given attempt
func Seed(prompt string, attempt int) uint32 {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	if attempt > 1 {
		fmt.Fprintf(h, "#%d", attempt)
	}
	return h.Sum32() % 100000
}
