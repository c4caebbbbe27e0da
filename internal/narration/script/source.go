package script

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// maxSourceBytes bounds downloaded narration
const maxSourceBytes = 8 << 20

// Source loads narration text from a file path, an http(s) URL or "-"
// for stdin
type Source struct {
	httpClient *http.Client
	stdin      io.Reader
}

func NewSource() *Source {
	return &Source{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stdin:      os.Stdin,
	}
}

func (s *Source) Load(ctx context.Context, location string) (string, error) {
	switch {
	case location == "-":
		return readAll(s.stdin)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return s.fetch(ctx, location)
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", location, err)
		}
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
}

func (s *Source) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := readAll(resp.Body)
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"url":   url,
		"chars": len([]rune(text)),
	}).Info("Loaded narration")
	return text, nil
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSourceBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read narration: %w", err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
