package detect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

// baselineDomainScore is the neutral prior for an unknown publisher.
const baselineDomainScore = 0.7

// maxPageBytes bounds how much of the article page gets parsed.
const maxPageBytes = 2 << 20

// ContextDetector rates an article by its surroundings: the ad load of the
// hosting page and the tonal gap between headline and body. Page fetching
// is optional; without it (or when the page is unreachable or disallowed
// by robots.txt) the ad signal stays neutral.
type ContextDetector struct {
	fetchPage  bool
	userAgent  string
	httpClient *http.Client

	mu     sync.RWMutex
	robots map[string]*robotstxt.RobotsData
}

// NewContextDetector creates a detector. fetchPage=false yields a purely
// local scorer.
func NewContextDetector(fetchPage bool, timeout time.Duration, userAgent string) *ContextDetector {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &ContextDetector{
		fetchPage:  fetchPage,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		robots:     make(map[string]*robotstxt.RobotsData),
	}
}

// Score computes the context sub-score in [0,1].
func (d *ContextDetector) Score(ctx context.Context, rawURL, title, text string) float64 {
	adsCount := 0
	if d.fetchPage && rawURL != "" {
		adsCount = d.countAdMarkers(ctx, rawURL)
	}
	adPenalty := min(1, float64(adsCount)/3)

	// Headline tone vs body tone. A screaming headline on a flat body is
	// the classic clickbait shape.
	gap := abs(float64(sentimentScore(title) - sentimentScore(text)))
	gapPenalty := min(1, gap/10)

	c := max(0, 1-0.6*adPenalty-0.4*gapPenalty) * baselineDomainScore
	return clampFloat(c, 0, 1)
}

// countAdMarkers fetches the page (robots.txt permitting) and counts
// ad-shaped nodes. Any failure counts as zero markers rather than failing
// the scoring request.
func (d *ContextDetector) countAdMarkers(ctx context.Context, rawURL string) int {
	if !d.allowedByRobots(ctx, rawURL) {
		return 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return 0
	}

	return doc.Find(`iframe, ins, .ads, [id*="ad"], [class*="ad"]`).Length()
}

func (d *ContextDetector) allowedByRobots(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	data, err := d.robotsData(ctx, parsed)
	if err != nil {
		// Unreachable robots.txt does not block the fetch.
		return true
	}
	return data.TestAgent(parsed.Path, d.userAgent)
}

func (d *ContextDetector) robotsData(ctx context.Context, page *url.URL) (*robotstxt.RobotsData, error) {
	d.mu.RLock()
	data, ok := d.robots[page.Host]
	d.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", page.Scheme, page.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.robots[page.Host] = data
	d.mu.Unlock()
	return data, nil
}
