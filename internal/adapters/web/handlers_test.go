package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetlens/internal/domain"
	"tweetlens/internal/usecases"
)

type fakeScanner struct {
	result *usecases.ScanResult
	err    error
}

func (f *fakeScanner) ScanPage(ctx context.Context, url string, window time.Duration) (*usecases.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGetter struct {
	rec *domain.TweetRecord
	err error
}

func (f *fakeGetter) GetTweet(ctx context.Context, username, id string) (*domain.TweetRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeLister struct {
	tweets []*domain.TweetRecord
	err    error
}

func (f *fakeLister) RecentTweets(ctx context.Context, limit int) ([]*domain.TweetRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.tweets) {
		return f.tweets[:limit], nil
	}
	return f.tweets, nil
}

func newTestApp(h *Handlers) *fiber.App {
	app := fiber.New()
	SetupRoutes(app, h)
	return app
}

func TestScan_ValidRequest_ReturnsResult(t *testing.T) {
	// Arrange
	scanner := &fakeScanner{result: &usecases.ScanResult{
		URL: "https://x.com/home",
		Tweets: []*domain.TweetRecord{
			{ID: "1", Author: domain.Author{Handle: "usera"}, Text: "hello"},
		},
	}}
	h := NewHandlers(scanner, nil, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	body, _ := json.Marshal(map[string]any{"url": "https://x.com/home", "seconds": 10})
	req := httptest.NewRequest("POST", "/api/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp, err := app.Test(req, -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got usecases.ScanResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "https://x.com/home", got.URL)
	require.Len(t, got.Tweets, 1)
	assert.Equal(t, "1", got.Tweets[0].ID)
}

func TestScan_InvalidURL_Returns400(t *testing.T) {
	// Arrange
	h := NewHandlers(&fakeScanner{}, nil, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	body, _ := json.Marshal(map[string]any{"url": "https://example.com/not-the-host"})
	req := httptest.NewRequest("POST", "/api/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp, err := app.Test(req, -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestScan_MalformedBody_Returns400(t *testing.T) {
	// Arrange
	h := NewHandlers(&fakeScanner{}, nil, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	req := httptest.NewRequest("POST", "/api/scan", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp, err := app.Test(req, -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestScan_OverLimit_Returns429(t *testing.T) {
	// Arrange - a limiter that allows nothing
	h := NewHandlers(&fakeScanner{}, nil, nil, NewRateLimiter(0, time.Minute))
	app := newTestApp(h)

	body, _ := json.Marshal(map[string]any{"url": "https://x.com/home"})
	req := httptest.NewRequest("POST", "/api/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp, err := app.Test(req, -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestGetTweet_Found_ReturnsRecord(t *testing.T) {
	// Arrange
	getter := &fakeGetter{rec: &domain.TweetRecord{
		ID:     "20",
		Author: domain.Author{Name: "Jack", Handle: "jack"},
		Text:   "just setting up",
	}}
	h := NewHandlers(&fakeScanner{}, getter, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/api/tweet/jack/20", nil), -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got domain.TweetRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "20", got.ID)
	assert.Equal(t, "jack", got.Author.Handle)
}

func TestGetTweet_NotFound_Returns404(t *testing.T) {
	// Arrange
	h := NewHandlers(&fakeScanner{}, &fakeGetter{err: domain.ErrTweetNotFound}, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/api/tweet/jack/999", nil), -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestGetTweet_ScanTimeout_Returns504(t *testing.T) {
	// Arrange
	h := NewHandlers(&fakeScanner{}, &fakeGetter{err: context.DeadlineExceeded}, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/api/tweet/jack/20", nil), -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)
}

func TestListTweets_ArchiveConfigured_ReturnsTweets(t *testing.T) {
	// Arrange
	lister := &fakeLister{tweets: []*domain.TweetRecord{
		{ID: "2", Text: "newer"},
		{ID: "1", Text: "older"},
	}}
	h := NewHandlers(&fakeScanner{}, nil, lister, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/api/tweets?limit=1", nil), -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Tweets []*domain.TweetRecord `json:"tweets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tweets, 1)
	assert.Equal(t, "2", body.Tweets[0].ID)
}

func TestListTweets_NoArchive_Returns404(t *testing.T) {
	// Arrange
	h := NewHandlers(&fakeScanner{}, nil, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/api/tweets", nil), -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHealth_Returns200(t *testing.T) {
	// Arrange
	h := NewHandlers(&fakeScanner{}, nil, nil, NewRateLimiter(5, time.Minute))
	app := newTestApp(h)

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil), -1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimiter_WithinLimit_Allows(t *testing.T) {
	// Arrange
	rl := NewRateLimiter(2, time.Minute)

	// Act / Assert
	assert.True(t, rl.CanScan("1.2.3.4"))
	rl.RecordScan("1.2.3.4")
	assert.True(t, rl.CanScan("1.2.3.4"))
	rl.RecordScan("1.2.3.4")
	assert.False(t, rl.CanScan("1.2.3.4"), "third scan within the window must be blocked")

	// Other IPs are tracked independently.
	assert.True(t, rl.CanScan("5.6.7.8"))
}

func TestRateLimiter_WindowElapsed_AllowsAgain(t *testing.T) {
	// Arrange
	rl := NewRateLimiter(1, 30*time.Millisecond)
	rl.RecordScan("1.2.3.4")
	require.False(t, rl.CanScan("1.2.3.4"))

	// Act
	time.Sleep(50 * time.Millisecond)

	// Assert
	assert.True(t, rl.CanScan("1.2.3.4"), "old scans fall out of the window")
}
