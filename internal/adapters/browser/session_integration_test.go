//go:build integration

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/test/fixtures"
)

// chromeContainer wraps a headless-shell instance with CDP exposed.
type chromeContainer struct {
	testcontainers.Container
	wsURL string
}

func startChrome(ctx context.Context) (*chromeContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "chromedp/headless-shell:latest",
		ExposedPorts: []string{"9222/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("DevTools listening").WithStartupTimeout(60*time.Second),
			wait.ForHTTP("/json/version").WithPort("9222/tcp").WithStartupTimeout(60*time.Second),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "9222")
	if err != nil {
		return nil, fmt.Errorf("mapped port: %w", err)
	}

	wsURL, err := debuggerURL(fmt.Sprintf("http://%s:%s/json/version", host, port.Port()))
	if err != nil {
		return nil, err
	}
	// Chrome reports its in-container address; rewrite to the mapped one.
	if idx := strings.Index(wsURL[len("ws://"):], "/"); idx >= 0 {
		wsURL = fmt.Sprintf("ws://%s:%s%s", host, port.Port(), wsURL[len("ws://")+idx:])
	}

	return &chromeContainer{Container: container, wsURL: wsURL}, nil
}

func debuggerURL(versionURL string) (string, error) {
	resp, err := http.Get(versionURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.WebSocketDebuggerURL, nil
}

// remoteTab opens a tab against the containerized Chrome.
func remoteTab(t *testing.T, wsURL string) context.Context {
	t.Helper()
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), wsURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		allocCancel()
		t.Fatalf("connect to chrome: %v", err)
	}
	t.Cleanup(func() {
		tabCancel()
		allocCancel()
	})
	return tabCtx
}

// fixtureURL serves a timeline fixture as a data URL so no network leaves
// the container.
func fixtureURL(cells ...string) string {
	page := fixtures.Timeline(cells...)
	return "data:text/html;charset=utf-8," + url.PathEscape(page)
}

func TestIntegration_Session_SnapshotOfLivePage_ClassifiesTweets(t *testing.T) {
	ctx := context.Background()

	chrome, err := startChrome(ctx)
	if err != nil {
		t.Fatalf("setup chrome: %v", err)
	}
	defer chrome.Terminate(ctx)

	session := NewSession(remoteTab(t, chrome.wsURL))
	page := fixtureURL(
		fixtures.TweetCell("Jane Doe", "janedoe", "100", "live snapshot test"),
		fixtures.TweetCell("John Roe", "johnroe", "101", "second tweet"),
	)
	if err := session.Navigate(ctx, page); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	doc, err := session.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// The parsed snapshot must survive the full round trip through a real
	// renderer and still classify.
	cls := classify.New(config.Default())
	articles := doc.Root().AllByTestID("tweet")
	if len(articles) != 2 {
		t.Fatalf("articles: got %d, want 2", len(articles))
	}
	for _, a := range articles {
		if res := cls.ClassifyTweet(a); !res.IsTweet {
			t.Errorf("article did not classify as tweet: %s", a.Path())
		}
	}
}

func TestIntegration_Session_Location_TracksTabURL(t *testing.T) {
	ctx := context.Background()

	chrome, err := startChrome(ctx)
	if err != nil {
		t.Fatalf("setup chrome: %v", err)
	}
	defer chrome.Terminate(ctx)

	session := NewSession(remoteTab(t, chrome.wsURL))
	page := fixtureURL(fixtures.TweetCell("Jane Doe", "janedoe", "100", "hello"))
	if err := session.Navigate(ctx, page); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	loc, err := session.Location(ctx)
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if !strings.HasPrefix(loc, "data:text/html") {
		t.Errorf("location: got %q", loc)
	}
}

func TestIntegration_Session_Scroll_DoesNotError(t *testing.T) {
	ctx := context.Background()

	chrome, err := startChrome(ctx)
	if err != nil {
		t.Fatalf("setup chrome: %v", err)
	}
	defer chrome.Terminate(ctx)

	session := NewSession(remoteTab(t, chrome.wsURL))
	page := fixtureURL(fixtures.TweetCell("Jane Doe", "janedoe", "100", "scroll target"))
	if err := session.Navigate(ctx, page); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	if err := session.Scroll(ctx); err != nil {
		t.Errorf("scroll: %v", err)
	}
}
