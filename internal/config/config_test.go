package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_ShippedSelectorSet(t *testing.T) {
	// Arrange / Act
	cfg := Default()
	sel := cfg.Selectors()
	h := cfg.Heuristics()

	// Assert - the hooks every consumer depends on
	if len(sel.TweetContainers) == 0 || sel.TweetContainers[0] != "tweet" {
		t.Errorf("tweet containers: got %v", sel.TweetContainers)
	}
	if sel.TweetText != "tweetText" {
		t.Errorf("tweet text testid: got %q", sel.TweetText)
	}
	if sel.TimelineCell != "cellInnerDiv" {
		t.Errorf("timeline cell testid: got %q", sel.TimelineCell)
	}
	if len(sel.ActionControls) != 4 {
		t.Errorf("action controls: got %v", sel.ActionControls)
	}
	if h.DebounceMS != 250 {
		t.Errorf("debounce: got %d", h.DebounceMS)
	}
	if h.BatchSize != 5 {
		t.Errorf("batch size: got %d", h.BatchSize)
	}
	if h.MaxRetries != 3 {
		t.Errorf("max retries: got %d", h.MaxRetries)
	}
}

func TestLoad_SparseFile_MergesOverDefaults(t *testing.T) {
	// Arrange - override only two values
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	content := `
selectors:
  tweet_text: customText
heuristics:
  debounce_ms: 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	// Act
	cfg, err := Load(path)

	// Assert
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sel := cfg.Selectors()
	if sel.TweetText != "customText" {
		t.Errorf("overridden selector: got %q", sel.TweetText)
	}
	if sel.UserName != "User-Name" {
		t.Errorf("unset selector must keep its default, got %q", sel.UserName)
	}
	h := cfg.Heuristics()
	if h.DebounceMS != 500 {
		t.Errorf("overridden heuristic: got %d", h.DebounceMS)
	}
	if h.BatchSize != 5 {
		t.Errorf("unset heuristic must keep its default, got %d", h.BatchSize)
	}
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_MalformedYAML_ReturnsError(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("selectors: [not: a map"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	// Act
	_, err := Load(path)

	// Assert
	if err == nil {
		t.Fatal("expected a parse error")
	}
}
