package thread

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/internal/extract"
	"tweetlens/test/fixtures"
)

func setup(t *testing.T, html string) (*Reconstructor, *dom.Document) {
	t.Helper()
	doc, err := dom.ParseString(html, "https://x.com/threadguy")
	require.NoError(t, err)

	cfg := config.Default()
	cls := classify.New(cfg)
	ext := extract.New(cfg, cls, &extract.NoopExpander{Doc: doc})
	return New(cfg, cls, ext), doc
}

// nthCell returns the n-th timeline cell of the document, 0-based.
func nthCell(doc *dom.Document, n int) *dom.Node {
	cells := doc.Root().AllByTestID("cellInnerDiv")
	if n >= len(cells) {
		return nil
	}
	return cells[n]
}

func TestDetect_MiddleOfThread_AssemblesFullSequence(t *testing.T) {
	// Arrange
	r, doc := setup(t, fixtures.Timeline(fixtures.ThreadCells("Thread Guy", "threadguy")...))
	anchor := nthCell(doc, 1)
	require.NotNil(t, anchor)

	// Act
	det := r.Detect(context.Background(), anchor)

	// Assert
	require.True(t, det.IsPartOfThread)
	require.NotNil(t, det.Thread)
	require.Len(t, det.Thread.Tweets, 3)

	for i, tw := range det.Thread.Tweets {
		assert.Equal(t, "threadguy", tw.Author.Handle, "homogeneity violated at %d", i)
		assert.True(t, tw.Thread.IsPartOfThread)
		assert.Equal(t, i+1, tw.Thread.Position)
		assert.Equal(t, 3, tw.Thread.TotalKnown)
	}
	assert.Equal(t, "9001", det.Thread.Tweets[0].ID)
	assert.Equal(t, "9003", det.Thread.Tweets[2].ID)
	assert.Equal(t, "threadguy", det.Thread.Author())
}

func TestDetect_WalkStopsAtDifferentAuthor(t *testing.T) {
	// Arrange - an unrelated tweet follows the thread
	cells := append(fixtures.ThreadCells("Thread Guy", "threadguy"),
		fixtures.TweetCell("Other Person", "otherperson", "9100", "unrelated reply"))
	r, doc := setup(t, fixtures.Timeline(cells...))
	anchor := nthCell(doc, 0)

	// Act
	det := r.Detect(context.Background(), anchor)

	// Assert
	require.True(t, det.IsPartOfThread)
	require.Len(t, det.Thread.Tweets, 3)
	for _, tw := range det.Thread.Tweets {
		assert.NotEqual(t, "otherperson", tw.Author.Handle)
	}
}

func TestDetect_SingleTweetWithMarker_NotAThread(t *testing.T) {
	// A lone "1/1" tweet has a marker signal but no second tweet; a
	// single tweet is never wrapped in a thread.
	r, doc := setup(t, fixtures.Timeline(
		fixtures.ConnectedTweetCell("Solo", "solo", "42", "complete thought 1/1"),
	))
	anchor := nthCell(doc, 0)

	det := r.Detect(context.Background(), anchor)

	assert.False(t, det.IsPartOfThread)
	assert.Nil(t, det.Thread)
}

func TestDetect_NoSignals_NotAThread(t *testing.T) {
	r, doc := setup(t, fixtures.Timeline(
		fixtures.TweetCell("Jane", "jane", "1", "standalone tweet"),
		fixtures.TweetCell("Jane", "jane", "2", "another standalone"),
	))
	anchor := nthCell(doc, 0)

	det := r.Detect(context.Background(), anchor)

	assert.False(t, det.IsPartOfThread, "adjacent same-author tweets without signals are not a thread")
}

func TestDetect_AnchorWithoutHandle_NotAThread(t *testing.T) {
	// Arrange - a name-only author region, no @handle, no permalink
	page := fixtures.Timeline(`
<div data-testid="cellInnerDiv">
  <article data-testid="tweet" role="article">
    <div data-testid="User-Name"><span>Nameless</span></div>
    <div data-testid="tweetText">part of something 1/3</div>
  </article>
</div>`)
	r, doc := setup(t, page)
	anchor := nthCell(doc, 0)

	// Act
	det := r.Detect(context.Background(), anchor)

	// Assert - without a handle the same-author invariant cannot hold
	assert.False(t, det.IsPartOfThread)
}

func TestDetect_MarkerTotalBeyondVisible_Preserved(t *testing.T) {
	// Arrange - only two of five tweets are rendered
	r, doc := setup(t, fixtures.Timeline(
		fixtures.ConnectedTweetCell("Thread Guy", "threadguy", "9001", "start 1/5"),
		fixtures.ConnectedTweetCell("Thread Guy", "threadguy", "9002", "more 2/5"),
	))
	anchor := nthCell(doc, 0)

	// Act
	det := r.Detect(context.Background(), anchor)

	// Assert
	require.True(t, det.IsPartOfThread)
	require.Len(t, det.Thread.Tweets, 2)
	assert.Equal(t, 5, det.Thread.Tweets[0].Thread.TotalKnown,
		"explicit marker total wins over visible count")
}

func TestFromHere_MiddleAnchor_ReturnsSuffixOnly(t *testing.T) {
	// Arrange
	r, doc := setup(t, fixtures.Timeline(fixtures.ThreadCells("Thread Guy", "threadguy")...))
	anchor := nthCell(doc, 1)

	// Act
	det := r.FromHere(context.Background(), anchor)

	// Assert - anchor plus everything after it, nothing before
	require.True(t, det.IsPartOfThread)
	require.Len(t, det.Thread.Tweets, 2)
	assert.Equal(t, "9002", det.Thread.Tweets[0].ID)
	assert.Equal(t, "9003", det.Thread.Tweets[1].ID)
}

func TestDetect_NilAnchor_Empty(t *testing.T) {
	r, _ := setup(t, fixtures.Timeline())

	det := r.Detect(context.Background(), nil)

	assert.False(t, det.IsPartOfThread)
}
