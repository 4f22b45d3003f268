package classify

import (
	"testing"

	"tweetlens/internal/dom"
	"tweetlens/test/fixtures"
)

func TestFindShowMore_QuoteTweet_ReturnsOuterControlOnly(t *testing.T) {
	// Arrange - both the outer tweet and its quote carry a show-more
	doc := parseFixture(t, fixtures.QuoteTweetPage())
	tweet := doc.Root().ByTestID("cellInnerDiv")
	cls := newClassifier()

	// Act
	control := cls.FindShowMore(tweet)

	// Assert - the quote's control is the quoted author's content
	if control == nil {
		t.Fatal("expected the outer show-more control")
	}
	if cls.InsideQuote(control, tweet) {
		t.Error("returned control belongs to the quoted tweet")
	}
}

func TestFindShowMore_OnlyQuoteHasControl_ReturnsNil(t *testing.T) {
	// Arrange
	doc := parseFixture(t, `
<article data-testid="tweet">
  <div data-testid="tweetText">short outer text</div>
  <div data-testid="quoteTweet">
    <button data-testid="tweet-text-show-more-link">Show more</button>
  </div>
</article>`)
	tweet := doc.Root().FindFirst(func(cur *dom.Node) bool { return cur.Tag() == "article" })

	// Act
	control := newClassifier().FindShowMore(tweet)

	// Assert
	if control != nil {
		t.Error("quote-nested control must never be returned for the outer tweet")
	}
}

func TestFindShowMore_TextLabelWithoutTestID_Found(t *testing.T) {
	// The control is also recognizable by its visible label alone.
	doc := parseFixture(t, `
<article data-testid="tweet">
  <div data-testid="tweetText">truncated…</div>
  <a href="/x/status/1" role="button">Show more</a>
</article>`)
	tweet := doc.Root().ByTestID("tweet")

	control := newClassifier().FindShowMore(tweet)

	if control == nil || control.Tag() != "a" {
		t.Error("expected the labeled anchor control")
	}
}

func TestFindShowLess_PresentAfterExpansion(t *testing.T) {
	doc := parseFixture(t, fixtures.ExpandedTweetPage())
	tweet := doc.Root().ByTestID("cellInnerDiv")
	cls := newClassifier()

	if cls.FindShowMore(tweet) != nil {
		t.Error("expanded tweet should have no show-more control")
	}
	if cls.FindShowLess(tweet) == nil {
		t.Error("expanded tweet should expose its show-less control")
	}
}

func TestInsideQuote_BoundaryItself_NotAQuote(t *testing.T) {
	// Arrange - classifying the quote container as its own boundary
	doc := parseFixture(t, fixtures.QuoteTweetPage())
	quote := doc.Root().ByTestID("quoteTweet")
	inner := quote.ByTestID("tweetText")
	cls := newClassifier()

	// Act / Assert
	if cls.InsideQuote(inner, quote) {
		t.Error("content of the boundary element itself is not quote-nested")
	}
	outer := doc.Root().ByTestID("cellInnerDiv")
	if !cls.InsideQuote(inner, outer) {
		t.Error("same content is quote-nested relative to the outer tweet")
	}
}
