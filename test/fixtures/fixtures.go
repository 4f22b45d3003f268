// Package fixtures provides HTML fixtures mimicking the host's timeline
// markup for testing the detection pipeline.
package fixtures

import (
	"fmt"
	"strings"
)

// Timeline wraps timeline cells in a full page document.
func Timeline(cells ...string) string {
	return `<!DOCTYPE html>
<html>
<head><title>Home / X</title></head>
<body>
<main>
<div class="timeline">
` + strings.Join(cells, "\n") + `
</div>
</main>
</body>
</html>`
}

// TweetCell builds one timeline cell holding a complete tweet: author
// region, avatar, timestamp, text, permalink and actions bar.
func TweetCell(name, handle, id, text string) string {
	return fmt.Sprintf(`
<div data-testid="cellInnerDiv">
  <article data-testid="tweet" role="article">
    <a href="/%[2]s">
      <div data-testid="Tweet-User-Avatar">
        <img src="https://pbs.example.com/%[2]s.jpg"/>
      </div>
    </a>
    <div data-testid="User-Name">
      <span>%[1]s</span>
      <span>@%[2]s</span>
      <a href="/%[2]s/status/%[3]s"><time datetime="2026-01-05T12:00:00Z">Jan 5</time></a>
    </div>
    <div data-testid="tweetText" dir="ltr">%[4]s</div>
    <div role="group" aria-label="12 replies, 4 reposts, 99 likes">
      <button data-testid="reply" aria-label="12 Replies. Reply"></button>
      <button data-testid="retweet" aria-label="4 reposts. Repost"></button>
      <button data-testid="like" aria-label="99 Likes. Like"></button>
      <button data-testid="bookmark" aria-label="Bookmark"></button>
    </div>
  </article>
</div>`, name, handle, id, text)
}

// ConnectedTweetCell is a TweetCell carrying the vertical connector line
// the host renders between consecutive same-author tweets.
func ConnectedTweetCell(name, handle, id, text string) string {
	cell := TweetCell(name, handle, id, text)
	return strings.Replace(cell,
		`<article data-testid="tweet" role="article">`,
		`<article data-testid="tweet" role="article">
    <div class="css-175oi2r r-1bnu78o connector"></div>`, 1)
}

// ThreadCells builds a three-tweet thread by one author, each tweet
// carrying an explicit "N/3" position marker and the connector line.
func ThreadCells(name, handle string) []string {
	return []string{
		ConnectedTweetCell(name, handle, "9001", "First, a claim. 1/3"),
		ConnectedTweetCell(name, handle, "9002", "Then, the evidence. 2/3"),
		ConnectedTweetCell(name, handle, "9003", "Finally, the point. 3/3"),
	}
}

// VerifiedTweetCell is a TweetCell whose author carries a verification badge.
func VerifiedTweetCell(name, handle, id, text string) string {
	cell := TweetCell(name, handle, id, text)
	return strings.Replace(cell,
		fmt.Sprintf(`<span>@%s</span>`, handle),
		fmt.Sprintf(`<span>@%s</span><svg data-testid="icon-verified" aria-label="Verified account"></svg>`, handle), 1)
}

// QuoteTweetPage builds a page with one tweet quoting another. Both the
// outer tweet and the quote carry their own show-more control so
// quote-boundary handling is observable.
func QuoteTweetPage() string {
	return `<!DOCTYPE html>
<html>
<head><title>Quote</title></head>
<body>
<div data-testid="cellInnerDiv">
  <article data-testid="tweet" role="article">
    <div data-testid="User-Name">
      <span>Quoter</span>
      <span>@quoter</span>
      <a href="/quoter/status/555"><time datetime="2026-01-06T08:00:00Z">Jan 6</time></a>
    </div>
    <div data-testid="tweetText" dir="ltr">Look at this take, truncated outer…</div>
    <button data-testid="tweet-text-show-more-link">Show more</button>
    <div data-testid="quoteTweet">
      <div data-testid="User-Name">
        <span>Original</span>
        <span>@original</span>
      </div>
      <div data-testid="tweetText" dir="ltr">The original hot take, also truncated…</div>
      <button data-testid="tweet-text-show-more-link">Show more</button>
      <a href="/original/status/444"><time datetime="2026-01-06T07:00:00Z">Jan 6</time></a>
    </div>
    <div role="group" aria-label="1 reply, 0 reposts, 3 likes">
      <button data-testid="reply" aria-label="1 Reply. Reply"></button>
      <button data-testid="like" aria-label="3 Likes. Like"></button>
    </div>
  </article>
</div>
</body>
</html>`
}

// TruncatedTweetPage builds a single-tweet page whose text is cut off
// behind a show-more control.
func TruncatedTweetPage() string {
	return Timeline(strings.Replace(
		TweetCell("Long Poster", "longposter", "7777", "The beginning of a very long story…"),
		`</div>
    <div role="group"`,
		`</div>
    <button data-testid="tweet-text-show-more-link">Show more</button>
    <div role="group"`, 1))
}

// ExpandedTweetPage is TruncatedTweetPage after expansion: full text,
// show-more gone, show-less present.
func ExpandedTweetPage() string {
	return Timeline(strings.Replace(
		TweetCell("Long Poster", "longposter", "7777",
			"The beginning of a very long story, and now the middle and the end of it too."),
		`</div>
    <div role="group"`,
		`</div>
    <button data-testid="tweet-text-show-less-link">Show less</button>
    <div role="group"`, 1))
}

// BarelessTweetCell is a tweet with no actions bar in any recognizable
// form, forcing the fallback container path.
func BarelessTweetCell(name, handle, id, text string) string {
	return fmt.Sprintf(`
<div data-testid="cellInnerDiv">
  <article data-testid="tweet" role="article">
    <div data-testid="User-Name">
      <span>%[1]s</span>
      <span>@%[2]s</span>
      <a href="/%[2]s/status/%[3]s"><time datetime="2026-01-05T12:00:00Z">Jan 5</time></a>
    </div>
    <div data-testid="tweetText" dir="ltr">%[4]s</div>
  </article>
</div>`, name, handle, id, text)
}

// AuthorOnlyCell has an author region but no text, timestamp, or
// interaction controls. A profile hover card, not a tweet.
func AuthorOnlyCell() string {
	return `
<div class="hovercard">
  <div data-testid="User-Name">
    <span>Just A. Name</span>
    <span>@justaname</span>
  </div>
</div>`
}

// DecorativeCell is a declared-tiny element the watcher must skip.
func DecorativeCell() string {
	return `<div width="12" height="12" class="spinner"><div data-testid="User-Name"><span>x</span></div></div>`
}

// MediaTweetPage builds a tweet carrying an image, a video, and an
// outbound link, with the image duplicated to exercise deduplication.
func MediaTweetPage() string {
	return `<!DOCTYPE html>
<html>
<body>
<div data-testid="cellInnerDiv">
  <article data-testid="tweet" role="article">
    <div data-testid="User-Name">
      <span>Media Poster</span>
      <span>@mediaposter</span>
      <a href="/mediaposter/status/8888"><time datetime="2026-02-01T09:30:00Z">Feb 1</time></a>
    </div>
    <div data-testid="tweetText" dir="ltr">Check <a href="https://example.com/article">example.com/article</a> and <a href="/hashtag/golang">#golang</a></div>
    <div data-testid="tweetPhoto"><img src="https://pbs.example.com/one.jpg" alt="a photo"/></div>
    <div data-testid="tweetPhoto"><img src="https://pbs.example.com/one.jpg" alt="a photo"/></div>
    <div data-testid="videoPlayer"><video poster="https://pbs.example.com/clip.jpg"></video></div>
    <div role="group" aria-label="2 replies, 1 repost, 5 likes">
      <button data-testid="reply" aria-label="2 Replies. Reply"></button>
      <button data-testid="retweet" aria-label="1 repost. Repost"></button>
      <button data-testid="like" aria-label="5 Likes. Like"></button>
    </div>
  </article>
</div>
</body>
</html>`
}

// RTLTweetPage builds a tweet with right-to-left text.
func RTLTweetPage() string {
	return `<!DOCTYPE html>
<html>
<body>
<div data-testid="cellInnerDiv">
  <article data-testid="tweet" role="article">
    <div data-testid="User-Name">
      <span>Ahmed</span>
      <span>@ahmed</span>
      <a href="/ahmed/status/456"><time datetime="2026-01-01T12:00:00Z">Jan 1</time></a>
    </div>
    <div data-testid="tweetText" dir="rtl">مرحبا بالعالم</div>
    <div role="group" aria-label="0 replies, 0 reposts, 1 like">
      <button data-testid="like" aria-label="1 Like. Like"></button>
      <button data-testid="reply" aria-label="0 Replies. Reply"></button>
    </div>
  </article>
</div>
</body>
</html>`
}
