// Package extract converts classified tweet elements into TweetRecords.
// Extraction is all-or-nothing: it yields a record with usable text or an
// explicit error, never a silently half-filled record.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/internal/domain"
	"tweetlens/pkg/log"
)

// Extractor reads structured records out of host tweet elements.
type Extractor struct {
	cfg *config.Config
	cls *classify.Classifier
	exp Expander
	log *log.Logger
}

// New creates an extractor. The expander is how truncated text gets
// expanded before reading; pass a NoopExpander for static snapshots.
func New(cfg *config.Config, cls *classify.Classifier, exp Expander) *Extractor {
	return &Extractor{cfg: cfg, cls: cls, exp: exp, log: log.Default().With("component", "extract")}
}

// Extract converts one tweet element into a TweetRecord.
func (e *Extractor) Extract(ctx context.Context, tweet *dom.Node) (*domain.TweetRecord, error) {
	if tweet == nil {
		return nil, domain.ErrNotATweet
	}

	// Expansion first so truncated text is fully present before reading.
	// A timeout is best-effort, not fatal.
	expanded, err := e.expand(ctx, tweet)
	if err != nil && !errors.Is(err, domain.ErrExpansionTimeout) && ctx.Err() != nil {
		return nil, err
	}
	if errors.Is(err, domain.ErrExpansionTimeout) {
		e.log.Debug("expansion unconfirmed, extracting current state", "path", tweet.Path())
	}
	if expanded != nil {
		tweet = expanded
	}

	sel := e.cfg.Selectors()
	rec := &domain.TweetRecord{Direction: domain.LTR}

	rec.Author = e.extractAuthor(tweet, sel)
	rec.Text, rec.Direction = e.extractText(tweet, sel)
	rec.Timestamp = extractTimestamp(tweet, e.cls)
	rec.Metrics = e.extractMetrics(tweet, sel)
	rec.Media = e.extractMedia(tweet, sel)
	rec.Quoted = e.extractQuoted(tweet, sel)
	rec.SourceURL = e.sourceURL(tweet, rec.Author.Handle)

	// Last resort: the element's raw flattened text is still copyable.
	if rec.Text == "" {
		rec.Text = tweet.FlatText()
	}

	if rec.Text == "" && rec.Author.Handle == "" && rec.Author.Name == "" && rec.SourceURL == "" {
		return nil, domain.ErrNoContentSignal
	}

	rec.ID, rec.IDTier = Identity(tweet, e.cls, sel, e.cfg.Heuristics().TextPrefixLen)
	return rec, nil
}

// extractAuthor reads the name/handle region. Absence is tolerated; the
// record is still produced with an empty author.
func (e *Extractor) extractAuthor(tweet *dom.Node, sel config.Selectors) domain.Author {
	var author domain.Author

	region := primaryByTestID(tweet, e.cls, sel.UserName)
	if region != nil {
		// The region reads "Display Name @handle · 2h"; split on the @.
		flat := region.FlatText()
		name, handle, ok := strings.Cut(flat, "@")
		author.Name = dom.Clean(name)
		if ok {
			fields := strings.Fields(handle)
			if len(fields) > 0 {
				author.Handle = fields[0]
			}
		}
		if badge := region.ByTestID(sel.VerifiedBadge); badge != nil {
			author.Verified = true
			author.VerifiedType = verifiedType(badge)
		}
	}

	if author.Handle == "" {
		// Fall back to the permalink's handle segment.
		anchor := primaryFind(tweet, e.cls, func(cur *dom.Node) bool {
			return cur.Tag() == "a" && classify.StatusHandle(cur.Attr("href")) != ""
		})
		author.Handle = classify.StatusHandle(anchor.Attr("href"))
	}

	if avatarBox := primaryByTestID(tweet, e.cls, sel.Avatar); avatarBox != nil {
		if img := avatarBox.FindFirst(func(cur *dom.Node) bool {
			return cur.Tag() == "img" && cur.Attr("src") != ""
		}); img != nil {
			author.AvatarURL = img.Attr("src")
		}
	}
	return author
}

func verifiedType(badge *dom.Node) domain.VerifiedType {
	hint := strings.ToLower(badge.AriaLabel() + " " + badge.Attr("class"))
	switch {
	case strings.Contains(hint, "gold"):
		return domain.VerifiedGold
	case strings.Contains(hint, "gray"), strings.Contains(hint, "grey"):
		return domain.VerifiedGray
	default:
		return domain.VerifiedBlue
	}
}

// extractText reads the primary text region, preserving full URLs for
// outbound links and visible text for the host's internal anchors.
func (e *Extractor) extractText(tweet *dom.Node, sel config.Selectors) (string, domain.TextDirection) {
	region := primaryByTestID(tweet, e.cls, sel.TweetText)
	if region == nil {
		return "", domain.LTR
	}

	text := region.TextWithAnchors(func(href, inner string) string {
		if href == "" {
			return inner
		}
		if isInternalHref(href) {
			return " " + inner + " "
		}
		return " " + href + " "
	})

	dir := domain.LTR
	if region.Attr("dir") == "rtl" || region.FindFirst(func(cur *dom.Node) bool {
		return cur.Attr("dir") == "rtl"
	}) != nil {
		dir = domain.RTL
	}
	return text, dir
}

// isInternalHref reports hashtag/mention/search style links that should
// contribute their visible text rather than the raw URL.
func isInternalHref(href string) bool {
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#") {
		return true
	}
	for _, frag := range []string{
		"twitter.com/hashtag", "twitter.com/search",
		"x.com/hashtag", "x.com/search",
	} {
		if strings.Contains(href, frag) {
			return true
		}
	}
	return false
}

func extractTimestamp(tweet *dom.Node, cls *classify.Classifier) string {
	node := primaryTimestamp(tweet, cls)
	if node == nil {
		return ""
	}
	raw := node.Attr("datetime")
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		return ""
	}
	return raw
}

var leadingCount = regexp.MustCompile(`([\d][\d,.]*)`)

// extractMetrics is best-effort: counts come from the interaction
// controls' accessible labels and a missing one is simply zero.
func (e *Extractor) extractMetrics(tweet *dom.Node, sel config.Selectors) *domain.Metrics {
	var m domain.Metrics
	found := false
	for _, id := range sel.ActionControls {
		control := primaryByTestID(tweet, e.cls, id)
		if control == nil {
			continue
		}
		count, ok := parseCount(control.AriaLabel())
		if !ok {
			continue
		}
		found = true
		switch id {
		case "reply":
			m.Replies = count
		case "retweet":
			m.Reposts = count
		case "like":
			m.Likes = count
		}
	}
	if !found {
		return nil
	}
	return &m
}

func parseCount(label string) (int64, bool) {
	match := leadingCount.FindString(label)
	if match == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(match)
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractMedia enumerates images, videos and outbound links in DOM
// order, deduplicating by URL within each category.
func (e *Extractor) extractMedia(tweet *dom.Node, sel config.Selectors) []domain.Media {
	var images, videos, links []domain.Media

	for _, photo := range primaryAll(tweet, e.cls, func(cur *dom.Node) bool {
		return cur.TestID() == sel.PhotoContainer
	}) {
		img := photo.FindFirst(func(cur *dom.Node) bool {
			return cur.Tag() == "img" && cur.Attr("src") != ""
		})
		if img != nil {
			images = append(images, domain.Media{
				Type:    domain.MediaImage,
				URL:     img.Attr("src"),
				AltText: img.Attr("alt"),
			})
		}
	}

	for _, vid := range primaryAll(tweet, e.cls, func(cur *dom.Node) bool {
		return cur.Tag() == "video" || cur.TestID() == sel.VideoPlayer
	}) {
		url := vid.Attr("src")
		if url == "" {
			url = vid.Attr("poster")
		}
		if url == "" {
			if inner := vid.FindFirst(func(cur *dom.Node) bool {
				return cur.Tag() == "video" && (cur.Attr("src") != "" || cur.Attr("poster") != "")
			}); inner != nil {
				url = inner.Attr("src")
				if url == "" {
					url = inner.Attr("poster")
				}
			}
		}
		if url != "" {
			videos = append(videos, domain.Media{Type: domain.MediaVideo, URL: url})
		}
	}

	for _, anchor := range primaryAll(tweet, e.cls, func(cur *dom.Node) bool {
		href := cur.Attr("href")
		return cur.Tag() == "a" && strings.HasPrefix(href, "http") && !isInternalHref(href)
	}) {
		links = append(links, domain.Media{
			Type: domain.MediaLink,
			URL:  anchor.Attr("href"),
		})
	}

	dedupe := func(in []domain.Media) []domain.Media {
		return lo.UniqBy(in, func(m domain.Media) string { return m.URL })
	}
	out := append(dedupe(images), dedupe(videos)...)
	return append(out, dedupe(links)...)
}

// extractQuoted captures one level of quoted tweet; quotes inside the
// quote are ignored.
func (e *Extractor) extractQuoted(tweet *dom.Node, sel config.Selectors) *domain.QuotedTweet {
	quote := tweet.FindFirst(func(cur *dom.Node) bool {
		return cur.TestID() == sel.QuoteContainer && !cur.Same(tweet)
	})
	if quote == nil {
		return nil
	}

	q := &domain.QuotedTweet{}
	if region := quote.ByTestID(sel.UserName); region != nil {
		name, handle, ok := strings.Cut(region.FlatText(), "@")
		q.Author.Name = dom.Clean(name)
		if ok {
			fields := strings.Fields(handle)
			if len(fields) > 0 {
				q.Author.Handle = fields[0]
			}
		}
	}
	if text := quote.ByTestID(sel.TweetText); text != nil {
		q.Text = text.Text()
	}
	if anchor := quote.FindFirst(func(cur *dom.Node) bool {
		return cur.Tag() == "a" && classify.IsStatusHref(cur.Attr("href"))
	}); anchor != nil {
		q.ID = classify.StatusID(anchor.Attr("href"))
		q.URL = absolutize(anchor.Attr("href"))
	}
	if q.Text == "" && q.Author.Handle == "" {
		return nil
	}
	return q
}

func (e *Extractor) sourceURL(tweet *dom.Node, handle string) string {
	anchor := primaryFind(tweet, e.cls, func(cur *dom.Node) bool {
		return cur.Tag() == "a" && classify.IsStatusHref(cur.Attr("href"))
	})
	if anchor == nil {
		return ""
	}
	id := classify.StatusID(anchor.Attr("href"))
	if handle != "" && id != "" {
		return fmt.Sprintf("https://x.com/%s/status/%s", handle, id)
	}
	return absolutize(anchor.Attr("href"))
}

func absolutize(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return "https://x.com" + href
}
