// Package thread decides whether a tweet belongs to a multi-tweet thread
// by the same author and assembles the ordered sequence when it does.
// Detection is always best-effort: any failure degrades to "not a
// thread" and never blocks single-tweet extraction.
package thread

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/internal/domain"
	"tweetlens/internal/extract"
	"tweetlens/pkg/log"
)

// Detection is the outcome of thread analysis for one anchor tweet.
type Detection struct {
	IsPartOfThread bool
	Thread         *domain.ThreadRecord
}

// Reconstructor walks the timeline around an anchor tweet.
type Reconstructor struct {
	cfg *config.Config
	cls *classify.Classifier
	ext *extract.Extractor
	log *log.Logger
}

// New creates a reconstructor sharing the pipeline's classifier and extractor.
func New(cfg *config.Config, cls *classify.Classifier, ext *extract.Extractor) *Reconstructor {
	return &Reconstructor{cfg: cfg, cls: cls, ext: ext, log: log.Default().With("component", "thread")}
}

// positionMarker matches explicit "N/M" thread numbering in tweet text.
var positionMarker = regexp.MustCompile(`(?:^|[\s(])(\d{1,3})\s*/\s*(\d{1,4})(?:[\s).!?]|$)`)

// replyingTo matches the host's reply-context banner.
var replyingTo = regexp.MustCompile(`Replying to\s+@(\w+)`)

// Detect analyzes the anchor tweet and, when thread signals hold up,
// assembles the full thread in timeline order.
func (r *Reconstructor) Detect(ctx context.Context, anchor *dom.Node) Detection {
	return r.detect(ctx, anchor, false)
}

// FromHere assembles only the sub-sequence from the anchor tweet to the
// end of the detected thread.
func (r *Reconstructor) FromHere(ctx context.Context, anchor *dom.Node) Detection {
	return r.detect(ctx, anchor, true)
}

func (r *Reconstructor) detect(ctx context.Context, anchor *dom.Node, fromHere bool) (det Detection) {
	// The timeline is live, third-party markup; a bad walk must degrade,
	// not propagate.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("thread detection panicked", "panic", rec)
			det = Detection{}
		}
	}()

	if anchor == nil {
		return Detection{}
	}

	anchorRec, err := r.ext.Extract(ctx, anchor)
	if err != nil || anchorRec.Author.Handle == "" {
		// Without an author handle the homogeneity invariant cannot be
		// guaranteed, so no thread is ever materialized.
		return Detection{}
	}

	pos, total, hasMarker := r.positionSignal(anchor)
	selfReply := r.selfReplySignal(anchor, anchorRec.Author.Handle)
	connected := r.connectorSignal(anchor)

	// Signals combine; none is authoritative alone, but the explicit
	// numeric marker is the least ambiguous and wins disagreements.
	if !hasMarker && !selfReply && !connected {
		return Detection{}
	}

	cell := r.cls.TimelineCell(anchor)
	if cell == nil {
		return Detection{}
	}

	heur := r.cfg.Heuristics()
	var before, after []domain.TweetRecord
	if !fromHere {
		before = r.walk(ctx, cell, anchorRec.Author.Handle, -1, heur.MaxThreadWalk)
	}
	after = r.walk(ctx, cell, anchorRec.Author.Handle, +1, heur.MaxThreadWalk)

	seq := make([]domain.TweetRecord, 0, len(before)+1+len(after))
	for i := len(before) - 1; i >= 0; i-- {
		seq = append(seq, before[i])
	}
	seq = append(seq, *anchorRec)
	seq = append(seq, after...)

	// A single tweet is never wrapped in a ThreadRecord, even when weak
	// signals were present.
	if len(seq) < 2 {
		return Detection{}
	}

	totalKnown := len(seq)
	if hasMarker && total > totalKnown {
		totalKnown = total
	}
	for i := range seq {
		seq[i].Thread = domain.ThreadInfo{
			IsPartOfThread: true,
			Position:       i + 1,
			TotalKnown:     totalKnown,
		}
	}
	if hasMarker && !fromHere && pos > 0 && pos <= len(seq) {
		// Sanity: the anchor's explicit marker should agree with its walk
		// position; a mismatch is logged as drift but not fatal.
		if seq[len(before)].Thread.Position != pos {
			r.log.Debug("position marker disagrees with walk", "marker", pos, "walk", len(before)+1)
		}
	}

	return Detection{IsPartOfThread: true, Thread: &domain.ThreadRecord{Tweets: seq}}
}

// walk extends the thread in one direction, stopping at the first cell
// holding a different author's tweet, a non-tweet cell, or the bound.
func (r *Reconstructor) walk(ctx context.Context, cell *dom.Node, handle string, dir, maxWalk int) []domain.TweetRecord {
	var out []domain.TweetRecord
	cur := step(cell, dir)
	for i := 0; i < maxWalk && cur != nil; i++ {
		tweet := findTweetShape(cur, r.cfg.Selectors())
		if tweet == nil {
			break
		}
		rec, err := r.ext.Extract(ctx, tweet)
		if err != nil {
			break
		}
		if rec.Author.Handle == "" || !strings.EqualFold(rec.Author.Handle, handle) {
			break
		}
		out = append(out, *rec)
		cur = step(cur, dir)
	}
	return out
}

func step(cell *dom.Node, dir int) *dom.Node {
	if dir < 0 {
		return cell.PrevSibling()
	}
	return cell.NextSibling()
}

// findTweetShape locates the tweet container inside a timeline cell
// without the classifier's processed-marker guard; already-processed
// neighbors are exactly what a thread walk needs to read.
func findTweetShape(cell *dom.Node, sel config.Selectors) *dom.Node {
	return cell.FindFirst(func(cur *dom.Node) bool {
		if cur.Tag() == "article" || cur.Role() == "article" {
			return true
		}
		for _, tid := range sel.TweetContainers {
			if cur.TestID() == tid {
				return true
			}
		}
		return false
	})
}

// positionSignal reads an explicit "N/M" marker from the anchor's text.
func (r *Reconstructor) positionSignal(anchor *dom.Node) (pos, total int, ok bool) {
	region := anchor.ByTestID(r.cfg.Selectors().TweetText)
	if region == nil {
		return 0, 0, false
	}
	m := positionMarker.FindStringSubmatch(region.FlatText())
	if m == nil {
		return 0, 0, false
	}
	pos, _ = strconv.Atoi(m[1])
	total, _ = strconv.Atoi(m[2])
	if pos == 0 || total == 0 || pos > total {
		return 0, 0, false
	}
	return pos, total, true
}

// selfReplySignal reports whether the tweet is a reply to its own author.
func (r *Reconstructor) selfReplySignal(anchor *dom.Node, handle string) bool {
	banner := anchor.FindFirst(func(cur *dom.Node) bool {
		return strings.HasPrefix(cur.FlatText(), "Replying to")
	})
	if banner == nil {
		return false
	}
	m := replyingTo.FindStringSubmatch(banner.FlatText())
	return m != nil && strings.EqualFold(m[1], handle)
}

// connectorSignal reports the visual continuity line the host renders
// between consecutive same-author tweets.
func (r *Reconstructor) connectorSignal(anchor *dom.Node) bool {
	frag := r.cfg.Selectors().ThreadConnector
	if frag == "" {
		return false
	}
	cell := r.cls.TimelineCell(anchor)
	scope := anchor
	if cell != nil {
		scope = cell
	}
	return scope.FindFirst(func(cur *dom.Node) bool {
		return strings.Contains(cur.Attr("class"), frag)
	}) != nil
}
