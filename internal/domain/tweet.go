// Package domain contains the core business entities and rules.
package domain

// IDTier records which fallback produced a tweet's derived identity.
// Lower tiers are more stable across host re-renders.
type IDTier int

const (
	// TierPermalink means the id came from the numeric status-URL segment.
	TierPermalink IDTier = iota
	// TierContent means the id is a hash of author, text prefix and timestamp.
	TierContent
	// TierPath means the id is a hash of the element's structural DOM path.
	TierPath
)

func (t IDTier) String() string {
	switch t {
	case TierPermalink:
		return "permalink"
	case TierContent:
		return "content"
	case TierPath:
		return "path"
	}
	return "unknown"
}

// TweetRecord is the canonical extracted representation of one tweet.
// A record is never exposed half-filled: extraction either yields a record
// with usable text or fails with an explicit error.
type TweetRecord struct {
	ID        string        `json:"id"`
	IDTier    IDTier        `json:"id_tier"`
	Author    Author        `json:"author"`
	Text      string        `json:"text"`
	Direction TextDirection `json:"direction"`
	Timestamp string        `json:"timestamp,omitempty"` // ISO-8601, empty if absent
	Metrics   *Metrics      `json:"metrics,omitempty"`   // best-effort, may be nil
	Media     []Media       `json:"media,omitempty"`
	Thread    ThreadInfo    `json:"thread"`
	SourceURL string        `json:"source_url,omitempty"`
	Quoted    *QuotedTweet  `json:"quoted,omitempty"`
}

// Author represents the tweet author's information.
type Author struct {
	Name         string       `json:"name"`
	Handle       string       `json:"handle"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	Verified     bool         `json:"verified"`
	VerifiedType VerifiedType `json:"verified_type,omitempty"`
}

// VerifiedType represents the type of verification badge.
type VerifiedType string

const (
	VerifiedNone VerifiedType = "none"
	VerifiedBlue VerifiedType = "blue"
	VerifiedGold VerifiedType = "gold"
	VerifiedGray VerifiedType = "gray"
)

// TextDirection represents the text direction (LTR or RTL).
type TextDirection string

const (
	LTR TextDirection = "ltr"
	RTL TextDirection = "rtl"
)

// Metrics holds engagement counts. All fields are best-effort and a
// missing count is zero; callers must never depend on them for correctness.
type Metrics struct {
	Replies int64 `json:"replies"`
	Reposts int64 `json:"reposts"`
	Likes   int64 `json:"likes"`
}

// MediaType classifies one media attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaLink  MediaType = "link"
)

// Media is one attachment in DOM order.
type Media struct {
	Type    MediaType `json:"type"`
	URL     string    `json:"url"`
	AltText string    `json:"alt_text,omitempty"`
}

// ThreadInfo describes a tweet's membership in a self-thread.
type ThreadInfo struct {
	IsPartOfThread bool `json:"is_part_of_thread"`
	Position       int  `json:"position,omitempty"`    // 1-based, 0 if unknown
	TotalKnown     int  `json:"total_known,omitempty"` // 0 if unknown
}

// QuotedTweet represents a quoted tweet within the main tweet.
// Quotes inside the quoted tweet are ignored (no recursive parsing).
type QuotedTweet struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
	Author Author `json:"author"`
	Text   string `json:"text"`
}

// ThreadRecord is an ordered sequence of tweets believed to form one
// authored thread. It is only materialized with at least two tweets, all
// sharing the same author handle.
type ThreadRecord struct {
	Tweets []TweetRecord `json:"tweets"`
}

// Author returns the handle shared by every tweet in the thread.
func (t *ThreadRecord) Author() string {
	if len(t.Tweets) == 0 {
		return ""
	}
	return t.Tweets[0].Author.Handle
}
