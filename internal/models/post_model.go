package models

import "time"

type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

const (
	PlatformFacebook  = "facebook"
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformYoutube   = "youtube"
	PlatformTiktok    = "tiktok"
)

type Post struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	Title        string     `db:"title" json:"title"`
	Content      string     `db:"content" json:"content"`
	Platforms    []string   `db:"platforms" json:"platforms"`
	ScheduledFor time.Time  `db:"scheduled_for" json:"scheduled_for"`
	Status       PostStatus `db:"status" json:"status"`
	MediaRefs    []MediaRef `json:"media_refs"`
	TimeZone     string     `db:"time_zone" json:"time_zone"`
	Repeat       Repeat     `db:"repeat" json:"repeat"` // stored only, never expanded
	LastError    string     `db:"last_error" json:"last_error,omitempty"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// MediaRef points at an uploaded media asset. The scheduler never looks inside.
type MediaRef struct {
	AssetID  int64  `json:"asset_id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

func (m MediaRef) IsVideo() bool {
	return len(m.MimeType) >= 6 && m.MimeType[:6] == "video/"
}

// StatusFields carries the optional columns written alongside a status change.
type StatusFields struct {
	LastError    string
	PublishedAt  *time.Time
	ScheduledFor *time.Time
}

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}

var transitions = map[PostStatus][]PostStatus{
	PostStatusDraft:      {PostStatusScheduled, PostStatusPublishing},
	PostStatusScheduled:  {PostStatusPublishing, PostStatusDraft},
	PostStatusPublishing: {PostStatusPublished, PostStatusFailed},
	PostStatusFailed:     {PostStatusScheduled},
}

// CanTransition reports whether a post may move from one status to another.
func CanTransition(from, to PostStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidPlatform(p string) bool {
	switch p {
	case PlatformFacebook, PlatformTwitter, PlatformLinkedIn, PlatformInstagram, PlatformYoutube, PlatformTiktok:
		return true
	}
	return false
}

func ValidRepeat(r Repeat) bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}
