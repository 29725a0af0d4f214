package models

import "time"

// PostKind distinguishes announcements from devotionals. Both share the 'posts' table.
type PostKind string

const (
	PostAnnouncement PostKind = "announcement"
	PostDevotional   PostKind = "devotional"
)

// ContentFormat is the format the body was authored in
type ContentFormat string

const (
	FormatHTML     ContentFormat = "html"
	FormatMarkdown ContentFormat = "markdown"
)

// Post is an announcement or a devotional
type Post struct {
	ID                 int64         `json:"id" db:"id"`
	Kind               PostKind      `json:"kind" db:"kind" example:"announcement"`
	Title              string        `json:"title" db:"title"`
	Summary            *string       `json:"summary,omitempty" db:"summary"`
	Content            string        `json:"content" db:"content"`
	Source             *string       `json:"source,omitempty" db:"source"`
	Format             ContentFormat `json:"format" db:"content_format" example:"html"`
	ImageURL           *string       `json:"imageUrl,omitempty" db:"image_url"`
	PublishedAt        *time.Time    `json:"publishedAt,omitempty" db:"published_at"`
	IsFeatured         bool          `json:"isFeatured" db:"is_featured"`
	ScriptureReference *string       `json:"scriptureReference,omitempty" db:"scripture_reference"`
	AuthorID           *int64        `json:"authorId,omitempty" db:"author_id"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time     `json:"updatedAt" db:"updated_at"`
}

// IsPublished reports whether the post is visible to members. A nil published_at is a draft.
func (p *Post) IsPublished() bool {
	return p.PublishedAt != nil
}
