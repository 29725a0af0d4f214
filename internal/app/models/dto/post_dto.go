package dto

import "github.com/yigit/ekklesia/internal/app/models"

// PostRequest creates or replaces an announcement or devotional.
// Markdown content is rendered to HTML on save.
type PostRequest struct {
	Title              string               `json:"title" binding:"required,notblank,max=200"`
	Summary            *string              `json:"summary" binding:"omitempty,max=500"`
	Content            string               `json:"content" binding:"required,notblank"`
	Format             models.ContentFormat `json:"format" binding:"omitempty,oneof=html markdown" example:"markdown"`
	Source             *string              `json:"source"`
	ScriptureReference *string              `json:"scriptureReference" binding:"omitempty,max=120" example:"Juan 3:16"`
	IsFeatured         bool                 `json:"isFeatured"`
}

// FeatureRequest toggles the featured flag
type FeatureRequest struct {
	Featured bool `json:"featured"`
}

// PostFilterRequest holds the query parameters of post listings
type PostFilterRequest struct {
	Search   string `form:"search"`
	Featured bool   `form:"featured"`
	// Drafts includes unpublished posts. Only honoured for Staff and above.
	Drafts bool `form:"drafts"`
}
