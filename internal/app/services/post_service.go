package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
	"github.com/yigit/ekklesia/internal/pkg/markdown"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

// PostStore is the announcement/devotional persistence
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, kind models.PostKind, id int64) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, kind models.PostKind, id int64) error
	Publish(ctx context.Context, kind models.PostKind, id int64, at time.Time) (bool, error)
	Unpublish(ctx context.Context, kind models.PostKind, id int64) error
	SetFeatured(ctx context.Context, kind models.PostKind, id int64, featured bool) error
	SetImage(ctx context.Context, kind models.PostKind, id int64, url *string) error
	List(ctx context.Context, filter repositories.PostFilter) ([]*models.Post, int64, error)
}

// PostService manages announcements and devotionals
type PostService struct {
	posts    PostStore
	images   ImageStore
	notifier Notifier
	feed     FeedPublisher
	authz    *auth.AuthorizationService
	now      Clock
	baseURL  string
	logger   zerolog.Logger
}

// NewPostService creates a new PostService
func NewPostService(
	posts PostStore,
	images ImageStore,
	notifier Notifier,
	feed FeedPublisher,
	authz *auth.AuthorizationService,
	now Clock,
	baseURL string,
	logger zerolog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		images:   images,
		notifier: notifier,
		feed:     feed,
		authz:    authz,
		now:      now,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func kindLabel(kind models.PostKind) string {
	if kind == models.PostDevotional {
		return "devocional"
	}
	return "anuncio"
}

func (s *PostService) postURL(p *models.Post) string {
	if p.Kind == models.PostDevotional {
		return fmt.Sprintf("%s/devocionales/%d", s.baseURL, p.ID)
	}
	return fmt.Sprintf("%s/anuncios/%d", s.baseURL, p.ID)
}

func feedType(kind models.PostKind) string {
	if kind == models.PostDevotional {
		return websocket.TypeDevotionalPublished
	}
	return websocket.TypeAnnouncementPublished
}

// applyPostRequest copies req onto p, rendering markdown to HTML
func applyPostRequest(p *models.Post, req *dto.PostRequest) error {
	p.Title = strings.TrimSpace(req.Title)
	p.Summary = req.Summary
	p.Format = req.Format
	if p.Format == "" {
		p.Format = models.FormatHTML
	}

	if p.Format == models.FormatMarkdown {
		html, err := markdown.ToHTML(req.Content)
		if err != nil {
			return err
		}
		source := req.Content
		p.Content = html
		p.Source = &source
	} else {
		p.Content = req.Content
		p.Source = req.Source
	}

	if p.Kind == models.PostDevotional {
		p.ScriptureReference = req.ScriptureReference
	} else {
		p.ScriptureReference = nil
	}
	return nil
}

// Create stores a new draft. Staff and above.
func (s *PostService) Create(ctx context.Context, actor *auth.Actor, kind models.PostKind, req *dto.PostRequest) (*models.Post, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	authorID := actor.ID()
	p := &models.Post{Kind: kind, IsFeatured: req.IsFeatured, AuthorID: &authorID}
	if err := applyPostRequest(p, req); err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to create post")
		return nil, err
	}
	return p, nil
}

// Update replaces the content of a post. Staff and above.
func (s *PostService) Update(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64, req *dto.PostRequest) (*models.Post, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	p, err := s.posts.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := applyPostRequest(p, req); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, p); err != nil {
		return nil, err
	}
	if p.IsFeatured != req.IsFeatured {
		if err := s.posts.SetFeatured(ctx, kind, id, req.IsFeatured); err != nil {
			return nil, err
		}
		p.IsFeatured = req.IsFeatured
	}
	return p, nil
}

// Delete removes a post and its image. Staff and above.
func (s *PostService) Delete(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) error {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return err
	}
	p, err := s.posts.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, kind, id); err != nil {
		return err
	}
	if p.ImageURL != nil {
		if err := s.images.Delete(ctx, *p.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *p.ImageURL).Msg("Failed to delete post image")
		}
	}
	return nil
}

// Publish makes a draft visible and notifies subscribers once. Publishing an already published
// post changes nothing and notifies nobody.
func (s *PostService) Publish(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) (*models.Post, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	at := s.now().UTC()
	changed, err := s.posts.Publish(ctx, kind, id, at)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return p, nil
	}

	summary := ""
	if p.Summary != nil {
		summary = *p.Summary
	}
	n, err := s.notifier.Broadcast(ctx, email.TemplateContentPublished, email.Data{
		Kind:    kindLabel(kind),
		Title:   p.Title,
		Summary: summary,
		URL:     s.postURL(p),
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("postID", id).Msg("Failed to dispatch publish notifications")
	}
	s.feed.Publish(websocket.Event{Type: feedType(kind), ID: p.ID, Title: p.Title, At: at})
	s.logger.Info().Int64("postID", id).Str("kind", string(kind)).Int("emails", n).Msg("Post published")
	return p, nil
}

// Unpublish turns a post back into a draft. Staff and above.
func (s *PostService) Unpublish(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) (*models.Post, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	if err := s.posts.Unpublish(ctx, kind, id); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, kind, id)
}

// SetFeatured flags a post as featured. Staff and above.
func (s *PostService) SetFeatured(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64, featured bool) (*models.Post, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	if err := s.posts.SetFeatured(ctx, kind, id, featured); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, kind, id)
}

// UploadImage replaces the image of a post. Staff and above.
func (s *PostService) UploadImage(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64, fileHeader *multipart.FileHeader) (*models.Post, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	p, err := s.posts.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Save(ctx, fileHeader, string(kind)+"s")
	if err != nil {
		return nil, err
	}
	if err := s.posts.SetImage(ctx, kind, id, &url); err != nil {
		_ = s.images.Delete(ctx, url)
		return nil, err
	}
	if p.ImageURL != nil {
		if err := s.images.Delete(ctx, *p.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *p.ImageURL).Msg("Failed to delete old post image")
		}
	}
	p.ImageURL = &url
	return p, nil
}

func canSeeDrafts(actor *auth.Actor) bool {
	return actor.HasRole(models.RoleStaff)
}

// List returns a page of posts. Drafts are only listed for Staff and above when asked for.
func (s *PostService) List(ctx context.Context, actor *auth.Actor, kind models.PostKind, req *dto.PostFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error) {
	filter := repositories.PostFilter{
		Kind:          kind,
		PublishedOnly: !(req.Drafts && canSeeDrafts(actor)),
		FeaturedOnly:  req.Featured,
		Search:        req.Search,
		Page:          page,
	}
	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: posts, Pagination: helpers.NewPaginationInfo(total, page)}, nil
}

// Get returns one post. Drafts look missing to anyone below Staff.
func (s *PostService) Get(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) (*models.Post, error) {
	p, err := s.posts.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished() && !canSeeDrafts(actor) {
		return nil, apperrors.NewResourceNotFoundError(string(kind) + " not found")
	}
	return p, nil
}
