package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// PostFilter narrows announcement and devotional listings
type PostFilter struct {
	Kind          models.PostKind
	PublishedOnly bool
	FeaturedOnly  bool
	Search        string
	Page          helpers.Page
}

// PostRepository handles database operations for announcements and devotionals
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

var postColumns = []string{
	"id", "kind", "title", "summary", "content", "source", "content_format", "image_url",
	"published_at", "is_featured", "scripture_reference", "author_id", "created_at", "updated_at",
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.Kind, &p.Title, &p.Summary, &p.Content, &p.Source, &p.Format, &p.ImageURL,
		&p.PublishedAt, &p.IsFeatured, &p.ScriptureReference, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func postNotFound(kind models.PostKind) error {
	return notFound(string(kind))
}

// Create inserts a post and fills its id and timestamps
func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	query := psql.Insert("posts").
		Columns("kind", "title", "summary", "content", "source", "content_format", "image_url",
			"published_at", "is_featured", "scripture_reference", "author_id").
		Values(p.Kind, p.Title, p.Summary, p.Content, p.Source, p.Format, p.ImageURL,
			p.PublishedAt, p.IsFeatured, p.ScriptureReference, p.AuthorID).
		Suffix("RETURNING id, created_at, updated_at")

	if err := queryRow(ctx, r.db, query, nil, &p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("error creating %s: %w", p.Kind, err)
	}
	return nil
}

// GetByID returns one post of kind
func (r *PostRepository) GetByID(ctx context.Context, kind models.PostKind, id int64) (*models.Post, error) {
	sql, args, err := psql.Select(postColumns...).From("posts").
		Where(squirrel.Eq{"id": id, "kind": kind}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	p, err := scanPost(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, postNotFound(kind)
		}
		return nil, fmt.Errorf("error scanning %s: %w", kind, err)
	}
	return p, nil
}

// Update saves the editable fields of a post
func (r *PostRepository) Update(ctx context.Context, p *models.Post) error {
	query := psql.Update("posts").
		Set("title", p.Title).
		Set("summary", p.Summary).
		Set("content", p.Content).
		Set("source", p.Source).
		Set("content_format", p.Format).
		Set("scripture_reference", p.ScriptureReference).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID, "kind": p.Kind}).
		Suffix("RETURNING updated_at")
	return queryRow(ctx, r.db, query, postNotFound(p.Kind), &p.UpdatedAt)
}

// Delete removes a post
func (r *PostRepository) Delete(ctx context.Context, kind models.PostKind, id int64) error {
	return execOne(ctx, r.db, psql.Delete("posts").Where(squirrel.Eq{"id": id, "kind": kind}), postNotFound(kind))
}

// Publish sets published_at on a draft. It reports false when the post was already published.
func (r *PostRepository) Publish(ctx context.Context, kind models.PostKind, id int64, at time.Time) (bool, error) {
	n, err := exec(ctx, r.db, psql.Update("posts").
		Set("published_at", at).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "kind": kind, "published_at": nil}))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Unpublish turns a post back into a draft
func (r *PostRepository) Unpublish(ctx context.Context, kind models.PostKind, id int64) error {
	return execOne(ctx, r.db, psql.Update("posts").
		Set("published_at", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "kind": kind}), postNotFound(kind))
}

// SetFeatured flags or unflags a post as featured
func (r *PostRepository) SetFeatured(ctx context.Context, kind models.PostKind, id int64, featured bool) error {
	return execOne(ctx, r.db, psql.Update("posts").
		Set("is_featured", featured).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "kind": kind}), postNotFound(kind))
}

// SetImage sets or clears the image url
func (r *PostRepository) SetImage(ctx context.Context, kind models.PostKind, id int64, url *string) error {
	return execOne(ctx, r.db, psql.Update("posts").
		Set("image_url", url).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "kind": kind}), postNotFound(kind))
}

// List returns a page of posts, featured first and newest first
func (r *PostRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	where := squirrel.And{squirrel.Eq{"kind": filter.Kind}}
	if filter.PublishedOnly {
		where = append(where, squirrel.NotEq{"published_at": nil})
	}
	if filter.FeaturedOnly {
		where = append(where, squirrel.Eq{"is_featured": true})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, ilike(s, "title", "summary"))
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("posts").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := psql.Select(postColumns...).From("posts").Where(where).
		OrderBy("is_featured DESC", "published_at DESC NULLS FIRST", "created_at DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}
