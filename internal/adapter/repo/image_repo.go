package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"outfitlens/internal/domain"
	"outfitlens/internal/infra"
	"outfitlens/internal/sqlinline"
)

const foreignKeyViolation = "23503"

// ImageRepositoryPG implements domain.ImageRepository using PostgreSQL.
type ImageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewImageRepository constructs a new image repository instance.
func NewImageRepository(sql infra.SQLExecutor) *ImageRepositoryPG {
	return &ImageRepositoryPG{sql: sql}
}

// Save persists a new image descriptor.
func (r *ImageRepositoryPG) Save(ctx context.Context, img *domain.Image) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertImage,
		img.ID,
		img.UserID,
		img.URL,
		string(img.Type),
		img.FileSize,
		img.Width,
		img.Height,
		img.MIME,
		img.StorageKey,
		img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// GetByID fetches an image by its identifier.
func (r *ImageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var img domain.Image
	err := r.sql.QueryRow(ctx, sqlinline.QSelectImageByID, id).Scan(
		&img.ID, &img.UserID, &img.URL, &img.Type, &img.FileSize,
		&img.Width, &img.Height, &img.MIME, &img.StorageKey, &img.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// List returns one page of the user's images, newest first, plus the total count.
func (r *ImageRepositoryPG) List(ctx context.Context, filter domain.ImageFilter) ([]domain.Image, int, error) {
	page := filter.Page.Normalize()
	rows, err := r.sql.Query(ctx, sqlinline.QListImages, filter.UserID, string(filter.Type), page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		images []domain.Image
		total  int
	)
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.URL, &img.Type, &img.FileSize,
			&img.Width, &img.Height, &img.MIME, &img.StorageKey, &img.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(images) == 0 && page.Page > 1 {
		// the window count is absent when the offset runs past the end
		total, err = r.count(ctx, filter.UserID, filter.Type)
		if err != nil {
			return nil, 0, err
		}
	}
	return images, total, nil
}

// CountByUser counts uploads of both uploadable types.
func (r *ImageRepositoryPG) CountByUser(ctx context.Context, userID string) (int, error) {
	subjects, err := r.count(ctx, userID, domain.ImageTypeSubject)
	if err != nil {
		return 0, err
	}
	garments, err := r.count(ctx, userID, domain.ImageTypeGarment)
	if err != nil {
		return 0, err
	}
	return subjects + garments, nil
}

func (r *ImageRepositoryPG) count(ctx context.Context, userID string, t domain.ImageType) (int, error) {
	var n int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountImagesByType, userID, string(t)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes an image owned by userID.
func (r *ImageRepositoryPG) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteImage, id, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.ErrImageInUse
		}
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// nullableImage scans the optional left-joined result image columns.
type nullableImage struct {
	ID, URL, Type, MIME, StorageKey *string
	FileSize                        *int64
	Width, Height                   *int
	CreatedAt                       *time.Time
}

func (n *nullableImage) dest() []any {
	return []any{&n.ID, &n.URL, &n.Type, &n.FileSize, &n.Width, &n.Height, &n.MIME, &n.StorageKey, &n.CreatedAt}
}

func (n *nullableImage) image(userID string) *domain.Image {
	if n.ID == nil {
		return nil
	}
	img := &domain.Image{ID: *n.ID, UserID: userID}
	if n.URL != nil {
		img.URL = *n.URL
	}
	if n.Type != nil {
		img.Type = domain.ImageType(*n.Type)
	}
	if n.FileSize != nil {
		img.FileSize = *n.FileSize
	}
	if n.Width != nil {
		img.Width = *n.Width
	}
	if n.Height != nil {
		img.Height = *n.Height
	}
	if n.MIME != nil {
		img.MIME = *n.MIME
	}
	if n.StorageKey != nil {
		img.StorageKey = *n.StorageKey
	}
	if n.CreatedAt != nil {
		img.CreatedAt = *n.CreatedAt
	}
	return img
}
