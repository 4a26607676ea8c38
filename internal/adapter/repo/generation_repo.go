package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"outfitlens/internal/domain"
	"outfitlens/internal/infra"
	"outfitlens/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a new generation repository backed by PostgreSQL.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create inserts a new generation record.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGeneration,
		gen.ID,
		gen.UserID,
		gen.UserPhoto.ID,
		gen.ClothingPhoto.ID,
		string(gen.Status),
		gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// GetByID fetches a generation with its images.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	gen, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return gen, nil
}

// UpdateStatus moves the generation to status when its current status allows it.
func (r *GenerationRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.GenerationStatus, result *domain.Image, errMsg string) (*domain.Generation, error) {
	var resultID *string
	if result != nil {
		resultID = &result.ID
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateGenerationStatus, id, string(status), resultID, errMsg, predecessors(status))
	if err != nil {
		return nil, fmt.Errorf("update generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidTransition
	}
	return r.GetByID(ctx, id)
}

// ListByUser returns one page of the user's history, newest first.
func (r *GenerationRepositoryPG) ListByUser(ctx context.Context, userID string, page domain.PageRequest) ([]domain.Generation, int, error) {
	page = page.Normalize()
	total, err := r.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationsByUser, userID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var gens []domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, 0, err
		}
		gens = append(gens, *gen)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return gens, total, nil
}

// CountByUser returns the number of generations the user has requested.
func (r *GenerationRepositoryPG) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGenerationsByUser, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PendingIDs lists generations that have not been picked up yet.
func (r *GenerationRepositoryPG) PendingIDs(ctx context.Context, limit int) ([]string, error) {
	return r.ids(ctx, sqlinline.QPendingGenerations, limit)
}

// StaleIDs lists processing generations not touched since before.
func (r *GenerationRepositoryPG) StaleIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	return r.ids(ctx, sqlinline.QStaleGenerations, before, limit)
}

func (r *GenerationRepositoryPG) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.sql.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGeneration(row pgx.Row) (*domain.Generation, error) {
	var (
		g      domain.Generation
		result nullableImage
	)
	up, cp := &g.UserPhoto, &g.ClothingPhoto
	dest := []any{
		&g.ID, &g.UserID, &g.Status, &g.ErrorMessage, &g.CreatedAt, &g.UpdatedAt,
		&up.ID, &up.URL, &up.Type, &up.FileSize, &up.Width, &up.Height, &up.MIME, &up.StorageKey, &up.CreatedAt,
		&cp.ID, &cp.URL, &cp.Type, &cp.FileSize, &cp.Width, &cp.Height, &cp.MIME, &cp.StorageKey, &cp.CreatedAt,
	}
	dest = append(dest, result.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	up.UserID, cp.UserID = g.UserID, g.UserID
	g.ResultImage = result.image(g.UserID)
	return &g, nil
}

// predecessors lists the statuses from which next may be reached.
func predecessors(next domain.GenerationStatus) []string {
	all := []domain.GenerationStatus{
		domain.GenerationPending,
		domain.GenerationProcessing,
		domain.GenerationCompleted,
		domain.GenerationFailed,
	}
	var out []string
	for _, s := range all {
		if s.CanTransition(next) {
			out = append(out, string(s))
		}
	}
	return out
}
