package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"outfitlens/internal/domain"
)

// Memory keeps users, images and generations in process memory. It backs the
// API when DATABASE_URL is not configured and is used throughout the tests.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	emails      map[string]string
	images      map[string]domain.Image
	generations map[string]domain.Generation
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]domain.User),
		emails:      make(map[string]string),
		images:      make(map[string]domain.Image),
		generations: make(map[string]domain.Generation),
	}
}

// Users exposes the store as a domain.UserRepository.
func (m *Memory) Users() domain.UserRepository { return memoryUsers{m} }

// Images exposes the store as a domain.ImageRepository.
func (m *Memory) Images() domain.ImageRepository { return memoryImages{m} }

// Generations exposes the store as a domain.GenerationRepository.
func (m *Memory) Generations() domain.GenerationRepository { return memoryGenerations{m} }

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, ok := r.m.emails[email]; ok {
		return domain.ErrEmailTaken
	}
	user.Email = email
	r.m.users[user.ID] = *user
	r.m.emails[email] = user.ID
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.m.mu.RLock()
	id, ok := r.m.emails[strings.ToLower(strings.TrimSpace(email))]
	r.m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

type memoryImages struct{ m *Memory }

func (r memoryImages) Save(_ context.Context, img *domain.Image) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.images[img.ID] = *img
	return nil
}

func (r memoryImages) GetByID(_ context.Context, id string) (*domain.Image, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	img, ok := r.m.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &img, nil
}

func (r memoryImages) List(_ context.Context, filter domain.ImageFilter) ([]domain.Image, int, error) {
	r.m.mu.RLock()
	var matched []domain.Image
	for _, img := range r.m.images {
		if img.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && img.Type != filter.Type {
			continue
		}
		matched = append(matched, img)
	}
	r.m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return window(matched, filter.Page), len(matched), nil
}

func (r memoryImages) CountByUser(_ context.Context, userID string) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	n := 0
	for _, img := range r.m.images {
		if img.UserID == userID && img.Type.Uploadable() {
			n++
		}
	}
	return n, nil
}

func (r memoryImages) Delete(_ context.Context, userID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	img, ok := r.m.images[id]
	if !ok || img.UserID != userID {
		return domain.ErrNotFound
	}
	for _, gen := range r.m.generations {
		if gen.UserPhoto.ID == id || gen.ClothingPhoto.ID == id || (gen.ResultImage != nil && gen.ResultImage.ID == id) {
			return domain.ErrImageInUse
		}
	}
	delete(r.m.images, id)
	return nil
}

type memoryGenerations struct{ m *Memory }

func (r memoryGenerations) Create(_ context.Context, gen *domain.Generation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.generations[gen.ID] = *gen
	return nil
}

func (r memoryGenerations) GetByID(_ context.Context, id string) (*domain.Generation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	gen, ok := r.m.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &gen, nil
}

func (r memoryGenerations) UpdateStatus(_ context.Context, id string, status domain.GenerationStatus, result *domain.Image, errMsg string) (*domain.Generation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	gen, ok := r.m.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !gen.Status.CanTransition(status) {
		return nil, domain.ErrInvalidTransition
	}
	gen.Status = status
	gen.ErrorMessage = errMsg
	if result != nil {
		img := *result
		gen.ResultImage = &img
	}
	gen.UpdatedAt = nowUTC()
	r.m.generations[id] = gen
	return &gen, nil
}

func (r memoryGenerations) ListByUser(_ context.Context, userID string, page domain.PageRequest) ([]domain.Generation, int, error) {
	r.m.mu.RLock()
	var matched []domain.Generation
	for _, gen := range r.m.generations {
		if gen.UserID == userID {
			matched = append(matched, gen)
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return window(matched, page), len(matched), nil
}

func (r memoryGenerations) CountByUser(_ context.Context, userID string) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	n := 0
	for _, gen := range r.m.generations {
		if gen.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r memoryGenerations) PendingIDs(_ context.Context, limit int) ([]string, error) {
	return r.oldest(limit,
		func(g domain.Generation) bool { return g.Status == domain.GenerationPending },
		func(g domain.Generation) time.Time { return g.CreatedAt },
	), nil
}

func (r memoryGenerations) StaleIDs(_ context.Context, before time.Time, limit int) ([]string, error) {
	return r.oldest(limit,
		func(g domain.Generation) bool {
			return g.Status == domain.GenerationProcessing && g.UpdatedAt.Before(before)
		},
		func(g domain.Generation) time.Time { return g.UpdatedAt },
	), nil
}

// oldest returns ids of matching generations ordered by the at timestamp.
func (r memoryGenerations) oldest(limit int, match func(domain.Generation) bool, at func(domain.Generation) time.Time) []string {
	r.m.mu.RLock()
	var found []domain.Generation
	for _, gen := range r.m.generations {
		if match(gen) {
			found = append(found, gen)
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool { return at(found[i]).Before(at(found[j])) })
	ids := make([]string, 0, len(found))
	for _, gen := range found {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, gen.ID)
	}
	return ids
}

func window[T any](items []T, req domain.PageRequest) []T {
	req = req.Normalize()
	start := req.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + req.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
