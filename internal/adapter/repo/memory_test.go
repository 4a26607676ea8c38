package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"outfitlens/internal/domain"
)

func TestMemoryUsersRejectDuplicateEmail(t *testing.T) {
	users := NewMemory().Users()
	ctx := context.Background()

	if err := users.Create(ctx, &domain.User{ID: "u1", Email: "Jane@Example.com"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := users.Create(ctx, &domain.User{ID: "u2", Email: "jane@example.com "}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("Create() error = %v, want ErrEmailTaken", err)
	}
	got, err := users.GetByEmail(ctx, "JANE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("GetByEmail() id = %q, want u1", got.ID)
	}
	if _, err := users.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryImagesListFiltersAndPaginates(t *testing.T) {
	images := NewMemory().Images()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		typ := domain.ImageTypeSubject
		if i%2 == 1 {
			typ = domain.ImageTypeGarment
		}
		img := &domain.Image{ID: fmt.Sprintf("img%d", i), UserID: "u1", Type: typ, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := images.Save(ctx, img); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}
	_ = images.Save(ctx, &domain.Image{ID: "other", UserID: "u2", Type: domain.ImageTypeSubject, CreatedAt: base})
	_ = images.Save(ctx, &domain.Image{ID: "res", UserID: "u1", Type: domain.ImageTypeResult, CreatedAt: base})

	got, total, err := images.List(ctx, domain.ImageFilter{UserID: "u1", Type: domain.ImageTypeSubject, Page: domain.PageRequest{Page: 1, PageSize: 2}})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 3 {
		t.Fatalf("List() total = %d, want 3", total)
	}
	if ids := imageIDs(got); !reflect.DeepEqual(ids, []string{"img4", "img2"}) {
		t.Fatalf("List() ids = %v, want [img4 img2]", ids)
	}

	got, _, _ = images.List(ctx, domain.ImageFilter{UserID: "u1", Type: domain.ImageTypeSubject, Page: domain.PageRequest{Page: 9, PageSize: 2}})
	if got == nil || len(got) != 0 {
		t.Fatalf("List() past end = %v, want empty slice", got)
	}

	n, _ := images.CountByUser(ctx, "u1")
	if n != 5 {
		t.Fatalf("CountByUser() = %d, want 5", n)
	}
}

func TestMemoryImagesDeleteChecksOwner(t *testing.T) {
	images := NewMemory().Images()
	ctx := context.Background()
	_ = images.Save(ctx, &domain.Image{ID: "img", UserID: "owner"})

	if err := images.Delete(ctx, "intruder", "img"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete() by other user error = %v, want ErrNotFound", err)
	}
	if err := images.Delete(ctx, "owner", "img"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := images.GetByID(ctx, "img"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryImagesDeleteRefusesReferencedImage(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	subject := domain.Image{ID: "sub", UserID: "owner", Type: domain.ImageTypeSubject}
	_ = mem.Images().Save(ctx, &subject)
	_ = mem.Generations().Create(ctx, &domain.Generation{ID: "gen_1", UserID: "owner", UserPhoto: subject, Status: domain.GenerationPending})

	if err := mem.Images().Delete(ctx, "owner", "sub"); !errors.Is(err, domain.ErrImageInUse) {
		t.Fatalf("Delete() error = %v, want ErrImageInUse", err)
	}
}

func TestMemoryGenerationsUpdateStatusIsMonotonic(t *testing.T) {
	gens := NewMemory().Generations()
	ctx := context.Background()
	if err := gens.Create(ctx, &domain.Generation{ID: "gen_abc", UserID: "u1", Status: domain.GenerationPending}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := gens.UpdateStatus(ctx, "gen_abc", domain.GenerationProcessing, nil, ""); err != nil {
		t.Fatalf("UpdateStatus(processing) error: %v", err)
	}
	result := &domain.Image{ID: "r1", URL: "https://cdn/r1.png", Type: domain.ImageTypeResult}
	got, err := gens.UpdateStatus(ctx, "gen_abc", domain.GenerationCompleted, result, "")
	if err != nil {
		t.Fatalf("UpdateStatus(completed) error: %v", err)
	}
	if got.ResultImage == nil || got.ResultImage.URL != result.URL {
		t.Fatalf("ResultImage = %+v, want %s", got.ResultImage, result.URL)
	}
	if _, err := gens.UpdateStatus(ctx, "gen_abc", domain.GenerationFailed, nil, "late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("UpdateStatus(failed) after completed error = %v, want ErrInvalidTransition", err)
	}
	if _, err := gens.UpdateStatus(ctx, "nope", domain.GenerationFailed, nil, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryGenerationsHistoryAndPending(t *testing.T) {
	gens := NewMemory().Generations()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = gens.Create(ctx, &domain.Generation{
			ID:        fmt.Sprintf("gen%d", i),
			UserID:    "u1",
			Status:    domain.GenerationPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	_, _ = gens.UpdateStatus(ctx, "gen1", domain.GenerationProcessing, nil, "")

	items, total, err := gens.ListByUser(ctx, "u1", domain.PageRequest{Page: 1, PageSize: 20})
	if err != nil || total != 3 {
		t.Fatalf("ListByUser() total = %d err = %v, want 3 nil", total, err)
	}
	if items[0].ID != "gen2" {
		t.Fatalf("ListByUser() first = %s, want newest gen2", items[0].ID)
	}

	pending, _ := gens.PendingIDs(ctx, 0)
	if !reflect.DeepEqual(pending, []string{"gen0", "gen2"}) {
		t.Fatalf("PendingIDs() = %v, want [gen0 gen2]", pending)
	}
	pending, _ = gens.PendingIDs(ctx, 1)
	if len(pending) != 1 {
		t.Fatalf("PendingIDs(1) = %v, want one id", pending)
	}
}

func TestMemoryGenerationsStaleIDs(t *testing.T) {
	gens := NewMemory().Generations()
	ctx := context.Background()
	for _, id := range []string{"gen_a", "gen_b", "gen_c"} {
		_ = gens.Create(ctx, &domain.Generation{ID: id, UserID: "u1", Status: domain.GenerationPending})
	}
	_, _ = gens.UpdateStatus(ctx, "gen_a", domain.GenerationProcessing, nil, "")
	_, _ = gens.UpdateStatus(ctx, "gen_b", domain.GenerationProcessing, nil, "")
	_, _ = gens.UpdateStatus(ctx, "gen_b", domain.GenerationCompleted, nil, "")

	stale, err := gens.StaleIDs(ctx, time.Now().Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("StaleIDs() error = %v", err)
	}
	if !reflect.DeepEqual(stale, []string{"gen_a"}) {
		t.Fatalf("StaleIDs() = %v, want [gen_a]", stale)
	}
	if stale, _ := gens.StaleIDs(ctx, time.Now().Add(-time.Minute), 0); len(stale) != 0 {
		t.Fatalf("StaleIDs(before claim) = %v, want none", stale)
	}
}

func TestPredecessors(t *testing.T) {
	cases := map[domain.GenerationStatus][]string{
		domain.GenerationPending:    nil,
		domain.GenerationProcessing: {"pending"},
		domain.GenerationCompleted:  {"pending", "processing"},
		domain.GenerationFailed:     {"pending", "processing"},
	}
	for next, want := range cases {
		if got := predecessors(next); !reflect.DeepEqual(got, want) {
			t.Fatalf("predecessors(%s) = %v, want %v", next, got, want)
		}
	}
}

func imageIDs(images []domain.Image) []string {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}
