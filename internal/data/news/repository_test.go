package news

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"juvenis/app/internal/data/database"
	"juvenis/app/internal/data/migrations"
	domainnews "juvenis/app/internal/domain/news"
)

func TestRepositoryListOrdersByPublishedDateWithUndatedLast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	seed := []domainnews.Item{
		{ID: "jan", Title: "Enero", Category: domainnews.CategoryEvent, Status: domainnews.StatusPublished, PublishedDate: &jan, CreatedAt: base},
		{ID: "undated", Title: "Sin fecha", Category: domainnews.CategoryCall, Status: domainnews.StatusPublished, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "feb-old", Title: "Febrero", Category: domainnews.CategoryRelease, Status: domainnews.StatusPublished, PublishedDate: &feb, CreatedAt: base},
		{ID: "feb-new", Title: "Febrero 2", Category: domainnews.CategoryEvent, Status: domainnews.StatusDraft, PublishedDate: &feb, CreatedAt: base.Add(time.Hour)},
	}
	for i := range seed {
		seed[i].UpdatedAt = seed[i].CreatedAt
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	all, err := repo.List(ctx, domainnews.ListOptions{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	assertIDs(t, all, "feb-new", "feb-old", "jan", "undated")

	published, err := repo.List(ctx, domainnews.ListOptions{PublishedOnly: true})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	assertIDs(t, published, "feb-old", "jan", "undated")

	events, err := repo.List(ctx, domainnews.ListOptions{PublishedOnly: true, Category: domainnews.CategoryEvent})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	assertIDs(t, events, "jan")

	total, err := repo.Count(ctx, false)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 news items, got %d", total)
	}
}

func TestRepositoryPatchAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	item := &domainnews.Item{
		ID: "n1", Title: "Congreso", Category: domainnews.CategoryEvent, Content: "Detalles",
		Status: domainnews.StatusDraft, PublishedDate: &date, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	status := domainnews.StatusPublished
	extract := "Resumen"
	updated, err := repo.Update(ctx, "n1", domainnews.Patch{Status: &status, Extract: &extract, ClearPublishedDate: true}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != domainnews.StatusPublished || updated.Extract != "Resumen" {
		t.Fatalf("unexpected updated item %+v", updated)
	}
	if updated.PublishedDate != nil {
		t.Fatalf("expected published date cleared, got %v", updated.PublishedDate)
	}
	if updated.Content != "Detalles" || updated.Title != "Congreso" {
		t.Fatalf("expected untouched fields to survive, got %+v", updated)
	}

	if missing, err := repo.Update(ctx, "nope", domainnews.Patch{Status: &status}, now); err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing id, got %+v, %v", missing, err)
	}

	if err := repo.Delete(ctx, "n1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if gone, err := repo.GetByID(ctx, "n1"); err != nil || gone != nil {
		t.Fatalf("expected item to be deleted, got %+v, %v", gone, err)
	}
}

func TestRepositoryRejectsInvalidStatusAtSchemaLevel(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	now := time.Now().UTC()

	err := repo.Create(context.Background(), &domainnews.Item{
		ID: "bad", Title: "X", Category: domainnews.CategoryEvent, Status: "archived", CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatalf("expected check constraint violation")
	}
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "news.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := migrations.Apply(context.Background(), db, nil); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	repo, err := NewRepository(db, nil)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	return repo
}

func assertIDs(t *testing.T, items []domainnews.Item, ids ...string) {
	t.Helper()

	if len(items) != len(ids) {
		t.Fatalf("expected %d items %v, got %d", len(ids), ids, len(items))
	}
	for i, id := range ids {
		if items[i].ID != id {
			t.Fatalf("expected item %q at index %d, got %q", id, i, items[i].ID)
		}
	}
}
