package volume

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"juvenis/app/internal/data/database"
	"juvenis/app/internal/data/migrations"
	domainvolume "juvenis/app/internal/domain/volume"
)

func TestRepositoryListOrdersByYearThenOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []domainvolume.Volume{
		{ID: "a", Title: "A", Number: "1", Year: "2024", Order: 0, Published: true, CreatedAt: base},
		{ID: "b", Title: "B", Number: "2", Year: "2025", Order: 1, Published: true, CreatedAt: base},
		{ID: "c", Title: "C", Number: "3", Year: "2025", Order: 5, Published: false, CreatedAt: base},
		{ID: "d", Title: "D", Number: "4", Year: "2025", Order: 1, Published: true, CreatedAt: base.Add(time.Hour)},
	}
	for i := range seed {
		seed[i].UpdatedAt = seed[i].CreatedAt
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	all, err := repo.List(ctx, domainvolume.ListOptions{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	assertIDs(t, all, "c", "d", "b", "a")

	published, err := repo.List(ctx, domainvolume.ListOptions{PublishedOnly: true})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	assertIDs(t, published, "d", "b", "a")

	limited, err := repo.List(ctx, domainvolume.ListOptions{PublishedOnly: true, Limit: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	assertIDs(t, limited, "d", "b")

	count, err := repo.Count(ctx, true)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 published volumes, got %d", count)
	}
}

func TestRepositoryRoundTripAndPatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	volume := &domainvolume.Volume{
		ID: "v1", Title: "Test", Number: "Vol. 16, No. 1", Year: "2026",
		CoverURL: "http://x/storage/covers/a.png", Content: "Intro",
		CreatedAt: created, UpdatedAt: created,
	}
	if err := repo.Create(ctx, volume); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	fetched, err := repo.GetByID(ctx, "v1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if fetched == nil || fetched.Number != "Vol. 16, No. 1" || fetched.CoverURL != volume.CoverURL {
		t.Fatalf("unexpected fetched volume %+v", fetched)
	}
	if !fetched.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %v, got %v", created, fetched.CreatedAt)
	}

	published := true
	emptyPDF := ""
	later := created.Add(time.Hour)
	updated, err := repo.Update(ctx, "v1", domainvolume.Patch{Published: &published, PDFURL: &emptyPDF}, later)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !updated.Published || updated.Title != "Test" || updated.Content != "Intro" {
		t.Fatalf("expected only published to change, got %+v", updated)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Fatalf("expected updated_at %v, got %v", later, updated.UpdatedAt)
	}

	missing, err := repo.Update(ctx, "nope", domainvolume.Patch{Published: &published}, later)
	if err != nil {
		t.Fatalf("Update of missing id returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing id")
	}

	if err := repo.Delete(ctx, "v1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	gone, err := repo.GetByID(ctx, "v1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected volume to be deleted")
	}
	if err := repo.Delete(ctx, "v1"); err != nil {
		t.Fatalf("expected deleting missing id to succeed, got %v", err)
	}
}

func TestRepositorySearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, v := range []domainvolume.Volume{
		{ID: "a", Title: "Neurociencia juvenil", Number: "Vol. 1", Year: "2024", Published: true},
		{ID: "b", Title: "100% ciencia", Number: "Vol. 2", Year: "2025", Published: true},
		{ID: "c", Title: "Historia", Number: "Vol. 3_especial", Year: "2025", Published: false},
		{ID: "d", Title: "Época de Investigación", Number: "Vol. 4", Year: "2023", Published: true},
	} {
		v.CreatedAt, v.UpdatedAt = now, now
		if err := repo.Create(ctx, &v); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	cases := []struct {
		name string
		opts domainvolume.SearchOptions
		want []string
	}{
		{"ascii upper", domainvolume.SearchOptions{Query: "CIENCIA"}, []string{"b", "a"}},
		{"ascii mixed", domainvolume.SearchOptions{Query: "cIeNcIa"}, []string{"b", "a"}},
		{"accented lower", domainvolume.SearchOptions{Query: "época"}, []string{"d"}},
		{"accented upper", domainvolume.SearchOptions{Query: "ÉPOCA"}, []string{"d"}},
		{"accented upper suffix", domainvolume.SearchOptions{Query: "INVESTIGACIÓN"}, []string{"d"}},
		{"accented exact", domainvolume.SearchOptions{Query: "investigación"}, []string{"d"}},
		{"padded mixed", domainvolume.SearchOptions{Query: "  Época De "}, []string{"d"}},
		{"percent literal", domainvolume.SearchOptions{Query: "%"}, []string{"b"}},
		{"percent in word", domainvolume.SearchOptions{Query: "100%"}, []string{"b"}},
		{"underscore literal", domainvolume.SearchOptions{Query: "_"}, []string{"c"}},
		{"underscore upper", domainvolume.SearchOptions{Query: "3_ESPECIAL"}, []string{"c"}},
		{"percent is not a wildcard", domainvolume.SearchOptions{Query: "3%especial"}, nil},
		{"underscore is not a wildcard", domainvolume.SearchOptions{Query: "vol._"}, nil},
		{"year and published", domainvolume.SearchOptions{Query: "VOL", Year: "2025", PublishedOnly: true}, []string{"b"}},
	}

	for _, tc := range cases {
		results, err := repo.Search(ctx, tc.opts)
		if err != nil {
			t.Fatalf("%s: Search returned error: %v", tc.name, err)
		}
		if len(results) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %d volumes", tc.name, tc.want, len(results))
		}
		for i, id := range tc.want {
			if results[i].ID != id {
				t.Fatalf("%s: expected %q at index %d, got %q", tc.name, id, i, results[i].ID)
			}
		}
	}
}

func TestRepositorySearchFollowsPatchedTitle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	v := domainvolume.Volume{ID: "a", Title: "Historia", Number: "Vol. 1", Year: "2024", CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, &v); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	title := "Árboles de Álgebra"
	number := "Nº ÚNICO"
	if _, err := repo.Update(ctx, "a", domainvolume.Patch{Title: &title, Number: &number}, now.Add(time.Hour)); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	for _, query := range []string{"árboles", "ÁLGEBRA", "único"} {
		results, err := repo.Search(ctx, domainvolume.SearchOptions{Query: query})
		if err != nil {
			t.Fatalf("Search(%q) returned error: %v", query, err)
		}
		assertIDs(t, results, "a")
	}

	results, err := repo.Search(ctx, domainvolume.SearchOptions{Query: "historia"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	assertIDs(t, results)
}

func TestNewRepositoryRequiresDB(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when db is nil")
	}
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db := openTestDB(t)
	repo, err := NewRepository(db, nil)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	return repo
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "volumes.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := migrations.Apply(context.Background(), db, nil); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	return db
}

func assertIDs(t *testing.T, volumes []domainvolume.Volume, ids ...string) {
	t.Helper()

	if len(volumes) != len(ids) {
		t.Fatalf("expected %d volumes %v, got %d", len(ids), ids, len(volumes))
	}
	for i, id := range ids {
		if volumes[i].ID != id {
			t.Fatalf("expected volume %q at index %d, got %q", id, i, volumes[i].ID)
		}
	}
}
