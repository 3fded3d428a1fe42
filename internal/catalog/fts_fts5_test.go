//go:build sqlite_fts5

package catalog

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities_fts`).Scan(&count); err != nil {
		t.Fatalf("entities_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := EntityRow{
		Path:      "fts.testcase.yaml",
		ID:        "FTS",
		Kind:      "case",
		Title:     "FTS case",
		Checksum:  "f1",
		Tags:      []string{"search"},
		UpdatedAt: time.Now(),
	}
	if err := db.Upsert(row, "the checkout button stays disabled after coupon entry", nil, nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := db.Search(Query{Text: "coupon", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "fts.testcase.yaml" || results[0].ID != "FTS" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(EntityRow{Path: "gone.testcase.yaml", Checksum: "g"}, "vanishing content", nil, nil)
	_ = db.Delete("gone.testcase.yaml")

	results, _ := db.Search(Query{Text: "vanishing"})
	for _, r := range results {
		if r.Path == "gone.testcase.yaml" {
			t.Error("deleted entity still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(EntityRow{Path: "evo.testcase.yaml", Title: "Old", Checksum: "1", UpdatedAt: now}, "original text", nil, nil)
	_ = db.Upsert(EntityRow{Path: "evo.testcase.yaml", Title: "New", Checksum: "2", UpdatedAt: now}, "replacement text", nil, nil)

	results, _ := db.Search(Query{Text: "original"})
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(Query{Text: "replacement"})
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_IDWithHyphenIsQuoted(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(EntityRow{Path: "TC-42.testcase.yaml", ID: "TC-42", Kind: "case", Title: "Answer", Checksum: "1"}, "", nil, nil)

	results, err := db.Search(Query{Text: "TC-42"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "TC-42" {
		t.Errorf("results = %+v", results)
	}
}
