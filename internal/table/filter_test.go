package table

import "testing"

func TestFilterExtractsSingle(t *testing.T) {
	result := Multiple(map[string]Table{
		"en": sampleTable(),
		"pt": {Columns: []string{"code"}, Rows: [][]string{{"432"}}},
	})

	filtered, err := Filter(result, "pt")
	if err != nil {
		t.Fatalf("filter error: %v", err)
	}
	if !filtered.IsSingle() {
		t.Fatalf("filter with key must return single")
	}
	got, _ := filtered.Table()
	if got.RowCount() != 1 || got.Columns[0] != "code" {
		t.Fatalf("wrong table extracted: %+v", got)
	}
}

func TestFilterWithoutKeyPassesThrough(t *testing.T) {
	multi := Multiple(map[string]Table{"en": sampleTable(), "pt": sampleTable()})
	filtered, err := Filter(multi, "")
	if err != nil {
		t.Fatalf("filter error: %v", err)
	}
	if filtered.IsSingle() {
		t.Fatalf("multi-table result without key should pass through")
	}
}

func TestFilterWrapsLoneTable(t *testing.T) {
	lone := Multiple(map[string]Table{"only": sampleTable()})
	filtered, err := Filter(lone, "")
	if err != nil {
		t.Fatalf("filter error: %v", err)
	}
	if !filtered.IsSingle() {
		t.Fatalf("lone table should collapse to single")
	}
}

func TestFilterUnknownKey(t *testing.T) {
	multi := Multiple(map[string]Table{"en": sampleTable()})
	if _, err := Filter(multi, "fr"); err == nil {
		t.Fatalf("expected error for unknown table key")
	}
}

func TestAnnotateDoesNotMutate(t *testing.T) {
	src := sampleTable()
	result := Single(src)
	annotated, prov := Annotate(result, SourceRemote, "en", 2, []string{"note"})
	if prov.Source != SourceRemote || prov.Retries != 2 || prov.TableKey != "en" {
		t.Fatalf("unexpected provenance: %+v", prov)
	}
	got, _ := annotated.Table()
	if got.RowCount() != src.RowCount() || got.Rows[0][0] != src.Rows[0][0] {
		t.Fatalf("annotate changed table content")
	}
	if prov.FetchedAt.IsZero() {
		t.Fatalf("fetched_at must be set")
	}
}
