package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aekrylov/kadrec/internal/corpus"
	"github.com/aekrylov/kadrec/internal/model"
	"github.com/aekrylov/kadrec/internal/ratings"
	"github.com/aekrylov/kadrec/internal/textproc"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// fixedModel ranks every document except the query itself, in corpus order.
// A query with an empty vector and no tokens yields nothing, matching the
// degradation contract of the real models.
type fixedModel struct {
	kind model.Kind
	docs int
}

func (f *fixedModel) Kind() model.Kind { return f.kind }

func (f *fixedModel) GetSimilar(q model.Query, topN int) []int {
	if q.Self < 0 && len(q.Vec) == 0 && len(q.Tokens) == 0 {
		return nil
	}
	var out []int
	for i := 0; i < f.docs && len(out) < topN; i++ {
		if i == q.Self {
			continue
		}
		out = append(out, i)
	}
	return out
}

func testSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	tok := textproc.NewTokenizer("russian")
	texts := []string{
		"взыскать задолженность по договору аренды",
		"договор аренды нежилого помещения расторгнуть",
		"налоговый орган доначислил налог",
	}
	c := &corpus.Corpus{IDs: []string{"a1", "b2", "c3"}, Texts: texts}
	return corpus.BuildSnapshot(c, tok, vocab.BuildOptions{MinDocFreq: 1, MaxDocFrac: 1.0})
}

func testService(t *testing.T, store *ratings.Store) *Service {
	t.Helper()
	snap := testSnapshot(t)
	models := map[model.Kind]model.Model{
		model.KindLSI: &fixedModel{kind: model.KindLSI, docs: len(snap.IDs)},
	}
	svc, err := NewService(snap, models,
		textproc.NewNormalizer(textproc.DefaultOptions()), textproc.NewTokenizer("russian"), store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSimilarForDocument(t *testing.T) {
	svc := testService(t, nil)

	ids, err := svc.SimilarForDocument(model.KindLSI, "a1", 10)
	if err != nil {
		t.Fatalf("SimilarForDocument: %v", err)
	}
	want := []string{"b2", "c3"}
	if len(ids) != len(want) {
		t.Fatalf("got %d results, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("result[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSimilarForDocumentErrors(t *testing.T) {
	svc := testService(t, nil)

	if _, err := svc.SimilarForDocument(model.KindLSI, "missing", 10); err == nil {
		t.Error("expected error for unknown document id")
	}
	if _, err := svc.SimilarForDocument("bogus", "a1", 10); err == nil {
		t.Error("expected error for unknown model kind")
	}
}

func TestSimilarForTextVectorizes(t *testing.T) {
	svc := testService(t, nil)

	ids, err := svc.SimilarForText(model.KindLSI, "иск о взыскании задолженности по договору", 10)
	if err != nil {
		t.Fatalf("SimilarForText: %v", err)
	}
	if len(ids) == 0 {
		t.Error("expected results for text sharing corpus vocabulary")
	}
}

func TestSimilarForTextOutOfVocabulary(t *testing.T) {
	svc := testService(t, nil)

	// no token survives the dictionary, so the query vector is empty and the
	// answer is a valid empty list
	ids, err := svc.SimilarForText(model.KindLSI, "совершенно посторонние слова", 10)
	if err != nil {
		t.Fatalf("SimilarForText: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("got %d results for out-of-vocabulary text, want 0", len(ids))
	}
}

func TestRecordRatingMapsToIndices(t *testing.T) {
	store, err := ratings.Open(filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("ratings.Open: %v", err)
	}
	defer store.Close()

	svc := testService(t, store)
	ctx := context.Background()

	if err := svc.RecordRating(ctx, "a1", "b2", 5, "tester"); err != nil {
		t.Fatalf("RecordRating: %v", err)
	}
	if err := svc.RecordRating(ctx, "a1", "missing", 5, "tester"); err == nil {
		t.Error("expected error for unknown recommendation id")
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d ratings, want 1", len(all))
	}
	// "a1" is snapshot index 0, "b2" is index 1
	if all[0].DocID != 0 || all[0].RecommendationID != 1 {
		t.Errorf("rating = (%d, %d), want (0, 1)", all[0].DocID, all[0].RecommendationID)
	}
}

func TestHTTPSimilarEndpoint(t *testing.T) {
	srv := NewServer(testService(t, nil), 20)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/similar?doc=a1&model=lsi&n=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body similarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Model != "lsi" {
		t.Errorf("model = %q, want lsi", body.Model)
	}
	if len(body.Results) != 1 || body.Results[0] != "b2" {
		t.Errorf("results = %v, want [b2]", body.Results)
	}
}

func TestHTTPSimilarUnknownDocument(t *testing.T) {
	srv := NewServer(testService(t, nil), 20)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/similar?doc=missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHTTPSimilarTextEmptyResult(t *testing.T) {
	srv := NewServer(testService(t, nil), 20)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	payload := `{"text": "совершенно посторонние слова", "model": "lsi"}`
	resp, err := http.Post(ts.URL+"/api/v1/similar-text", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for valid empty result", resp.StatusCode)
	}

	var body similarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Results == nil || len(body.Results) != 0 {
		t.Errorf("results = %v, want empty list (not null)", body.Results)
	}
}

func TestHTTPRatingEndpoint(t *testing.T) {
	store, err := ratings.Open(filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("ratings.Open: %v", err)
	}
	defer store.Close()

	srv := NewServer(testService(t, store), 20)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	payload := `{"doc_id": "a1", "recommendation_id": "c3", "value": 4, "reporter": "tester"}`
	resp, err := http.Post(ts.URL+"/api/v1/ratings", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
}

func TestHTTPStatus(t *testing.T) {
	srv := NewServer(testService(t, nil), 20)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Documents != 3 {
		t.Errorf("documents = %d, want 3", body.Documents)
	}
	if len(body.Models) != 1 || body.Models[0] != "lsi" {
		t.Errorf("models = %v, want [lsi]", body.Models)
	}
}
