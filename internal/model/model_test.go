package model

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aekrylov/kadrec/internal/textproc"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// toyCorpus builds a small normalized, tokenized and vectorized corpus with
// two clear clusters: rental disputes and tax disputes.
func toyCorpus(t *testing.T) (tokenized [][]string, bows []vocab.DocVector, dict *vocab.Dictionary) {
	t.Helper()
	texts := []string{
		"ООО Ромашка должна арендную плату SUM по договору аренды помещения",
		"ООО Василек обязано уплатить SUM долга по договору аренды помещения",
		"взыскание арендной платы SUM по договору аренды склада",
		"налоговый орган доначислил NUM налога на прибыль организации",
		"решение налогового органа о доначислении налога признано недействительным",
		"налоговый орган взыскал NUM штрафа за неуплату налога",
	}

	tok := textproc.NewTokenizer("russian")
	tokenized = make([][]string, len(texts))
	for i, text := range texts {
		tokenized[i] = tok.Tokenize(text)
	}

	dict = vocab.Build(tokenized, vocab.BuildOptions{MinDocFreq: 1, MaxDocFrac: 1.0})
	bows = make([]vocab.DocVector, len(tokenized))
	for i, tokens := range tokenized {
		bows[i] = dict.BOW(tokens)
	}
	return tokenized, bows, dict
}

// fitAll trains every variant on the toy corpus with deterministic seeds.
func fitAll(t *testing.T) map[Kind]Model {
	t.Helper()
	tokenized, bows, dict := toyCorpus(t)

	lsi, err := FitLSI(bows, dict, 3)
	if err != nil {
		t.Fatalf("FitLSI() error = %v", err)
	}
	lda, err := FitLDA(bows, dict, 3, LDAOptions{Iterations: 30, Workers: 1, Seed: 42})
	if err != nil {
		t.Fatalf("FitLDA() error = %v", err)
	}
	artm, err := FitARTM(bows, dict, 3, DefaultARTMOptions())
	if err != nil {
		t.Fatalf("FitARTM() error = %v", err)
	}
	d2v, err := FitDoc2Vec(tokenized, 8, Doc2VecOptions{Epochs: 30, Negative: 3, Rate: 0.05, MinCount: 1, Seed: 7})
	if err != nil {
		t.Fatalf("FitDoc2Vec() error = %v", err)
	}

	return map[Kind]Model{KindLSI: lsi, KindLDA: lda, KindARTM: artm, KindDoc2Vec: d2v}
}

// query builds the right Query flavor for a corpus member, per model kind.
func memberQuery(kind Kind, tokenized [][]string, bows []vocab.DocVector, i int) Query {
	if kind == KindDoc2Vec {
		return TokenQuery(tokenized[i], i)
	}
	return VectorQuery(bows[i], i)
}

func TestGetSimilarContract(t *testing.T) {
	tokenized, bows, _ := toyCorpus(t)
	models := fitAll(t)

	for kind, m := range models {
		t.Run(string(kind), func(t *testing.T) {
			if m.Kind() != kind {
				t.Errorf("Kind() = %q, want %q", m.Kind(), kind)
			}
			for i := range bows {
				ids := m.GetSimilar(memberQuery(kind, tokenized, bows, i), 3)
				if len(ids) == 0 {
					t.Fatalf("GetSimilar(doc %d) returned no results", i)
				}
				if len(ids) > 3 {
					t.Errorf("GetSimilar(doc %d) returned %d ids, want at most 3", i, len(ids))
				}
				for _, id := range ids {
					if id == i {
						t.Errorf("GetSimilar(doc %d) includes the query document itself", i)
					}
					if id < 0 || id >= len(bows) {
						t.Errorf("GetSimilar(doc %d) returned out-of-range id %d", i, id)
					}
				}
			}
		})
	}
}

// LSI is deterministic: within the rental cluster, the nearest neighbor of
// doc 0 must come from the same cluster.
func TestLSIClusterRanking(t *testing.T) {
	_, bows, dict := toyCorpus(t)
	m, err := FitLSI(bows, dict, 3)
	if err != nil {
		t.Fatalf("FitLSI() error = %v", err)
	}

	ids := m.GetSimilar(VectorQuery(bows[0], 0), 2)
	if len(ids) == 0 {
		t.Fatal("no results")
	}
	if ids[0] != 1 && ids[0] != 2 {
		t.Errorf("nearest neighbor of rental doc 0 = %d, want a rental doc (1 or 2)", ids[0])
	}
}

func TestGetSimilarUnknownTerms(t *testing.T) {
	tokenized, bows, _ := toyCorpus(t)
	_ = tokenized
	models := fitAll(t)

	for kind, m := range models {
		if kind == KindDoc2Vec {
			continue // token queries are exercised separately below
		}
		t.Run(string(kind), func(t *testing.T) {
			// a vocabulary-disjoint query degrades to an empty result
			ids := m.GetSimilar(VectorQuery(nil, -1), 5)
			if len(ids) != 0 {
				t.Errorf("GetSimilar(empty vector) = %v, want empty", ids)
			}
			_ = bows
		})
	}
}

// Corpus-member LDA queries rank with the mixture fitted during training,
// not a re-derived fold-in, so the member's vector payload is irrelevant.
func TestLDAMemberQueryUsesFittedMixture(t *testing.T) {
	_, bows, dict := toyCorpus(t)
	m, err := FitLDA(bows, dict, 3, LDAOptions{Iterations: 30, Workers: 1, Seed: 42})
	if err != nil {
		t.Fatalf("FitLDA() error = %v", err)
	}

	for i := range bows {
		withVec := m.GetSimilar(VectorQuery(bows[i], i), 5)
		bare := m.GetSimilar(Query{Self: i}, 5)
		if len(bare) == 0 {
			t.Fatalf("doc %d: member query without vector returned no results", i)
		}
		if !reflect.DeepEqual(withVec, bare) {
			t.Errorf("doc %d: member ranking depends on the vector payload: %v != %v", i, withVec, bare)
		}
		for _, id := range bare {
			if id == i {
				t.Errorf("doc %d: member query includes the document itself", i)
			}
		}
	}
}

func TestDoc2VecInferDeterministic(t *testing.T) {
	tokenized, _, _ := toyCorpus(t)
	m, err := FitDoc2Vec(tokenized, 8, Doc2VecOptions{Epochs: 20, Negative: 3, Rate: 0.05, MinCount: 1, Seed: 7})
	if err != nil {
		t.Fatalf("FitDoc2Vec() error = %v", err)
	}

	query := []string{"договор", "аренд", "помещен"}
	a := m.GetSimilar(TokenQuery(query, -1), 4)
	b := m.GetSimilar(TokenQuery(query, -1), 4)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated inference ranked differently: %v != %v", a, b)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tokenized, bows, _ := toyCorpus(t)
	models := fitAll(t)
	dir := t.TempDir()

	for kind, m := range models {
		t.Run(string(kind), func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("model.%s", kind))
			if err := Save(path, m); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.Kind() != kind {
				t.Errorf("loaded Kind() = %q, want %q", loaded.Kind(), kind)
			}

			for i := range bows {
				q := memberQuery(kind, tokenized, bows, i)
				want := m.GetSimilar(q, 5)
				got := loaded.GetSimilar(q, 5)
				if !reflect.DeepEqual(got, want) {
					t.Errorf("doc %d: ranked ids changed across round trip: %v != %v", i, got, want)
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.lsi")); err == nil {
		t.Error("Load() on a missing file = nil error, want failure")
	}
}

// End-to-end scenario over the full pipeline: normalization replaces amounts
// with SUM, preserves ООО, and the dense-subspace model ranks the other
// rental ruling first.
func TestPipelineEndToEnd(t *testing.T) {
	raws := []string{
		"ООО Ромашка должна 1000000 руб.",
		"ООО Ромашка обязана уплатить 50000 руб.",
		"взыскание долга по договору подряда между сторонами",
	}

	norm := textproc.NewNormalizer(textproc.DefaultOptions())
	tok := textproc.NewTokenizer("russian")

	tokenized := make([][]string, len(raws))
	for i, raw := range raws {
		text := norm.Normalize(raw)
		if i < 2 {
			if !strings.Contains(text, "SUM") {
				t.Fatalf("doc %d: normalized text %q lacks SUM token", i, text)
			}
			if !strings.Contains(text, "ООО") {
				t.Fatalf("doc %d: normalized text %q lost ООО", i, text)
			}
		}
		tokenized[i] = tok.Tokenize(text)
	}

	dict := vocab.Build(tokenized, vocab.BuildOptions{MinDocFreq: 1, MaxDocFrac: 1.0})
	if _, ok := dict.Token2ID["ооо"]; !ok {
		t.Fatal("vocabulary lacks ооо")
	}
	if _, ok := dict.Token2ID["ромашк"]; !ok {
		t.Fatal("vocabulary lacks stemmed ромашк")
	}

	bows := make([]vocab.DocVector, len(tokenized))
	for i, tokens := range tokenized {
		bows[i] = dict.BOW(tokens)
	}

	m, err := FitLSI(bows, dict, 2)
	if err != nil {
		t.Fatalf("FitLSI() error = %v", err)
	}
	ids := m.GetSimilar(VectorQuery(bows[0], 0), 1)
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("most similar to doc 0 = %v, want [1]", ids)
	}
}
