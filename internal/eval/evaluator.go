// Package eval scores the ranking quality of a fitted similarity model
// against held-out user relevance judgments: mean average precision,
// precision@k and discounted cumulative gain, each with a "known-only"
// variant that restricts scoring to candidates with recorded evidence.
package eval

import (
	"log/slog"
	"math"

	"github.com/aekrylov/kadrec/internal/model"
	"github.com/aekrylov/kadrec/internal/ratings"
)

// DefaultTopN is how many recommendations are requested per judged document.
const DefaultTopN = 20

// DefaultCutOff excludes documents with fewer distinct judged candidates;
// sparser ground truth cannot be scored reliably.
const DefaultCutOff = 20

// Scores aggregates the corpus-level ranking metrics.
type Scores struct {
	MAP                   float64 `json:"map"`
	MAPKnown              float64 `json:"map_known"`
	MeanPrecisionAtK      float64 `json:"mean_p_at_k"`
	MeanPrecisionAtKKnown float64 `json:"mean_p_at_k_known"`
	MeanDCG               float64 `json:"mean_dcg"`
	MeanDCGKnown          float64 `json:"mean_dcg_known"`
}

// Evaluator holds the ground-truth relevance judgments, keyed by document
// index and candidate index.
type Evaluator struct {
	TopN     int
	testData map[int]map[int]int
}

// New builds ground truth from rating tuples. Relevance is treated as
// symmetric: an observed (A, B, score) also registers (B, A, score) unless
// that direction already has an explicit value. Documents with fewer than
// cutOff judged candidates are dropped.
func New(rs []ratings.Rating, cutOff int) *Evaluator {
	testData := make(map[int]map[int]int)
	judge := func(doc, rec, value int, overwrite bool) {
		m, ok := testData[doc]
		if !ok {
			m = make(map[int]int)
			testData[doc] = m
		}
		if _, exists := m[rec]; exists && !overwrite {
			return
		}
		m[rec] = value
	}
	for _, r := range rs {
		judge(r.DocID, r.RecommendationID, r.Value, true)
		judge(r.RecommendationID, r.DocID, r.Value, false)
	}

	for doc, candidates := range testData {
		if len(candidates) < cutOff {
			delete(testData, doc)
		}
	}

	return &Evaluator{TopN: DefaultTopN, testData: testData}
}

// Len returns the number of evaluable documents.
func (e *Evaluator) Len() int { return len(e.testData) }

// Evaluate scores a model over every judged document. queryFor must produce
// the model-appropriate query for a corpus index (the positional contract
// means rating document ids are corpus indices). Documents whose metric is
// undefined (NaN) are excluded from each aggregate instead of biasing it.
func (e *Evaluator) Evaluate(m model.Model, queryFor func(doc int) model.Query) Scores {
	var ap, apKnown, pAtK, pAtKKnown, dcg, dcgKnown []float64

	for doc, scores := range e.testData {
		recs := m.GetSimilar(queryFor(doc), e.TopN)

		ap = append(ap, averagePrecision(recs, scores, false))
		apKnown = append(apKnown, averagePrecision(recs, scores, true))
		pAtK = append(pAtK, precision(recs, scores, false))
		pAtKKnown = append(pAtKKnown, precision(recs, scores, true))
		dcg = append(dcg, discountedGain(recs, scores, false))
		dcgKnown = append(dcgKnown, discountedGain(recs, scores, true))
	}

	result := Scores{
		MAP:                   meanDefined(ap),
		MAPKnown:              meanDefined(apKnown),
		MeanPrecisionAtK:      meanDefined(pAtK),
		MeanPrecisionAtKKnown: meanDefined(pAtKKnown),
		MeanDCG:               meanDefined(dcg),
		MeanDCGKnown:          meanDefined(dcgKnown),
	}
	slog.Info("model evaluated", "kind", m.Kind(), "documents", len(e.testData),
		"map", result.MAP, "map_known", result.MAPKnown)
	return result
}

// precision is the fraction of recommendations with positive relevance.
// Unknown candidates count as non-relevant unless removeUnknown strips them
// before scoring. Returns NaN for an empty candidate list.
func precision(recs []int, scores map[int]int, removeUnknown bool) float64 {
	if removeUnknown {
		recs = knownOnly(recs, scores)
	}
	if len(recs) == 0 {
		return math.NaN()
	}
	hits := 0
	for _, rec := range recs {
		if scores[rec] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(recs))
}

// averagePrecision averages Precision@k over the positions k whose k-th item
// is relevant, which is the standard Average Precision definition.
func averagePrecision(recs []int, scores map[int]int, removeUnknown bool) float64 {
	kValues := make([]int, 0, len(recs))
	for k := 1; k < len(recs); k++ {
		if removeUnknown && scores[recs[k-1]] == 0 {
			continue
		}
		kValues = append(kValues, k)
	}
	if len(kValues) == 0 {
		return math.NaN()
	}

	var sum float64
	for _, k := range kValues {
		rel := 0.0
		if scores[recs[k-1]] > 0 {
			rel = 1.0
		}
		sum += precision(recs[:k], scores, false) * rel
	}
	return sum / float64(len(kValues))
}

// discountedGain sums the relevance indicator over ranked positions with a
// logarithmic position discount.
func discountedGain(recs []int, scores map[int]int, removeUnknown bool) float64 {
	if removeUnknown {
		recs = knownOnly(recs, scores)
	}
	var sum float64
	for i, rec := range recs {
		if scores[rec] > 0 {
			sum += 1.0 / math.Log2(float64(i)+2)
		}
	}
	return sum
}

// knownOnly filters candidates without recorded evidence.
func knownOnly(recs []int, scores map[int]int) []int {
	out := make([]int, 0, len(recs))
	for _, rec := range recs {
		if scores[rec] != 0 {
			out = append(out, rec)
		}
	}
	return out
}

// meanDefined averages the defined values, excluding NaN entries entirely
// rather than propagating them or treating them as zero.
func meanDefined(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
