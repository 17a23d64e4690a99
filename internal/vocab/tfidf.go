package vocab

import "math"

// TFIDF reweights bag-of-words vectors with inverse document frequency.
//
// One consistent "ntc" scheme (natural term frequency, smoothed log2 inverse
// document frequency, cosine normalization) is applied to both corpus
// documents and query vectors, keeping similarity scores comparable between
// the two sides. The add-one smoothing keeps corpus-universal terms at a
// small positive weight instead of erasing them.
type TFIDF struct {
	IDF []float64 // id → inverse document frequency
}

// NewTFIDF derives IDF weights from the dictionary's document frequencies.
func NewTFIDF(d *Dictionary) *TFIDF {
	idf := make([]float64, d.Size())
	for id, df := range d.DocFreq {
		if df > 0 {
			idf[id] = math.Log2(float64(d.NumDocs)/float64(df)) + 1
		}
	}
	return &TFIDF{IDF: idf}
}

// Transform reweights a bag-of-words vector to unit-length TF-IDF. Terms with
// ids outside the IDF table are ignored; a zero vector transforms to a zero
// vector rather than an error.
func (t *TFIDF) Transform(bow DocVector) DocVector {
	out := make(DocVector, 0, len(bow))
	var norm float64
	for _, term := range bow {
		if term.ID < 0 || term.ID >= len(t.IDF) {
			continue
		}
		w := term.Weight * t.IDF[term.ID]
		if w == 0 {
			continue
		}
		out = append(out, Term{ID: term.ID, Weight: w})
		norm += w * w
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range out {
			out[i].Weight /= norm
		}
	}
	return out
}

// TransformAll reweights a whole vectorized corpus, preserving document
// order.
func (t *TFIDF) TransformAll(bows []DocVector) []DocVector {
	out := make([]DocVector, len(bows))
	for i, bow := range bows {
		out[i] = t.Transform(bow)
	}
	return out
}

// Dense expands a sparse vector into a dense float slice of the given width.
func (v DocVector) Dense(width int) []float64 {
	dense := make([]float64, width)
	for _, term := range v {
		if term.ID >= 0 && term.ID < width {
			dense[term.ID] = term.Weight
		}
	}
	return dense
}
