package cluster

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// sparseVec maps feature index to TF-IDF weight.
type sparseVec map[int]float64

// vectorize builds the combined feature space: a word n-gram TF-IDF space
// and a character n-gram TF-IDF space, each l2-normalized on its own, then
// stacked side by side.
func vectorize(texts []string, cfg Config) []sparseVec {
	stop := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		w = strings.TrimSpace(strings.ToLower(w))
		if w != "" {
			stop[w] = struct{}{}
		}
	}

	wordDocs := make([][]string, len(texts))
	charDocs := make([][]string, len(texts))
	for i, text := range texts {
		wordDocs[i] = wordNgrams(text, cfg.WordNgramMin, cfg.WordNgramMax, stop)
		charDocs[i] = charNgrams(text, cfg.CharNgramMin, cfg.CharNgramMax)
	}

	wordVecs, wordDims := tfidf(wordDocs, cfg.MinDocumentFreq, cfg.MaxDocumentFreqFrac)
	charVecs, _ := tfidf(charDocs, cfg.MinDocumentFreq, cfg.MaxDocumentFreqFrac)

	combined := make([]sparseVec, len(texts))
	for i := range texts {
		vec := make(sparseVec, len(wordVecs[i])+len(charVecs[i]))
		for idx, w := range wordVecs[i] {
			vec[idx] = w
		}
		for idx, w := range charVecs[i] {
			vec[wordDims+idx] = w
		}
		combined[i] = vec
	}
	return combined
}

func wordNgrams(text string, minN, maxN int, stop map[string]struct{}) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, tok := range fields {
		if _, skip := stop[tok]; skip {
			continue
		}
		tokens = append(tokens, tok)
	}

	var grams []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

func charNgrams(text string, minN, maxN int) []string {
	runes := []rune(text)
	var grams []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

// tfidf prunes terms by document frequency, weights with smoothed IDF and
// l2-normalizes each document. Vocabulary order is sorted, so feature
// indices are deterministic.
func tfidf(docs [][]string, minDF int, maxDFFrac float64) ([]sparseVec, int) {
	n := len(docs)
	df := make(map[string]int)
	for _, terms := range docs {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	maxDF := maxDFFrac * float64(n)
	vocabTerms := make([]string, 0, len(df))
	for term, count := range df {
		if count < minDF || float64(count) > maxDF {
			continue
		}
		vocabTerms = append(vocabTerms, term)
	}
	sort.Strings(vocabTerms)

	vocab := make(map[string]int, len(vocabTerms))
	idf := make([]float64, len(vocabTerms))
	for i, term := range vocabTerms {
		vocab[term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	vectors := make([]sparseVec, n)
	for docIdx, terms := range docs {
		counts := make(map[int]int)
		for _, t := range terms {
			if idx, ok := vocab[t]; ok {
				counts[idx]++
			}
		}
		vec := make(sparseVec, len(counts))
		var normSq float64
		for idx, count := range counts {
			w := float64(count) * idf[idx]
			vec[idx] = w
			normSq += w * w
		}
		if normSq > 0 {
			norm := math.Sqrt(normSq)
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		vectors[docIdx] = vec
	}
	return vectors, len(vocabTerms)
}

// distanceMatrix computes pairwise cosine distances over the combined
// feature space. Documents whose vector pruned down to zero cannot be
// compared and sit at maximum distance from everything.
func distanceMatrix(vectors []sparseVec) *mat.SymDense {
	n := len(vectors)
	norms := make([]float64, n)
	for i, vec := range vectors {
		var normSq float64
		for _, w := range vec {
			normSq += w * w
		}
		norms[i] = math.Sqrt(normSq)
	}

	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, cosineDistance(vectors[i], vectors[j], norms[i], norms[j]))
		}
	}
	return d
}

func cosineDistance(a, b sparseVec, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 1
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var dot float64
	for idx, w := range small {
		if other, ok := large[idx]; ok {
			dot += w * other
		}
	}
	distance := 1 - dot/(normA*normB)
	switch {
	case distance < 0:
		return 0
	case distance > 1:
		return 1
	default:
		return distance
	}
}
