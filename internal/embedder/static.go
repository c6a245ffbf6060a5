package embedder

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"

	"github.com/vecturakit/vectura/internal/vectormath"
	"github.com/vecturakit/vectura/internal/verrors"
)

// StaticDimensions is the embedding dimension produced by Static.
const StaticDimensions = 256

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Static is a deterministic, hash-based embedder with no external
// dependencies: useful for tests and offline use when semantic quality
// is secondary to availability. Grounded on the teacher's StaticEmbedder.
type Static struct{}

// NewStatic creates a Static embedder.
func NewStatic() *Static {
	return &Static{}
}

// Dimensions returns StaticDimensions.
func (s *Static) Dimensions(ctx context.Context) (int, error) {
	return StaticDimensions, nil
}

// Embed hashes text's tokens and trigrams into a fixed-size vector, then
// L2-normalizes it.
func (s *Static) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	vector := make([]float32, StaticDimensions)

	for _, token := range tokenize(trimmed) {
		vector[hashToIndex(token, StaticDimensions)] += tokenWeight
	}
	for _, gram := range extractNgrams(normalizeForNgrams(trimmed), ngramSize) {
		vector[hashToIndex(gram, StaticDimensions)] += ngramWeight
	}

	normalized, err := vectormath.Normalize(vector)
	if err != nil {
		// Degenerate input (e.g. text that hashes to an all-zero vector)
		// embeds as the zero vector rather than failing the caller.
		return vector, nil
	}
	return normalized, nil
}

// EmbedBatch embeds each text independently, in order.
func (s *Static) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := s.Embed(ctx, text)
		if err != nil {
			return nil, verrors.InvalidInput("embed text %d: %v", i, err)
		}
		out[i] = emb
	}
	return out, nil
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range splitCamelCase(word) {
			if lower := strings.ToLower(t); lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	grams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		grams = append(grams, text[i:i+n])
	}
	return grams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

var _ Embedder = (*Static)(nil)
