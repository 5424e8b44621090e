package reader

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
)

// Indexer turns a title's raw chapter feed into a reading sequence.
type Indexer struct {
	catalog sources.Catalog
	log     *zap.Logger
}

func NewIndexer(catalog sources.Catalog, log *zap.Logger) *Indexer {
	return &Indexer{catalog: catalog, log: log.Named("indexer")}
}

// Index fetches the feed of titleID and returns its chapter sequence. Errors
// are the catalog's *sources.FetchError, unchanged.
func (i *Indexer) Index(ctx context.Context, titleID string) ([]data.Chapter, error) {
	feed, err := i.catalog.GetChapters(ctx, titleID)
	if err != nil {
		i.log.Warn("Unable to fetch chapter feed", zap.String("title", titleID), zap.Error(err))
		return nil, err
	}
	chapters := Build(feed)
	i.log.Debug("Indexed chapters",
		zap.String("title", titleID),
		zap.Int("feed", len(feed)),
		zap.Int("chapters", len(chapters)))
	return chapters, nil
}

// Build deduplicates feed by chapter label and sorts it by the label's numeric
// value. Entries without a label are dropped. When a label repeats, the later
// entry replaces the earlier one but keeps the position the label was first
// seen at, so ties in numeric value ("10" and "10.0") come out in first-seen
// order. Labels with a leading number ("5a") sort by that number; labels that
// do not start with one go last, in natural order.
func Build(feed []data.Chapter) []data.Chapter {
	out := make([]data.Chapter, 0, len(feed))
	pos := make(map[string]int, len(feed))
	for _, ch := range feed {
		if ch.Number == "" {
			continue
		}
		if i, ok := pos[ch.Number]; ok {
			out[i] = ch
			continue
		}
		pos[ch.Number] = len(out)
		out = append(out, ch)
	}

	keys := make([]float64, len(out))
	numeric := make([]bool, len(out))
	for i, ch := range out {
		keys[i], numeric[i] = chapterNumber(ch.Number)
	}
	sort.Stable(byNumber{chapters: out, keys: keys, numeric: numeric})
	return out
}

// chapterNumber reads the leading number of label, so "5a" counts as 5.
func chapterNumber(label string) (float64, bool) {
	label = strings.TrimSpace(label)
	v, err := strconv.ParseFloat(label, 64)
	if err != nil {
		prefix := numericPrefix(label)
		if prefix == "" {
			return 0, false
		}
		if v, err = strconv.ParseFloat(prefix, 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// numericPrefix returns the longest leading [+-]digits[.digits] of s, or ""
// when s does not start with a number.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for ; j < len(s) && s[j] >= '0' && s[j] <= '9'; j++ {
			digits++
		}
		if j > i+1 || digits > 0 {
			i = j
		}
	}
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(s[:i], ".")
}

type byNumber struct {
	chapters []data.Chapter
	keys     []float64
	numeric  []bool
}

func (b byNumber) Len() int { return len(b.chapters) }

func (b byNumber) Swap(i, j int) {
	b.chapters[i], b.chapters[j] = b.chapters[j], b.chapters[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.numeric[i], b.numeric[j] = b.numeric[j], b.numeric[i]
}

func (b byNumber) Less(i, j int) bool {
	switch {
	case b.numeric[i] && b.numeric[j]:
		return b.keys[i] < b.keys[j]
	case b.numeric[i] != b.numeric[j]:
		return b.numeric[i]
	default:
		return natural.Less(b.chapters[i].Number, b.chapters[j].Number)
	}
}
