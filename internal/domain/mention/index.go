// Package mention finds entity names in narrative text and rewrites them into references.
package mention

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// MinNameLength is the minimum trimmed name length, in runes, for a record to be indexed.
const MinNameLength = 2

// SearchToken is one searchable (name, entity) pair.
type SearchToken struct {
	Term     string `json:"term"`
	EntityID string `json:"entityId"`
}

// Duplicate lists entities sharing one name (compared case-insensitively), in catalog order.
type Duplicate struct {
	Term      string   `json:"term"`
	EntityIDs []string `json:"entityIds"`
}

// Index is an immutable, longest-name-first view of a catalog snapshot.
// Safe for concurrent readers.
type Index struct {
	version    int64
	tokens     []SearchToken
	byID       map[string]entity.Record
	duplicates []Duplicate
	skipped    int

	patterns []*regexp.Regexp // parallel to tokens

	acOnce    sync.Once
	ac        ahocorasick.AhoCorasick
	acToToken []int
}

// Build creates an index from a catalog snapshot.
// Records with an empty id or a name shorter than MinNameLength are skipped.
// Tokens are ordered by descending name length; ties keep catalog order.
func Build(records []entity.Record, version int64) *Index {
	idx := &Index{
		version: version,
		tokens:  make([]SearchToken, 0, len(records)),
		byID:    make(map[string]entity.Record, len(records)),
	}

	var dupOrder []string
	dupIDs := make(map[string][]string) // lower-cased term -> ids in catalog order

	for _, r := range records {
		term := strings.TrimSpace(r.Name())
		if r.ID() == "" || utf8.RuneCountInString(term) < MinNameLength {
			idx.skipped++
			continue
		}
		if _, exists := idx.byID[r.ID()]; exists {
			// Same id twice in one snapshot: keep the first record.
			idx.skipped++
			continue
		}
		idx.byID[r.ID()] = r
		idx.tokens = append(idx.tokens, SearchToken{Term: term, EntityID: r.ID()})

		key := strings.ToLower(term)
		dupIDs[key] = append(dupIDs[key], r.ID())
		if len(dupIDs[key]) == 2 {
			dupOrder = append(dupOrder, key)
		}
	}

	for _, key := range dupOrder {
		idx.duplicates = append(idx.duplicates, Duplicate{Term: key, EntityIDs: dupIDs[key]})
	}

	sort.SliceStable(idx.tokens, func(i, j int) bool {
		return utf8.RuneCountInString(idx.tokens[i].Term) > utf8.RuneCountInString(idx.tokens[j].Term)
	})

	idx.patterns = make([]*regexp.Regexp, len(idx.tokens))
	for i, tok := range idx.tokens {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(tok.Term) + `\b`)
		if err != nil {
			continue // scanner skips tokens without a pattern
		}
		idx.patterns[i] = re
	}

	return idx
}

// Version returns the catalog version the index was built from.
func (idx *Index) Version() int64 { return idx.version }

// Tokens returns the search tokens, longest name first. Callers must not modify the slice.
func (idx *Index) Tokens() []SearchToken { return idx.tokens }

// Lookup returns the record for an entity id.
func (idx *Index) Lookup(id string) (entity.Record, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// Records returns a copy of the id -> record map.
func (idx *Index) Records() map[string]entity.Record {
	out := make(map[string]entity.Record, len(idx.byID))
	for k, v := range idx.byID {
		out[k] = v
	}
	return out
}

// Duplicates reports names shared by more than one entity. At scan time the
// first of them in token order wins.
func (idx *Index) Duplicates() []Duplicate { return idx.duplicates }

// Skipped returns how many records were excluded during the build.
func (idx *Index) Skipped() int { return idx.skipped }

// Len returns the number of tokens.
func (idx *Index) Len() int { return len(idx.tokens) }

// automaton compiles the multi-pattern matcher on first use. Standard match
// kind is required for overlapping iteration.
// Patterns that fold to the same ASCII-lowercase string collapse onto the first token.
func (idx *Index) automaton() (ahocorasick.AhoCorasick, []int) {
	idx.acOnce.Do(func() {
		patterns := make([]string, 0, len(idx.tokens))
		toToken := make([]int, 0, len(idx.tokens))
		seen := make(map[string]struct{}, len(idx.tokens))
		for i, tok := range idx.tokens {
			key := asciiLower(tok.Term)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			patterns = append(patterns, key)
			toToken = append(toToken, i)
		}
		builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  false,
			MatchKind:            ahocorasick.StandardMatch,
		})
		idx.ac = builder.Build(patterns)
		idx.acToToken = toToken
	})
	return idx.ac, idx.acToToken
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
