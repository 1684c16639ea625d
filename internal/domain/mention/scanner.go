package mention

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Engine selects the candidate-finding strategy.
type Engine string

const (
	// EngineRegexp tries one whole-word pattern per token, longest first.
	EngineRegexp Engine = "regexp"
	// EngineAutomaton finds every candidate in one Aho-Corasick pass per segment,
	// then accepts them in the same order as EngineRegexp. Case folding is ASCII-only.
	EngineAutomaton Engine = "automaton"
)

// IsValid checks if the engine is supported.
func (e Engine) IsValid() bool {
	return e == EngineRegexp || e == EngineAutomaton
}

// ErrNilIndex is returned by Rewrite when no index is given.
var ErrNilIndex = errors.New("mention: nil index")

// Match is one accepted mention inside a free-text segment.
type Match struct {
	Start       int
	End         int
	MatchedText string
	EntityID    string
	// Self marks a mention of the entity being displayed; it is claimed but not linked.
	Self bool
}

type options struct {
	selfID string
	engine Engine
}

// Option configures a scan.
type Option func(*options)

// WithSelf suppresses links to the entity currently being displayed.
func WithSelf(entityID string) Option {
	return func(o *options) { o.selfID = entityID }
}

// WithEngine selects the candidate-finding strategy. Unknown engines fall back to regexp.
func WithEngine(e Engine) Option {
	return func(o *options) {
		if e.IsValid() {
			o.engine = e
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{engine: EngineRegexp}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Result summarises one Rewrite call.
type Result struct {
	Text     string
	Mentions int
}

// Annotate rewrites mentions into references. It never panics: on any
// internal failure the original text is returned unchanged.
func Annotate(text string, idx *Index, opts ...Option) string {
	res, err := Rewrite(text, idx, opts...)
	if err != nil {
		return text
	}
	return res.Text
}

// Rewrite is Annotate with failures reported instead of swallowed.
// Existing [label](url) spans are copied verbatim and never re-scanned.
func Rewrite(text string, idx *Index, opts ...Option) (res Result, err error) {
	if idx == nil {
		return Result{Text: text}, ErrNilIndex
	}
	if text == "" || idx.Len() == 0 {
		return Result{Text: text}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Text: text}
			err = fmt.Errorf("mention: scan panicked: %v", r)
		}
	}()

	o := buildOptions(opts)

	var sb strings.Builder
	sb.Grow(len(text) + len(text)/4)

	mentions := 0
	last := 0
	for _, loc := range protectedRegex.FindAllStringIndex(text, -1) {
		n, err := rewriteSegment(&sb, text[last:loc[0]], idx, o)
		if err != nil {
			return Result{Text: text}, err
		}
		mentions += n
		sb.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	n, err := rewriteSegment(&sb, text[last:], idx, o)
	if err != nil {
		return Result{Text: text}, err
	}
	mentions += n

	return Result{Text: sb.String(), Mentions: mentions}, nil
}

// Scan returns the accepted, non-overlapping mentions of one free-text segment, ordered by start.
// The segment is treated as plain text: reference protection is Rewrite's job.
func Scan(segment string, idx *Index, opts ...Option) []Match {
	if idx == nil || segment == "" || idx.Len() == 0 {
		return nil
	}
	o := buildOptions(opts)
	matches, err := scanSegment(segment, idx, o)
	if err != nil {
		return nil
	}
	return matches
}

func rewriteSegment(sb *strings.Builder, segment string, idx *Index, o options) (int, error) {
	if segment == "" {
		return 0, nil
	}
	matches, err := scanSegment(segment, idx, o)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		sb.WriteString(segment)
		return 0, nil
	}

	linked := 0
	pos := 0
	for _, m := range matches {
		sb.WriteString(segment[pos:m.Start])
		if m.Self {
			sb.WriteString(m.MatchedText)
		} else {
			rec, ok := idx.Lookup(m.EntityID)
			if !ok {
				return 0, fmt.Errorf("mention: token %q has no record", m.EntityID)
			}
			sb.WriteString(FormatReference(m.MatchedText, m.EntityID, string(rec.Type())))
			linked++
		}
		pos = m.End
	}
	sb.WriteString(segment[pos:])
	return linked, nil
}

func scanSegment(segment string, idx *Index, o options) ([]Match, error) {
	var matches []Match
	switch o.engine {
	case EngineAutomaton:
		matches = scanAutomaton(segment, idx, o.selfID)
	default:
		matches = scanRegexp(segment, idx, o.selfID)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches, nil
}

// scanRegexp visits tokens longest first; a candidate is accepted only if it
// does not intersect an accepted range, so longer names shadow their substrings.
func scanRegexp(segment string, idx *Index, selfID string) []Match {
	var accepted []Match
	for i, tok := range idx.tokens {
		re := idx.patterns[i]
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(segment, -1) {
			if overlapsAny(accepted, loc[0], loc[1]) {
				continue
			}
			accepted = append(accepted, Match{
				Start:       loc[0],
				End:         loc[1],
				MatchedText: segment[loc[0]:loc[1]],
				EntityID:    tok.EntityID,
				Self:        selfID != "" && tok.EntityID == selfID,
			})
		}
	}
	return accepted
}

// scanAutomaton collects every whole-word hit, overlapping ones included, and
// replays them token by token: within a token occurrences are taken leftmost
// and non-overlapping, as regexp's FindAll does, before the shared overlap test.
// A longer hit that fails the boundary test therefore never hides a shorter name.
func scanAutomaton(segment string, idx *Index, selfID string) []Match {
	ac, toToken := idx.automaton()
	byToken := make(map[int][][2]int)
	it := ac.IterOverlapping(segment)
	for m := it.Next(); m != nil; m = it.Next() {
		start, end := m.Start(), m.End()
		if !isWordBoundary(segment, start) || !isWordBoundary(segment, end) {
			continue
		}
		ti := toToken[m.Pattern()]
		byToken[ti] = append(byToken[ti], [2]int{start, end})
	}
	if len(byToken) == 0 {
		return nil
	}

	order := make([]int, 0, len(byToken))
	for ti := range byToken {
		order = append(order, ti)
	}
	sort.Ints(order)

	var accepted []Match
	for _, ti := range order {
		hits := byToken[ti]
		sort.Slice(hits, func(i, j int) bool { return hits[i][0] < hits[j][0] })
		tok := idx.tokens[ti]
		next := 0
		for _, h := range hits {
			if h[0] < next {
				continue
			}
			next = h[1]
			if overlapsAny(accepted, h[0], h[1]) {
				continue
			}
			accepted = append(accepted, Match{
				Start:       h[0],
				End:         h[1],
				MatchedText: segment[h[0]:h[1]],
				EntityID:    tok.EntityID,
				Self:        selfID != "" && tok.EntityID == selfID,
			})
		}
	}
	return accepted
}

func overlapsAny(accepted []Match, start, end int) bool {
	for _, a := range accepted {
		if start < a.End && end > a.Start {
			return true
		}
	}
	return false
}

// isWordBoundary mirrors regexp's ASCII \b.
func isWordBoundary(s string, pos int) bool {
	before := pos > 0 && isWordByte(s[pos-1])
	after := pos < len(s) && isWordByte(s[pos])
	return before != after
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
