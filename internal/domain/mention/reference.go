package mention

import (
	"fmt"
	"regexp"
	"strings"
)

// referencePrefix is the URL scheme of wrappers produced by the scanner.
const referencePrefix = "#entity/"

// A label runs to the first unescaped ']'; backslash escapes any byte.
const labelPattern = `(?:[^\]\\]|\\.)*`

var (
	// protectedRegex matches any complete [label](url) span; those are never re-scanned.
	protectedRegex = regexp.MustCompile(`\[` + labelPattern + `\]\([^)]*\)`)
	// entityRefRegex matches only wrappers the scanner itself emits.
	entityRefRegex = regexp.MustCompile(`\[(` + labelPattern + `)\]\(#entity/([^/)]+)/([^/)]+)\)`)

	labelEscaper    = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)
	labelUnescapeRe = regexp.MustCompile(`\\(.)`)
)

// FormatReference renders the wrapper for one mention. Brackets and
// backslashes in the label are escaped so the wrapper stays one link.
func FormatReference(label, entityID, entityType string) string {
	return fmt.Sprintf("[%s](%s%s/%s)", labelEscaper.Replace(label), referencePrefix, entityID, entityType)
}

// unescapeLabel reverses the escaping done by FormatReference.
func unescapeLabel(label string) string {
	if !strings.Contains(label, `\`) {
		return label
	}
	return labelUnescapeRe.ReplaceAllString(label, "$1")
}

// ParseReference splits a "#entity/{id}/{type}" URL.
func ParseReference(url string) (entityID, entityType string, ok bool) {
	rest, found := strings.CutPrefix(url, referencePrefix)
	if !found {
		return "", "", false
	}
	entityID, entityType, found = strings.Cut(rest, "/")
	if !found || entityID == "" || entityType == "" || strings.Contains(entityType, "/") {
		return "", "", false
	}
	return entityID, entityType, true
}

// Reference is one entity wrapper located in a text.
type Reference struct {
	Start      int // byte offset of '['
	End        int // byte offset past ')'
	Label      string
	EntityID   string
	EntityType string
}

// References lists the entity wrappers in text in order of appearance.
func References(text string) []Reference {
	locs := entityRefRegex.FindAllStringSubmatchIndex(text, -1)
	out := make([]Reference, 0, len(locs))
	for _, l := range locs {
		out = append(out, Reference{
			Start:      l[0],
			End:        l[1],
			Label:      unescapeLabel(text[l[2]:l[3]]),
			EntityID:   text[l[4]:l[5]],
			EntityType: text[l[6]:l[7]],
		})
	}
	return out
}

// StripReferences replaces every entity wrapper with its unescaped label.
// Ordinary markdown links are left alone.
func StripReferences(text string) string {
	return entityRefRegex.ReplaceAllStringFunc(text, func(ref string) string {
		m := entityRefRegex.FindStringSubmatch(ref)
		return unescapeLabel(m[1])
	})
}
