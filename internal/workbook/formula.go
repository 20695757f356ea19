package workbook

import (
	"regexp"
	"strings"
)

var (
	plainSheetName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	cellLikeName   = regexp.MustCompile(`^(?i)([a-z]{1,3}[0-9]+|r[0-9]*c[0-9]*)$`)
)

// sheetRef is a sheet qualifier inside a formula. start is the offset of the
// qualifier's first byte and end the offset of the '!' that closes it.
type sheetRef struct {
	name  string
	start int
	end   int
}

// SheetReferences returns the sheet names a formula refers to, in order of
// appearance. Text inside string literals is ignored.
func SheetReferences(formula string) []string {
	refs := scanSheetRefs(formula)
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.name)
	}
	return names
}

// RewriteSheetReference points every reference to sheet from at sheet to
// instead and returns the new formula with the number of references changed.
// Sheet names compare case-insensitively. Cell addresses, function names
// and string literals are left as they are.
func RewriteSheetReference(formula, from, to string) (string, int) {
	refs := scanSheetRefs(formula)

	var b strings.Builder
	last, changed := 0, 0
	for _, ref := range refs {
		if !strings.EqualFold(ref.name, from) {
			continue
		}
		b.WriteString(formula[last:ref.start])
		b.WriteString(QuoteSheetName(to))
		last = ref.end
		changed++
	}
	if changed == 0 {
		return formula, 0
	}
	b.WriteString(formula[last:])
	return b.String(), changed
}

// QuoteSheetName returns name as it must appear before '!' in a formula.
func QuoteSheetName(name string) string {
	if plainSheetName.MatchString(name) && !cellLikeName.MatchString(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func scanSheetRefs(formula string) []sheetRef {
	var refs []sheetRef
	for i := 0; i < len(formula); {
		c := formula[i]
		switch {
		case c == '"':
			i = skipStringLiteral(formula, i)
		case c == '\'':
			name, next, ok := readQuotedName(formula, i)
			if ok && next < len(formula) && formula[next] == '!' {
				refs = append(refs, sheetRef{name: name, start: i, end: next})
				next++
			}
			i = next
		case isNameByte(c):
			j := i
			for j < len(formula) && isNameByte(formula[j]) {
				j++
			}
			if j < len(formula) && formula[j] == '!' {
				refs = append(refs, sheetRef{name: formula[i:j], start: i, end: j})
				j++
			}
			i = j
		default:
			i++
		}
	}
	return refs
}

// skipStringLiteral returns the offset just past the literal opening at i.
// A doubled quote inside the literal is an escaped quote.
func skipStringLiteral(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != '"' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '"' {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// readQuotedName reads a single-quoted sheet name starting at i.
func readQuotedName(s string, i int) (string, int, bool) {
	var b strings.Builder
	for j := i + 1; j < len(s); j++ {
		if s[j] != '\'' {
			b.WriteByte(s[j])
			continue
		}
		if j+1 < len(s) && s[j+1] == '\'' {
			b.WriteByte('\'')
			j++
			continue
		}
		return b.String(), j + 1, true
	}
	return "", len(s), false
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c >= 0x80
}
