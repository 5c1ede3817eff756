package provenance

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Low-level PDF plumbing shared by the compose, embed, and extract
// paths. Only the classic cross-reference layout is handled; documents
// whose objects cannot be located this way are refused as unsupported
// rather than risking a silently broken rewrite.

var (
	pdfHeader = []byte("%PDF-")

	objStartRe     = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)
	pageTypeRe     = regexp.MustCompile(`/Type\s*/Page\b`)
	rootRefRe      = regexp.MustCompile(`/Root\s+(\d+)\s+(\d+)\s+R`)
	infoRefRe      = regexp.MustCompile(`/Info\s+(\d+)\s+(\d+)\s+R`)
	startXrefRe    = regexp.MustCompile(`startxref\s+(\d+)`)
	infoKeyRe      = regexp.MustCompile(`/([A-Za-z][A-Za-z0-9]*)\s*\(`)
	contentsArrRe  = regexp.MustCompile(`/Contents\s*\[([^\]]*)\]`)
	contentsRefRe  = regexp.MustCompile(`/Contents\s+(\d+)\s+(\d+)\s+R`)
	flateFilterRe  = regexp.MustCompile(`/Filter\s*(\[[^\]]*/FlateDecode[^\]]*\]|/FlateDecode)`)
)

func isPDF(b []byte) bool {
	return bytes.HasPrefix(b, pdfHeader)
}

// pdfObject is one located indirect object.
type pdfObject struct {
	num  int
	gen  int
	body []byte // between "N G obj" and "endobj"
}

// scanObjects walks every "N G obj ... endobj" span in document order.
// Later definitions of the same object number (incremental updates)
// appear after earlier ones.
func scanObjects(b []byte) []pdfObject {
	var out []pdfObject
	for _, loc := range objStartRe.FindAllSubmatchIndex(b, -1) {
		num, _ := strconv.Atoi(string(b[loc[2]:loc[3]]))
		gen, _ := strconv.Atoi(string(b[loc[4]:loc[5]]))
		rest := b[loc[1]:]
		end := bytes.Index(rest, []byte("endobj"))
		if end < 0 {
			continue
		}
		out = append(out, pdfObject{num: num, gen: gen, body: rest[:end]})
	}
	return out
}

// maxObjectNumber returns the highest object number in use, so an
// incremental update can allocate fresh numbers above it.
func maxObjectNumber(b []byte) int {
	max := 0
	for _, obj := range scanObjects(b) {
		if obj.num > max {
			max = obj.num
		}
	}
	return max
}

// findLastObject returns the latest definition of object num, honoring
// incremental-update override order.
func findLastObject(b []byte, num int) (pdfObject, bool) {
	var found pdfObject
	ok := false
	for _, obj := range scanObjects(b) {
		if obj.num == num {
			found = obj
			ok = true
		}
	}
	return found, ok
}

// findPageObject locates the latest definition of the first page
// object (dict with /Type /Page, never /Pages).
func findPageObject(b []byte) (pdfObject, error) {
	var candidate pdfObject
	num := -1
	for _, obj := range scanObjects(b) {
		if !pageTypeRe.Match(obj.body) {
			continue
		}
		if num == -1 || obj.num == num {
			candidate = obj
			num = obj.num
		}
	}
	if num == -1 {
		return pdfObject{}, fmt.Errorf("%w: no page object found", ErrUnsupportedDocument)
	}
	return candidate, nil
}

// lastRootRef returns the catalog reference ("N G R") from the most
// recent trailer.
func lastRootRef(b []byte) (string, error) {
	ms := rootRefRe.FindAllSubmatch(b, -1)
	if len(ms) == 0 {
		return "", fmt.Errorf("%w: no /Root reference found", ErrUnsupportedDocument)
	}
	m := ms[len(ms)-1]
	return fmt.Sprintf("%s %s R", m[1], m[2]), nil
}

// lastInfoObjectNumber returns the object number of the most recent
// /Info reference, or 0 when the document carries none.
func lastInfoObjectNumber(b []byte) int {
	ms := infoRefRe.FindAllSubmatch(b, -1)
	if len(ms) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(string(ms[len(ms)-1][1]))
	return n
}

// lastStartXref returns the byte offset announced by the most recent
// startxref keyword.
func lastStartXref(b []byte) (int64, error) {
	ms := startXrefRe.FindAllSubmatch(b, -1)
	if len(ms) == 0 {
		return 0, fmt.Errorf("%w: no startxref found", ErrUnsupportedDocument)
	}
	off, err := strconv.ParseInt(string(ms[len(ms)-1][1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed startxref", ErrUnsupportedDocument)
	}
	return off, nil
}

// escapePDFString escapes a value for a PDF literal string.
func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// scanLiteral reads a literal string starting at the byte after '(',
// honoring escapes and balanced parentheses. Returns the unescaped
// value and the index just past the closing ')'.
func scanLiteral(b []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 1
	i := start
	for i < len(b) {
		c := b[i]
		switch c {
		case '\\':
			if i+1 < len(b) {
				next := b[i+1]
				switch next {
				case 'n':
					sb.WriteByte('\n')
				case 'r':
					sb.WriteByte('\r')
				case 't':
					sb.WriteByte('\t')
				default:
					sb.WriteByte(next)
				}
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			sb.WriteByte(c)
			i++
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

// parseInfoValues extracts every /Key (literal) pair from a dictionary
// body.
func parseInfoValues(body []byte) map[string]string {
	out := map[string]string{}
	for _, loc := range infoKeyRe.FindAllSubmatchIndex(body, -1) {
		key := string(body[loc[2]:loc[3]])
		val, _ := scanLiteral(body, loc[1])
		out[key] = val
	}
	return out
}

// parseDocumentInfo returns the fields of the most recent document
// information dictionary, empty when the document has none.
func parseDocumentInfo(b []byte) map[string]string {
	num := lastInfoObjectNumber(b)
	if num == 0 {
		return map[string]string{}
	}
	obj, ok := findLastObject(b, num)
	if !ok {
		return map[string]string{}
	}
	return parseInfoValues(obj.body)
}

// indirectObject is an object queued for an incremental update.
type indirectObject struct {
	num  int
	body []byte
}

// appendIncrementalUpdate appends objects, a cross-reference section,
// and a trailer to the original document without touching existing
// bytes, so prior revisions stay intact and recoverable.
func appendIncrementalUpdate(orig []byte, objs []indirectObject, size int, rootRef, infoRef string, prev int64) []byte {
	sort.Slice(objs, func(i, j int) bool { return objs[i].num < objs[j].num })

	out := append([]byte(nil), orig...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	offsets := make(map[int]int64, len(objs))
	for _, obj := range objs {
		offsets[obj.num] = int64(len(out))
		out = append(out, []byte(fmt.Sprintf("%d 0 obj\n", obj.num))...)
		out = append(out, obj.body...)
		out = append(out, []byte("\nendobj\n")...)
	}

	xrefOff := int64(len(out))
	out = append(out, []byte("xref\n")...)
	for i := 0; i < len(objs); {
		j := i
		for j+1 < len(objs) && objs[j+1].num == objs[j].num+1 {
			j++
		}
		out = append(out, []byte(fmt.Sprintf("%d %d\n", objs[i].num, j-i+1))...)
		for k := i; k <= j; k++ {
			out = append(out, []byte(fmt.Sprintf("%010d %05d n \n", offsets[objs[k].num], 0))...)
		}
		i = j + 1
	}

	trailer := fmt.Sprintf("trailer\n<< /Size %d /Root %s", size, rootRef)
	if infoRef != "" {
		trailer += " /Info " + infoRef
	}
	trailer += fmt.Sprintf(" /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", prev, xrefOff)
	return append(out, []byte(trailer)...)
}

// infoDictBody renders an information dictionary from key/value pairs
// in stable order.
func infoDictBody(values map[string]string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<<")
	for _, k := range keys {
		if values[k] == "" {
			continue
		}
		fmt.Fprintf(&sb, " /%s (%s)", k, escapePDFString(values[k]))
	}
	sb.WriteString(" >>")
	return []byte(sb.String())
}
