package provenance

import (
	"bytes"
	"fmt"
	"strings"
)

// EmbedToken writes a recipient token into a rendered PDF over both
// recovery channels: an invisible text run appended to the first page's
// content and a token entry in the document information dictionary.
// The document is extended with an incremental update; the original
// bytes are left untouched inside the result.
func EmbedToken(pdf []byte, token string, placement Placement) ([]byte, error) {
	if IsProtected(pdf) {
		return nil, fmt.Errorf("%w: document is protected, unprotect it first", ErrUnsupportedDocument)
	}
	if !isPDF(pdf) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrUnsupportedDocument)
	}
	if !tokenValueRe.MatchString(token) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}

	page, err := findPageObject(pdf)
	if err != nil {
		return nil, err
	}
	prev, err := lastStartXref(pdf)
	if err != nil {
		return nil, err
	}
	root, err := lastRootRef(pdf)
	if err != nil {
		return nil, err
	}

	maxNum := maxObjectNumber(pdf)
	contentNum := maxNum + 1
	infoNum := maxNum + 2

	content := strings.TrimRight(tokenRun(token, placement), "\n")
	stream := fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)

	pageBody, err := pageWithExtraContents(page.body, contentNum)
	if err != nil {
		return nil, err
	}

	info := parseDocumentInfo(pdf)
	info["TNCToken"] = tokenPrefix + token
	info["Keywords"] = appendKeywordToken(info["Keywords"], token)

	objs := []indirectObject{
		{page.num, pageBody},
		{contentNum, []byte(stream)},
		{infoNum, infoDictBody(info)},
	}
	return appendIncrementalUpdate(pdf, objs, infoNum+1, root,
		fmt.Sprintf("%d 0 R", infoNum), prev), nil
}

// SetDocumentInfo rewrites the document information dictionary via an
// incremental update, merging over any fields already present.
func SetDocumentInfo(pdf []byte, docInfo DocumentInfo) ([]byte, error) {
	if IsProtected(pdf) {
		return nil, fmt.Errorf("%w: document is protected, unprotect it first", ErrUnsupportedDocument)
	}
	if !isPDF(pdf) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrUnsupportedDocument)
	}
	prev, err := lastStartXref(pdf)
	if err != nil {
		return nil, err
	}
	root, err := lastRootRef(pdf)
	if err != nil {
		return nil, err
	}

	info := parseDocumentInfo(pdf)
	for k, v := range docInfo.values() {
		info[k] = v
	}

	infoNum := maxObjectNumber(pdf) + 1
	objs := []indirectObject{{infoNum, infoDictBody(info)}}
	return appendIncrementalUpdate(pdf, objs, infoNum+1, root,
		fmt.Sprintf("%d 0 R", infoNum), prev), nil
}

// pageWithExtraContents returns the page dictionary with ref appended
// to its /Contents, whatever form the entry currently takes.
func pageWithExtraContents(body []byte, ref int) ([]byte, error) {
	newRef := fmt.Sprintf("%d 0 R", ref)

	if m := contentsArrRe.FindSubmatchIndex(body); m != nil {
		var buf bytes.Buffer
		buf.Write(body[:m[3]])
		buf.WriteString(" " + newRef)
		buf.Write(body[m[3]:])
		return buf.Bytes(), nil
	}
	if m := contentsRefRe.FindSubmatchIndex(body); m != nil {
		old := string(body[m[0]:m[1]])
		old = strings.TrimPrefix(old, "/Contents")
		replacement := fmt.Sprintf("/Contents [%s %s]", strings.TrimSpace(old), newRef)
		var buf bytes.Buffer
		buf.Write(body[:m[0]])
		buf.WriteString(replacement)
		buf.Write(body[m[1]:])
		return buf.Bytes(), nil
	}

	// Page without contents: add the entry before the closing >>.
	idx := bytes.LastIndex(body, []byte(">>"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: malformed page dictionary", ErrUnsupportedDocument)
	}
	var buf bytes.Buffer
	buf.Write(body[:idx])
	buf.WriteString("/Contents " + newRef + " ")
	buf.Write(body[idx:])
	return buf.Bytes(), nil
}

// appendKeywordToken adds the token marker to a keywords value unless
// it is already present.
func appendKeywordToken(keywords, token string) string {
	marker := tokenPrefix + token
	if strings.Contains(keywords, marker) {
		return keywords
	}
	if keywords == "" {
		return marker
	}
	return keywords + ", " + marker
}
