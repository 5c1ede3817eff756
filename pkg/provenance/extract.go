package provenance

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"sort"
)

// Channel names a token recovery path.
const (
	ChannelText     = "text"
	ChannelMetadata = "metadata"
)

// tokenScanRe matches the embedded token marker. The optional space or
// tilde absorbs typesetting artifacts between the literal prefix and
// the token value.
var tokenScanRe = regexp.MustCompile(`TNC_TOKEN:[ ~]?([A-Za-z0-9._@-]+)`)

// ExtractReport is the result of scanning a suspect document.
type ExtractReport struct {
	// Tokens maps each recovered token to the channels it was found
	// on. A token present only under "metadata" survived rasterization
	// or text-layer stripping; one present on both channels is a
	// high-confidence match.
	Tokens map[string][]string `json:"tokens"`
	// Info holds the document information fields, token-bearing or not.
	Info map[string]string `json:"info"`
}

// TokenSet returns the recovered tokens in stable order.
func (r *ExtractReport) TokenSet() []string {
	out := make([]string, 0, len(r.Tokens))
	for t := range r.Tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ExtractTokens scans every page content stream and the document
// metadata for embedded recipient tokens and returns the union.
// Image-only documents (rasterized downstream) yield no text-channel
// hits; the metadata channel is the fallback, and the report says which
// channel actually matched.
func ExtractTokens(pdf []byte) (*ExtractReport, error) {
	if IsProtected(pdf) {
		return nil, fmt.Errorf("%w: document is protected, unprotect it first", ErrUnsupportedDocument)
	}
	if !isPDF(pdf) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrUnsupportedDocument)
	}

	report := &ExtractReport{
		Tokens: map[string][]string{},
		Info:   parseDocumentInfo(pdf),
	}

	rest, streams := splitStreams(pdf)
	for _, s := range streams {
		data := s.data
		if flateFilterRe.Match(s.dict) {
			data = inflate(data)
		}
		for _, m := range tokenScanRe.FindAllSubmatch(data, -1) {
			addToken(report, string(m[1]), ChannelText)
		}
	}
	for _, m := range tokenScanRe.FindAllSubmatch(rest, -1) {
		addToken(report, string(m[1]), ChannelMetadata)
	}
	return report, nil
}

type streamSpan struct {
	dict []byte
	data []byte
}

// splitStreams separates stream payloads from the structural rest of
// the document, so token hits can be attributed to the right channel.
func splitStreams(b []byte) (rest []byte, streams []streamSpan) {
	kw := []byte("stream")
	endKw := []byte("endstream")
	var restBuf bytes.Buffer

	i := 0
	for i < len(b) {
		idx := bytes.Index(b[i:], kw)
		if idx < 0 {
			restBuf.Write(b[i:])
			break
		}
		idx += i

		// Skip the "stream" inside "endstream" and anything not
		// followed by an end-of-line.
		if idx > 0 && isAlpha(b[idx-1]) {
			restBuf.Write(b[i : idx+len(kw)])
			i = idx + len(kw)
			continue
		}
		j := idx + len(kw)
		if j < len(b) && b[j] == '\r' {
			j++
		}
		if j >= len(b) || b[j] != '\n' {
			restBuf.Write(b[i : idx+len(kw)])
			i = idx + len(kw)
			continue
		}
		j++

		end := bytes.Index(b[j:], endKw)
		if end < 0 {
			restBuf.Write(b[i:])
			break
		}
		data := bytes.TrimRight(b[j:j+end], "\r\n")

		dictStart := bytes.LastIndex(b[:idx], []byte("<<"))
		var dict []byte
		if dictStart >= 0 {
			dict = b[dictStart:idx]
		}
		streams = append(streams, streamSpan{dict: dict, data: data})

		restBuf.Write(b[i:idx])
		i = j + end
	}
	return restBuf.Bytes(), streams
}

// inflate decompresses a FlateDecode payload, tolerating both zlib
// framing and raw deflate. A payload that fails to inflate is returned
// as-is; the scan simply finds nothing in it.
func inflate(data []byte) []byte {
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		if out, rerr := io.ReadAll(zr); rerr == nil || len(out) > 0 {
			zr.Close()
			return out
		}
		zr.Close()
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	if out, err := io.ReadAll(fr); err == nil || len(out) > 0 {
		return out
	}
	return data
}

func addToken(r *ExtractReport, token, channel string) {
	for _, c := range r.Tokens[token] {
		if c == channel {
			return
		}
	}
	r.Tokens[token] = append(r.Tokens[token], channel)
	sort.Strings(r.Tokens[token])
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
