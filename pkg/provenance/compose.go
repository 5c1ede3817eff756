package provenance

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// tokenPrefix is the literal marker carried by every embedded token.
// Extraction matches this exact prefix.
const tokenPrefix = "TNC_TOKEN:"

// tokenValueRe restricts tokens to characters that survive both
// embedding channels unescaped.
var tokenValueRe = regexp.MustCompile(`^[A-Za-z0-9._@-]+$`)

// Placement names the fixed page anchor for the invisible token run.
type Placement string

const (
	PlacementBottomLeft  Placement = "bottom-left"
	PlacementBottomRight Placement = "bottom-right"
	PlacementTopLeft     Placement = "top-left"
	PlacementTopRight    Placement = "top-right"
)

func (p Placement) anchor() (x, y int) {
	switch p {
	case PlacementBottomRight:
		return 540, 2
	case PlacementTopLeft:
		return 2, 788
	case PlacementTopRight:
		return 540, 788
	default:
		return 2, 2
	}
}

// DocumentInfo is the descriptive metadata the codec writes into the
// document information dictionary. Subject carries the build
// identifier, Keywords the classification and token; Owner, Purpose and
// Nudge are the custom fields of the compose path.
type DocumentInfo struct {
	Subject  string
	Keywords string
	Owner    string
	Purpose  string
	Nudge    string
	Token    string
}

func (d DocumentInfo) values() map[string]string {
	out := map[string]string{}
	if d.Subject != "" {
		out["Subject"] = d.Subject
	}
	if d.Keywords != "" {
		out["Keywords"] = d.Keywords
	}
	if d.Owner != "" {
		out["TNCOwner"] = d.Owner
	}
	if d.Purpose != "" {
		out["TNCPurpose"] = d.Purpose
	}
	if d.Nudge != "" {
		out["TNCNudge"] = d.Nudge
	}
	if d.Token != "" {
		out["TNCToken"] = tokenPrefix + d.Token
	}
	return out
}

// ComposeOptions control the text-to-PDF path.
type ComposeOptions struct {
	Title             string
	Watermark         string
	WatermarkAngleDeg int     // default 45
	WatermarkGray     float64 // 0 black .. 1 white, default 0.85
	Token             string
	Placement         Placement
	Info              DocumentInfo
}

// Compose renders plain text lines into a minimal single-page PDF with
// an optional diagonal watermark, an optional invisible recipient
// token, and the descriptive metadata fields. It exists for the
// owner/purpose/nudge collaborator path and gives the protect and
// extract paths a self-contained substrate.
func Compose(lines []string, opts ComposeOptions) ([]byte, error) {
	if opts.Token != "" {
		if !tokenValueRe.MatchString(opts.Token) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidToken, opts.Token)
		}
		opts.Info.Token = opts.Token
	}

	content := composeContent(lines, opts)
	stream := fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)

	objs := []indirectObject{
		{1, []byte("<< /Type /Catalog /Pages 2 0 R >>")},
		{2, []byte("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")},
		{3, []byte("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>")},
		{4, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")},
		{5, []byte(stream)},
	}

	infoNum := 0
	if values := opts.Info.values(); len(values) > 0 {
		infoNum = 6
		objs = append(objs, indirectObject{6, infoDictBody(values)})
	}
	return writePDF(objs, 1, infoNum), nil
}

func composeContent(lines []string, opts ComposeOptions) string {
	var sb strings.Builder

	if opts.Watermark != "" {
		gray := opts.WatermarkGray
		if gray <= 0 || gray > 1 {
			gray = 0.85
		}
		angle := opts.WatermarkAngleDeg
		if angle == 0 {
			angle = 45
		}
		rad := float64(angle) * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		fmt.Fprintf(&sb, "q %.2f g BT /F1 60 Tf %.4f %.4f %.4f %.4f 120 220 Tm (%s) Tj ET Q\n",
			gray, cos, sin, -sin, cos, escapePDFString(opts.Watermark))
	}

	y := 720
	sb.WriteString("BT /F1 16 Tf 72 ")
	fmt.Fprintf(&sb, "%d Td", y)
	if opts.Title != "" {
		fmt.Fprintf(&sb, " (%s) Tj", escapePDFString(opts.Title))
	}
	sb.WriteString(" ET\n")

	y -= 36
	sb.WriteString("BT /F1 11 Tf 14 TL 72 ")
	fmt.Fprintf(&sb, "%d Td\n", y)
	for _, line := range lines {
		fmt.Fprintf(&sb, "(%s) Tj T*\n", escapePDFString(line))
	}
	sb.WriteString("ET\n")

	if opts.Token != "" {
		sb.WriteString(tokenRun(opts.Token, opts.Placement))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// tokenRun renders the invisible token: 1pt white text at a fixed page
// anchor, off the visual grid but fully present in the text layer.
func tokenRun(token string, placement Placement) string {
	x, y := placement.anchor()
	return fmt.Sprintf("q BT /F1 1 Tf 1 1 1 rg %d %d Td (%s%s) Tj ET Q\n",
		x, y, tokenPrefix, escapePDFString(token))
}

// writePDF serializes a complete document with a classic cross-
// reference table.
func writePDF(objs []indirectObject, rootNum, infoNum int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	// Binary marker comment so transports treat the file as binary.
	buf.Write([]byte{'%', 0xe2, 0xe3, 0xcf, 0xd3, '\n'})

	offsets := make(map[int]int, len(objs))
	maxNum := 0
	for _, obj := range objs {
		offsets[obj.num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", obj.num)
		buf.Write(obj.body)
		buf.WriteString("\nendobj\n")
		if obj.num > maxNum {
			maxNum = obj.num
		}
	}

	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R", maxNum+1, rootNum)
	if infoNum > 0 {
		fmt.Fprintf(&buf, " /Info %d 0 R", infoNum)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xrefOff)
	return buf.Bytes()
}
