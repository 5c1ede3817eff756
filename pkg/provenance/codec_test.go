package provenance

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestCompose_TokenOnBothChannels(t *testing.T) {
	pdf, err := Compose([]string{"line one", "line two"}, ComposeOptions{
		Title:     "Handout",
		Watermark: "CONFIDENTIAL",
		Token:     "alice@corp",
	})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	report, err := ExtractTokens(pdf)
	if err != nil {
		t.Fatalf("ExtractTokens failed: %v", err)
	}
	channels, ok := report.Tokens["alice@corp"]
	if !ok {
		t.Fatalf("token not recovered, report: %+v", report)
	}
	want := []string{ChannelMetadata, ChannelText}
	if !reflect.DeepEqual(channels, want) {
		t.Errorf("channels = %v, want %v", channels, want)
	}
}

func TestCompose_InvalidToken(t *testing.T) {
	_, err := Compose([]string{"x"}, ComposeOptions{Token: "has space"})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCompose_EscapesParentheses(t *testing.T) {
	pdf, err := Compose([]string{"see (appendix) for \\details"}, ComposeOptions{
		Info: DocumentInfo{Owner: "ops (night shift)"},
	})
	if err != nil {
		t.Fatal(err)
	}
	report, err := ExtractTokens(pdf)
	if err != nil {
		t.Fatal(err)
	}
	if got := report.Info["TNCOwner"]; got != "ops (night shift)" {
		t.Errorf("TNCOwner = %q, want %q", got, "ops (night shift)")
	}
}

func TestEmbedToken_IncrementalUpdate(t *testing.T) {
	original, err := Compose([]string{"payload"}, ComposeOptions{Title: "Doc"})
	if err != nil {
		t.Fatal(err)
	}

	embedded, err := EmbedToken(original, "bob.smith", PlacementBottomLeft)
	if err != nil {
		t.Fatalf("EmbedToken failed: %v", err)
	}
	if !bytes.HasPrefix(embedded, original) {
		t.Error("incremental update must leave the original bytes untouched at the front")
	}

	report, err := ExtractTokens(embedded)
	if err != nil {
		t.Fatal(err)
	}
	channels := report.Tokens["bob.smith"]
	want := []string{ChannelMetadata, ChannelText}
	if !reflect.DeepEqual(channels, want) {
		t.Errorf("channels = %v, want %v", channels, want)
	}
	if report.Info["TNCToken"] != "TNC_TOKEN:bob.smith" {
		t.Errorf("TNCToken = %q", report.Info["TNCToken"])
	}
	if report.Info["Keywords"] != "TNC_TOKEN:bob.smith" {
		t.Errorf("Keywords = %q", report.Info["Keywords"])
	}
}

func TestEmbedToken_PreservesExistingInfo(t *testing.T) {
	original, err := Compose([]string{"payload"}, ComposeOptions{
		Info: DocumentInfo{Subject: "b1a2c3d4e5f60718", Keywords: "SECRET"},
	})
	if err != nil {
		t.Fatal(err)
	}
	embedded, err := EmbedToken(original, "carol", PlacementTopRight)
	if err != nil {
		t.Fatal(err)
	}

	report, err := ExtractTokens(embedded)
	if err != nil {
		t.Fatal(err)
	}
	if report.Info["Subject"] != "b1a2c3d4e5f60718" {
		t.Errorf("Subject lost across update: %q", report.Info["Subject"])
	}
	if report.Info["Keywords"] != "SECRET, TNC_TOKEN:carol" {
		t.Errorf("Keywords = %q", report.Info["Keywords"])
	}
}

func TestEmbedToken_Refusals(t *testing.T) {
	original, err := Compose([]string{"x"}, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("InvalidToken", func(t *testing.T) {
		if _, err := EmbedToken(original, "no spaces allowed", PlacementBottomLeft); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
	t.Run("Protected", func(t *testing.T) {
		blob, err := Protect(original, "pw")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := EmbedToken(blob, "alice", PlacementBottomLeft); !errors.Is(err, ErrUnsupportedDocument) {
			t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
		}
	})
	t.Run("NotAPDF", func(t *testing.T) {
		if _, err := EmbedToken([]byte("plain text"), "alice", PlacementBottomLeft); !errors.Is(err, ErrUnsupportedDocument) {
			t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
		}
	})
}

func TestSetDocumentInfo_Merges(t *testing.T) {
	original, err := Compose([]string{"x"}, ComposeOptions{
		Info: DocumentInfo{Subject: "keep-me"},
	})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := SetDocumentInfo(original, DocumentInfo{
		Owner:   "research",
		Purpose: "external review",
		Nudge:   "please do not forward",
	})
	if err != nil {
		t.Fatalf("SetDocumentInfo failed: %v", err)
	}
	if !bytes.HasPrefix(updated, original) {
		t.Error("metadata update must be incremental")
	}

	report, err := ExtractTokens(updated)
	if err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{
		"Subject":    "keep-me",
		"TNCOwner":   "research",
		"TNCPurpose": "external review",
		"TNCNudge":   "please do not forward",
	} {
		if got := report.Info[key]; got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestExtractTokens_NoTokens(t *testing.T) {
	pdf, err := Compose([]string{"nothing to see"}, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	report, err := ExtractTokens(pdf)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Tokens) != 0 {
		t.Errorf("expected no tokens, got %v", report.Tokens)
	}
}

func TestExtractTokens_FlateStream(t *testing.T) {
	// A downstream tool recompressed the content stream; the token must
	// still surface on the text channel.
	run := tokenRun("dave_ext", PlacementBottomLeft)
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write([]byte(run)); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n")
	doc.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	doc.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	doc.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>\nendobj\n")
	fmt.Fprintf(&doc, "4 0 obj\n<< /Length %d /Filter /FlateDecode >>\nstream\n", compressed.Len())
	doc.Write(compressed.Bytes())
	doc.WriteString("\nendstream\nendobj\n")
	doc.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n0\n%%EOF\n")

	report, err := ExtractTokens(doc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	channels := report.Tokens["dave_ext"]
	if !reflect.DeepEqual(channels, []string{ChannelText}) {
		t.Errorf("channels = %v, want [text] only", channels)
	}
}

func TestExtractTokens_MetadataOnly(t *testing.T) {
	// Token present only in document info, as after a rasterizing
	// conversion that kept metadata.
	pdf, err := Compose([]string{"rasterized body"}, ComposeOptions{
		Info: DocumentInfo{Token: "eve-123"},
	})
	if err != nil {
		t.Fatal(err)
	}
	report, err := ExtractTokens(pdf)
	if err != nil {
		t.Fatal(err)
	}
	channels := report.Tokens["eve-123"]
	if !reflect.DeepEqual(channels, []string{ChannelMetadata}) {
		t.Errorf("channels = %v, want [metadata] only", channels)
	}
}

func TestExtractTokens_RefusesProtected(t *testing.T) {
	pdf, err := Compose([]string{"x"}, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	blob, err := Protect(pdf, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractTokens(blob); !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestTokenSet_StableOrder(t *testing.T) {
	report := &ExtractReport{Tokens: map[string][]string{}}
	addToken(report, "zeta", ChannelText)
	addToken(report, "alpha", ChannelMetadata)
	addToken(report, "alpha", ChannelMetadata)
	if got := report.TokenSet(); !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Errorf("TokenSet = %v", got)
	}
	if got := report.Tokens["alpha"]; !reflect.DeepEqual(got, []string{ChannelMetadata}) {
		t.Errorf("duplicate channel recorded: %v", got)
	}
}
