// Package provenance is the PDF provenance codec: deterministic
// password derivation, password-based protection of rendered PDF byte
// streams, and forensic token embedding and extraction.
//
// Tokens travel over two independent channels so that one surviving
// channel is enough for attribution: an invisible text run in the page
// content (fragile against rasterization) and the document information
// dictionary (fragile against metadata stripping). Extraction reports
// which channel matched so callers can reason about confidence.
package provenance
