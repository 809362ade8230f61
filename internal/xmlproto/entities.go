package xmlproto

import "bytes"

// unescapePatterns mirrors original_source's XML_UNESCAPE_PATTERNS: an
// ordered list of byte-string replacements applied in sequence. Order
// matters -- "&amp;" is decoded last so a literal "&amp;lt;" in the source
// does not get double-unescaped into "<".
var unescapePatterns = [][2][]byte{
	{[]byte("&lt;"), []byte("<")},
	{[]byte("&gt;"), []byte(">")},
	{[]byte("&quot;"), []byte(`"`)},
	{[]byte("&#39;"), []byte("'")},
	{[]byte("&apos;"), []byte("'")},
	{[]byte("&amp;"), []byte("&")},
	{[]byte("\r\n"), []byte("\n")},
	{[]byte("\n\n"), []byte("\n")},
}

// unescapeEntities decodes XML entities and collapses line endings the way
// the normal and tintin output formats require (spec.md §4.4).
func unescapeEntities(data []byte) []byte {
	for _, p := range unescapePatterns {
		data = bytes.ReplaceAll(data, p[0], p[1])
	}
	return data
}
