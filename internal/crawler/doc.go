// Package crawler discovers the scripts a page references.
//
// # Architecture
//
// Parsing happens in two stages:
//   - Parse turns HTML into a Document, an immutable arena of nodes addressed
//     by index, with each node's children stored as an index slice
//   - Scripts walks the Document with an explicit stack and resolves every
//     script[src] against the page URL
//
// # Usage
//
//	parser, err := crawler.NewParser("https://example.com/")
//	doc, err := parser.Parse(body)
//	for _, s := range parser.Scripts(doc) { ... }
package crawler
