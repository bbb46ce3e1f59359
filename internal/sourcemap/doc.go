// Package sourcemap finds, decodes and validates JavaScript sourcemaps.
//
// The package covers three steps of script analysis:
//   - ResolveReference locates the sourcemap a script declares, from the
//     SourceMap response header or a sourceMappingURL pragma comment
//   - Decode turns sourcemap bytes into a DecodedMap, which is either a
//     regular map or an index map made of sections
//   - Validator checks every source of a decoded map: embedded sources need
//     nothing, the rest must be reachable with a HEAD request
//
// Index maps are flattened into a single regular view before their sources
// are checked. A section that is itself an index map, or that cannot be
// loaded, makes the whole index map unsupported.
package sourcemap
