// Package urlutil provides URL canonicalization and admission predicates
// for the crawler.
//
// All functions in this package are pure and total: no error ever
// propagates to the caller. Malformed input yields a conservative
// result (false for predicates, unchanged input for transforms) so the
// frontier and traversal controller never have to handle parse
// failures themselves.
//
// Design decision: We canonicalize URLs before seen-set comparison
// because:
//  1. The same page is commonly reachable under several spellings
//     (host case, default port, trailing slash, fragment)
//  2. Dedup on the raw string would schedule wasted fetches
//  3. A single canonical form keeps the seen set compact
package urlutil
