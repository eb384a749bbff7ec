// Package textutil provides string canonicalization helpers for column
// headers and filesystem tokens.
package textutil
