// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package username canonicalizes login names before they are stored or looked up.
//
// # Usage
//
// Two spellings that render identically ("Alice", "ａｌｉｃｅ", " alice ")
// must resolve to the same account, otherwise the unique constraint on
// users.account.username can be sidestepped with look-alike names.
package username

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder is safe for reuse because Fold carries no per-call state.
var folder = cases.Fold()

// Normalize converts a raw username into its canonical storage form.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFKC (full-width and compatibility forms collapse).
// 2. Removes control and format characters (zero-width joiners, etc.).
// 3. Applies Unicode case folding.
// 4. Trims surrounding whitespace.
func Normalize(raw string) string {
	// 1. Compatibility normalization and invisible character removal
	t := transform.Chain(norm.NFKC, transform.RemoveFunc(isInvisible))
	result, _, err := transform.String(t, raw)
	if err != nil {
		result = norm.NFKC.String(raw)
	}

	// 2. Case folding is locale independent, unlike ToLower
	result = folder.String(result)

	return strings.TrimSpace(result)
}

// isInvisible reports whether r is a control or format character.
func isInvisible(r rune) bool {
	return unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r)
}
