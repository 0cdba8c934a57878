// Package language normalizes caller language hints into the ISO 639-1 codes
// speech engines expect.
//
// Parsing and canonicalization are delegated to golang.org/x/text/language so
// BCP 47 tags ("en-US"), ISO 639-2 codes ("eng", "fre") and common English
// names ("German") all resolve to the same base code.
package language
