// Package textutil sanitizes user-supplied names before they reach a
// filesystem path or an HTTP header.
package textutil
