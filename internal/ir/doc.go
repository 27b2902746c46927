// Package ir provides the canonical intermediate representation for BABOON.
//
// This package contains type definitions and content hashing only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - Topic names are NFC-normalized before they are compared or hashed
//   - GuardCallbacks is index-aligned with Permission once normalized, but a
//     mismatch is carried through unchanged so that subscription can report it
//   - All JSON tags use the configuration spelling (camelCase)
package ir
