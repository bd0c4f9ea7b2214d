// Package core decrypts Samsung Pass (.spass) backups and extracts their
// tables.
//
// This package has no UI dependencies; the CLI, the local web surface and
// the report writers all consume its [Result].
//
// # Pipeline
//
//  1. [DecodeEnvelope] removes the outer base64 wrapper.
//  2. [ParseBlob] splits the blob: 20-byte salt, 16-byte IV, ciphertext.
//  3. [DeriveKey] runs PBKDF2-HMAC-SHA256 with [KDFIterations] rounds.
//  4. [DecryptCBC] decrypts with AES-256-CBC and removes PKCS#7 padding.
//  5. [SplitSegments] cuts the plaintext on [TableSentinel].
//  6. Each segment is classified by the schema registry (first match wins)
//     or named unknown_data_N, and its rows are decoded field by field.
//
// # Errors
//
// [ErrInputFormat], [ErrCrypto] and [ErrNoData] are terminal. Wrong
// passwords and corrupted ciphertext both yield the bare [ErrCrypto].
// Unparseable segments are skipped and reported as [SegmentWarning] values
// in the result. [MapError] turns any of these into a [UserMessage] with a
// remediation hint.
package core
