package core

import "errors"

// Terminal errors returned by Decrypter.Decrypt. Check them with errors.Is.
var (
	// ErrInputFormat means the outer base64 wrapper is malformed or the blob
	// is too short for the salt/IV/ciphertext layout. It may wrap detail.
	ErrInputFormat = errors.New("input format error")

	// ErrCrypto covers every decryption failure: wrong password, corrupted
	// ciphertext, bad padding and non-UTF-8 plaintext all look the same.
	// It is always returned bare so callers cannot tell the cases apart.
	ErrCrypto = errors.New("decryption failed: wrong password or corrupted backup")

	// ErrNoData means decryption succeeded but no table produced a record.
	ErrNoData = errors.New("decryption succeeded but no usable data was found")
)
