package core

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Oracipher/Unsealer/internal/logging"
	"github.com/Oracipher/Unsealer/internal/schema"
)

// Decrypter decodes Samsung Pass backups against a schema registry.
// It holds no mutable state and is safe for concurrent use; each call to
// Decrypt runs an independent pipeline.
type Decrypter struct {
	registry *schema.Registry
}

// NewDecrypter creates a Decrypter that classifies tables with registry.
func NewDecrypter(registry *schema.Registry) *Decrypter {
	return &Decrypter{registry: registry}
}

// Registry returns the schema registry used for classification.
func (d *Decrypter) Registry() *schema.Registry {
	return d.registry
}

// Decrypt decodes a complete backup file: base64 wrapper, salt/IV/ciphertext
// layout, PBKDF2 key derivation, AES-256-CBC decryption, then table
// extraction. The context only carries logging fields.
//
// Errors are ErrInputFormat, ErrCrypto or ErrNoData. Segment-level problems
// are returned in Result.Warnings alongside the decoded tables.
func (d *Decrypter) Decrypt(ctx context.Context, content []byte, password string) (*Result, error) {
	runID := uuid.New()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.FromContext(ctx)
	start := time.Now()

	raw, err := DecodeEnvelope(content)
	if err != nil {
		return nil, err
	}

	blob, err := ParseBlob(raw)
	if err != nil {
		return nil, err
	}

	log.Debug("deriving key", "iterations", KDFIterations, "ciphertext_bytes", len(blob.Ciphertext))
	key := DeriveKey(password, blob.Salt)

	plain, err := DecryptCBC(key, blob.IV, blob.Ciphertext)
	if err != nil {
		log.Info("decryption failed")
		return nil, err
	}
	if !utf8.Valid(plain) {
		log.Info("decryption failed")
		return nil, ErrCrypto
	}

	res, err := d.extract(ctx, runID, string(plain))
	if err != nil {
		return nil, err
	}

	log.Info("backup decoded",
		"tables", len(res.Tables),
		"records", res.RecordCount(),
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Extract runs table extraction on already-decrypted plaintext.
func (d *Decrypter) Extract(ctx context.Context, plaintext string) (*Result, error) {
	runID := uuid.New()
	return d.extract(logging.ContextWithRunID(ctx, runID), runID, plaintext)
}

func (d *Decrypter) extract(ctx context.Context, runID uuid.UUID, plaintext string) (*Result, error) {
	res := &Result{RunID: runID}
	newExtractor(d.registry, res).run(ctx, SplitSegments(plaintext))

	if len(res.Tables) == 0 {
		return nil, ErrNoData
	}
	return res, nil
}
