// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package attachment stores work order photo payloads content-addressed
// on local disk. Work order records carry only [schema.Attachment]
// references (id, locator, filename, media type); the bytes live here.
//
// Payloads are addressed by a domain-keyed BLAKE3 hash of the
// uncompressed content, so the same photo uploaded twice is stored
// once. Payloads are zstd-compressed on disk unless the content does
// not compress (most photos are already JPEG/HEIC compressed), in
// which case they are stored raw.
package attachment
