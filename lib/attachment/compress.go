// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package attachment

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// errIncompressible signals that compression did not shrink the
// payload, so it should be stored raw.
var errIncompressible = errors.New("incompressible")

// Shared zstd coder instances. EncodeAll/DecodeAll on these are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("attachment: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("attachment: zstd decoder initialization failed: " + err.Error())
	}
}

func compressPayload(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressPayload(compressed []byte) ([]byte, error) {
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("attachment: zstd decompress: %w", err)
	}
	return data, nil
}
