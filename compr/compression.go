// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package compr wraps the compression
// libraries used for query documents
// and compiled reports stored on disk.
package compr

import (
	"bytes"
	"path"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor compresses whole documents.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress appends the compressed contents
	// of src to dst and returns the result.
	Compress(src, dst []byte) []byte
}

// Decompressor decompresses whole documents.
type Decompressor interface {
	// Name is the name of the compression algorithm.
	// See also Compressor.Name.
	Name() string
	// Decompress appends the decompressed
	// contents of src to dst and returns
	// the result.
	Decompress(src, dst []byte) ([]byte, error)
}

// zstdMagic begins every zstd frame
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func (z zstdCompressor) Compress(src, dst []byte) []byte {
	return z.enc.EncodeAll(src, dst)
}

func (z zstdCompressor) Name() string { return "zstd" }

var zstdDecoder *zstd.Decoder

func init() {
	// documents are small; one
	// goroutine per decoder is plenty
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
}

type zstdDecompressor struct{}

func (zstdDecompressor) Name() string { return "zstd" }

func (zstdDecompressor) Decompress(src, dst []byte) ([]byte, error) {
	return zstdDecoder.DecodeAll(src, dst)
}

type s2Compressor struct{}

func (s2Compressor) Compress(src, dst []byte) []byte {
	return append(dst, s2.Encode(nil, src)...)
}

func (s2Compressor) Decompress(src, dst []byte) ([]byte, error) {
	got, err := s2.Decode(nil, src)
	if err != nil {
		return nil, err
	}
	return append(dst, got...), nil
}

func (s2Compressor) Name() string { return "s2" }

// Compression selects a compression algorithm by name.
// The returned Compressor will return the same value
// for Compressor.Name as the specified name.
// Compression returns nil for unknown names.
func Compression(name string) Compressor {
	switch name {
	case "zstd-better":
		z, _ := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "zstd":
		z, _ := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "s2":
		return s2Compressor{}
	default:
		return nil
	}
}

// Decompression selects a decompression
// algorithm by name, or returns nil
// for unknown names.
func Decompression(name string) Decompressor {
	switch name {
	case "zstd", "zstd-better":
		return zstdDecompressor{}
	case "s2":
		return s2Compressor{}
	default:
		return nil
	}
}

// Extension returns the conventional file
// extension for the named algorithm.
func Extension(name string) string {
	switch name {
	case "zstd", "zstd-better":
		return ".zst"
	case "s2":
		return ".s2"
	default:
		return ""
	}
}

// Detect picks the decompressor for a document
// from its file name or, failing that, from its
// leading bytes. It returns nil if the document
// does not appear to be compressed.
func Detect(name string, head []byte) Decompressor {
	switch path.Ext(name) {
	case ".zst", ".zstd":
		return zstdDecompressor{}
	case ".s2":
		return s2Compressor{}
	}
	// s2 blocks carry no magic number,
	// so only zstd can be sniffed
	if bytes.HasPrefix(head, zstdMagic) {
		return zstdDecompressor{}
	}
	return nil
}

// Decode decompresses data if Detect
// recognizes it and otherwise
// returns it unchanged.
func Decode(name string, data []byte) ([]byte, error) {
	dec := Detect(name, data)
	if dec == nil {
		return data, nil
	}
	return dec.Decompress(data, nil)
}
