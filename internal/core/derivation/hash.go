// Copyright 2024 The Nix-Compiler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package derivation implements the derivation view: the Derivation
// record, fixed-output store-path computation, and the `.drv`
// s-expression format.
package derivation

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// hashSizes maps the supported algorithm names to their digest size in
// bytes.
var hashSizes = map[string]int{
	"md5":    16,
	"sha1":   20,
	"sha256": 32,
	"sha512": 64,
}

// nix32Chars is Nix's base-32 alphabet: the usual base-32 digits with
// E, O, U, T removed to avoid confusable characters.
const nix32Chars = "0123456789abcdfghijklmnpqrsvwxyz"

// printBase32 renders digest (any length) in Nix base-32: the i-th
// character, reading from the string's tail, carries bits 5i..5i+5 of
// the digest, least-significant octet first.
func printBase32(digest []byte) string {
	hashSize := len(digest)
	length := (hashSize*8-1)/5 + 1
	out := make([]byte, length)
	for n := length - 1; n >= 0; n-- {
		b := n * 5
		i := b / 8
		j := uint(b % 8)
		c := digest[i] >> j
		if i+1 < hashSize {
			c |= digest[i+1] << (8 - j)
		}
		out[length-1-n] = nix32Chars[c&0x1f]
	}
	return string(out)
}

// compressHash XOR-folds an arbitrary-length digest down to n bytes
// (always used here with n=20).
func compressHash(digest []byte, n int) []byte {
	out := make([]byte, n)
	for i, b := range digest {
		out[i%n] ^= b
	}
	return out
}

// FixedOutputPath computes the store path of a fixed-output derivation's
// output `outputName`: name is the derivation's declared name,
// algo/hashHex describe the content hash of the fetched/built output
// (NAR-SHA256 content-addressing, the one scheme this evaluator
// supports).
func FixedOutputPath(name, outputName, algo, hashHex string) string {
	pathName := name
	if outputName != "out" {
		pathName = name + "-" + outputName
	}
	fingerprint := fmt.Sprintf("source:%s:%s:/nix/store:%s", algo, hashHex, pathName)
	digest := sha256.Sum256([]byte(fingerprint))
	compressed := compressHash(digest[:], 20)
	return "/nix/store/" + printBase32(compressed) + "-" + pathName
}

// ParseOutputHash normalizes a derivation's outputHash literal to the
// hex digest form the store-path fingerprint consumes. Three spellings are
// accepted, the same ones Nix itself reads back: bare hex, Nix
// base-32, and an SRI `algo-base64` form. algo is the declared
// outputHashAlgo; it may be empty when the literal is SRI (the prefix
// then names the algorithm), and an SRI prefix contradicting a declared
// algo is an error.
func ParseOutputHash(algo, literal string) (string, string, error) {
	if dash := strings.IndexByte(literal, '-'); dash > 0 {
		if _, ok := hashSizes[literal[:dash]]; ok {
			sriAlgo := literal[:dash]
			if algo != "" && algo != sriAlgo {
				return "", "", fmt.Errorf("SRI hash names algorithm %q but outputHashAlgo is %q", sriAlgo, algo)
			}
			raw, err := base64.StdEncoding.DecodeString(literal[dash+1:])
			if err != nil {
				return "", "", fmt.Errorf("invalid SRI hash %q: %v", literal, err)
			}
			if len(raw) != hashSizes[sriAlgo] {
				return "", "", fmt.Errorf("SRI hash %q decodes to %d bytes, want %d", literal, len(raw), hashSizes[sriAlgo])
			}
			return sriAlgo, hex.EncodeToString(raw), nil
		}
	}
	size, ok := hashSizes[algo]
	if !ok {
		return "", "", fmt.Errorf("unknown hash algorithm %q", algo)
	}
	switch len(literal) {
	case 2 * size:
		raw, err := hex.DecodeString(literal)
		if err != nil {
			return "", "", fmt.Errorf("invalid hex hash %q: %v", literal, err)
		}
		return algo, hex.EncodeToString(raw), nil
	case base32Len(size):
		raw, err := parseBase32(literal, size)
		if err != nil {
			return "", "", err
		}
		return algo, hex.EncodeToString(raw), nil
	default:
		return "", "", fmt.Errorf("hash %q has length %d, want %d (hex) or %d (base-32) for %s", literal, len(literal), 2*size, base32Len(size), algo)
	}
}

func base32Len(size int) int {
	return (size*8-1)/5 + 1
}

// parseBase32 is printBase32's inverse: the i-th character (reading from
// the string's tail) supplies bits 5i..5i+5 of the digest.
func parseBase32(s string, size int) ([]byte, error) {
	out := make([]byte, size)
	for n := 0; n < len(s); n++ {
		digit := strings.IndexByte(nix32Chars, s[len(s)-1-n])
		if digit < 0 {
			return nil, fmt.Errorf("invalid base-32 hash character %q", s[len(s)-1-n])
		}
		b := n * 5
		i := b / 8
		j := uint(b % 8)
		out[i] |= byte(digit << j)
		if carry := digit >> (8 - j); carry != 0 {
			if i+1 >= size {
				return nil, fmt.Errorf("invalid base-32 hash: non-zero padding")
			}
			out[i+1] |= byte(carry)
		}
	}
	return out, nil
}

// textHashPath computes a store path the way Nix computes one for a
// "text" hashed object (used here for `.drv` file paths, whose
// references are never followed since this evaluator never builds
// anything). references is included in the
// fingerprint unsorted-joined, matching Nix's own unsorted concatenation
// for the (here always empty) reference set this evaluator produces.
func textHashPath(name string, contents []byte, references []string) string {
	sum := sha256.Sum256(contents)
	hashHex := hex.EncodeToString(sum[:])
	refs := ""
	for _, r := range references {
		refs += r
	}
	fingerprint := fmt.Sprintf("text:%s:sha256:%s:/nix/store:%s", refs, hashHex, name)
	digest := sha256.Sum256([]byte(fingerprint))
	compressed := compressHash(digest[:], 20)
	return "/nix/store/" + printBase32(compressed) + "-" + name
}
