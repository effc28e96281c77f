// Package bech32 renders raw key material as checksummed bech32 addresses,
// the format nostr clients use for npub identifiers.
package bech32

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

	// PubkeyPrefix is the human-readable part of an encoded public key.
	PubkeyPrefix = "npub"

	checksumLength = 6
)

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

var (
	ErrInvalidHex    = errors.New("invalid hex key")
	ErrInvalidPrefix = errors.New("invalid human-readable prefix")
)

// EncodePubkey converts a hex encoded public key into its npub address.
func EncodePubkey(pubkeyHex string) (string, error) {
	if len(pubkeyHex)%2 != 0 {
		return "", fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(pubkeyHex))
	}
	data, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return Encode(PubkeyPrefix, data)
}

// Encode renders data under the given prefix. The input slice is not modified.
func Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", ErrInvalidPrefix
	}
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", fmt.Errorf("%w: character %q", ErrInvalidPrefix, hrp[i])
		}
	}
	hrp = strings.ToLower(hrp)

	values, err := ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	checksum := createChecksum(hrp, values)

	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(values) + checksumLength)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range values {
		sb.WriteByte(charset[v])
	}
	for _, v := range checksum {
		sb.WriteByte(charset[v])
	}
	return sb.String(), nil
}

// ConvertBits regroups data from fromBits-wide values into toBits-wide values.
// When pad is set the trailing group is filled with zero bits; otherwise
// leftover bits must be zero and shorter than fromBits.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var (
		acc  uint32
		bits uint
		out  = make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
		mask = uint32(1)<<toBits - 1
	)
	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("value %d exceeds %d bits", b, fromBits)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&mask))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&mask))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&mask != 0 {
		return nil, errors.New("invalid padding")
	}
	return out, nil
}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 | uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

func expandPrefix(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func createChecksum(hrp string, data []byte) []byte {
	values := expandPrefix(hrp)
	values = append(values, data...)
	values = append(values, make([]byte, checksumLength)...)
	mod := polymod(values) ^ 1

	checksum := make([]byte, checksumLength)
	for i := range checksum {
		checksum[i] = byte(mod >> (5 * (5 - uint(i))) & 31)
	}
	return checksum
}
