package field

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// Wire format constants. The nonce is deliberately 16 bytes, not the
// Go default of 12, so the codec pins the GCM nonce size explicitly.
const (
	NonceSize = 16
	TagSize   = 16
	KeySize   = 32
)

// EncodeBlob renders nonce, tag and ciphertext as
// base64(hex(nonce) ":" hex(tag) ":" hex(ciphertext)).
func EncodeBlob(nonce, tag, ciphertext []byte) string {
	inner := hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext)
	return base64.StdEncoding.EncodeToString([]byte(inner))
}

// DecodeBlob parses an encoded blob back into its three segments.
// Any structural defect yields a ValidationError.
func DecodeBlob(blob string) (nonce, tag, ciphertext []byte, err error) {
	inner, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, nil, nil, &types.ValidationError{Reason: fmt.Sprintf("blob is not valid base64: %v", err)}
	}

	parts := strings.Split(string(inner), ":")
	if len(parts) != 3 {
		return nil, nil, nil, &types.ValidationError{Reason: fmt.Sprintf("blob must contain exactly 3 segments, got %d", len(parts))}
	}

	nonce, err = hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, nil, &types.ValidationError{Reason: "nonce segment is not valid hex"}
	}
	tag, err = hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, nil, &types.ValidationError{Reason: "tag segment is not valid hex"}
	}
	ciphertext, err = hex.DecodeString(parts[2])
	if err != nil {
		return nil, nil, nil, &types.ValidationError{Reason: "ciphertext segment is not valid hex"}
	}

	if len(nonce) != NonceSize {
		return nil, nil, nil, &types.ValidationError{Reason: fmt.Sprintf("nonce must be %d bytes, got %d", NonceSize, len(nonce))}
	}
	if len(tag) != TagSize {
		return nil, nil, nil, &types.ValidationError{Reason: fmt.Sprintf("tag must be %d bytes, got %d", TagSize, len(tag))}
	}

	return nonce, tag, ciphertext, nil
}
