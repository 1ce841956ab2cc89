package types

import (
	"crypto/subtle"
	"runtime"
)

// SecureBytes wraps sensitive key material and zeroes it on Clear.
// A finalizer covers the case where Clear is never called.
type SecureBytes struct {
	data []byte
}

// NewSecureBytes copies b into a guarded buffer
func NewSecureBytes(b []byte) *SecureBytes {
	s := &SecureBytes{data: make([]byte, len(b))}
	subtle.ConstantTimeCopy(1, s.data, b)
	runtime.SetFinalizer(s, func(sb *SecureBytes) {
		sb.Clear()
	})
	return s
}

// Bytes returns the underlying material. Callers must not retain the
// slice beyond the lifetime of the SecureBytes.
func (s *SecureBytes) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.data
}

// Clear zeroes the material
func (s *SecureBytes) Clear() {
	if s == nil || s.data == nil {
		return
	}
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}

// Len returns the material length, 0 after Clear
func (s *SecureBytes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}
