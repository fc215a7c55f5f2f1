package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const recordFormatVersion = 1

// HashSize is the size in bytes of a refresh-token fingerprint.
const HashSize = 32

// Record is the server-side session record for one principal. RefreshHash is
// the SHA-256 fingerprint of the raw refresh token; the raw token itself is
// never stored.
type Record struct {
	UserID      string
	RefreshHash [HashSize]byte
	CreatedAt   int64
	ExpiresAt   int64
}

// Expired reports whether the record has lapsed at the given instant.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.Unix()
}

// Encode serializes a record into the compact binary layout understood by the
// Redis rotation script:
//
//	[0]    format version
//	[1]    user ID length n (n <= 255)
//	[2..]  user ID (n bytes)
//	[...]  refresh fingerprint (32 bytes)
//	[...]  created-at, unix seconds (8 bytes, big endian)
//	[...]  expires-at, unix seconds (8 bytes, big endian)
func Encode(r *Record) ([]byte, error) {
	if len(r.UserID) == 0 {
		return nil, errors.New("empty user ID")
	}
	if len(r.UserID) > 255 {
		return nil, errors.New("user ID too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(r.UserID) + HashSize + 16)

	buf.WriteByte(recordFormatVersion)
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)
	buf.Write(r.RefreshHash[:])

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a binary record blob. It is the inverse of Encode and rejects
// unknown versions and truncated input.
func Decode(data []byte) (*Record, error) {
	if len(data) < 2 {
		return nil, ErrCorrupt
	}
	if data[0] != recordFormatVersion {
		return nil, ErrCorrupt
	}

	userLen := int(data[1])
	want := 2 + userLen + HashSize + 16
	if userLen == 0 || len(data) != want {
		return nil, ErrCorrupt
	}

	rec := &Record{UserID: string(data[2 : 2+userLen])}

	off := 2 + userLen
	copy(rec.RefreshHash[:], data[off:off+HashSize])
	off += HashSize
	rec.CreatedAt = int64(binary.BigEndian.Uint64(data[off : off+8]))
	rec.ExpiresAt = int64(binary.BigEndian.Uint64(data[off+8 : off+16]))

	return rec, nil
}
