package aesgcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const lenPrefixSize = 4

// Envelope is the self describing blob produced by the cypher. Serialized it
// looks like:
//
//	int32LE(len(nonce)) | nonce | int32LE(len(tag)) | tag | ciphertext
type Envelope struct {
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// Serialize returns the binary form of the envelope.
func (e Envelope) Serialize() []byte {
	size := lenPrefixSize + len(e.Nonce) + lenPrefixSize + len(e.Tag) + len(e.Ciphertext)
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Nonce)))
	buf = append(buf, e.Nonce...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Tag)))
	buf = append(buf, e.Tag...)
	buf = append(buf, e.Ciphertext...)
	return buf
}

// String returns the base64 encoding of the serialized envelope.
func (e Envelope) String() string {
	return base64.StdEncoding.EncodeToString(e.Serialize())
}

// ParseEnvelope decodes a base64 envelope. Length fields are validated
// against the actual size of the blob, any inconsistency is reported as
// ErrFormat.
func ParseEnvelope(envelope string) (*Envelope, error) {
	buf, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %s", ErrFormat, err)
	}

	nonce, rest, err := readField(buf, "nonce")
	if err != nil {
		return nil, err
	}
	tag, ciphertext, err := readField(rest, "tag")
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Nonce:      nonce,
		Tag:        tag,
		Ciphertext: ciphertext,
	}, nil
}

func readField(buf []byte, name string) ([]byte, []byte, error) {
	if len(buf) < lenPrefixSize {
		return nil, nil, fmt.Errorf("%w: missing %s length", ErrFormat, name)
	}
	size := binary.LittleEndian.Uint32(buf[:lenPrefixSize])
	if size > math.MaxInt32 {
		return nil, nil, fmt.Errorf("%w: negative %s length", ErrFormat, name)
	}
	buf = buf[lenPrefixSize:]
	if int(size) > len(buf) {
		return nil, nil, fmt.Errorf(
			"%w: %s length %d exceeds remaining %d bytes", ErrFormat, name, size, len(buf),
		)
	}
	return buf[:size], buf[size:], nil
}
