// Package msgpack provides MessagePack encoding for stored records.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hugr-lab/recordfilter/filter"
)

// ErrEmpty is returned when decoding zero bytes.
var ErrEmpty = errors.New("empty MessagePack data")

// Encode serializes a Go value into MessagePack format.
// Map keys are sorted so equal values encode to equal bytes.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes MessagePack data into a Go value.
// The v parameter should be a pointer to the target structure.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return nil
}

// EncodeValue serializes a record value. Integral numbers are written
// as integers and other numbers as float64, so the distinction survives
// a round trip.
func EncodeValue(v filter.Value) ([]byte, error) {
	return Encode(v.Interface())
}

// DecodeValue deserializes a record value written by EncodeValue.
func DecodeValue(data []byte) (filter.Value, error) {
	var raw any
	if err := Decode(data, &raw); err != nil {
		return filter.Value{}, err
	}
	v, err := filter.FromAny(raw)
	if err != nil {
		return filter.Value{}, fmt.Errorf("failed to decode MessagePack value: %w", err)
	}
	return v, nil
}
