// Package vdfbinary reads and writes Valve's binary VDF format.
//
// The parser started as a vendored and modified version of
// github.com/TimDeve/valve-vdf-binary (MIT). The encoder is new.
package vdfbinary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	vdfMarkerMap         byte = 0x00
	vdfMarkerString      byte = 0x01
	vdfMarkerNumber      byte = 0x02
	vdfMarkerEndOfMap    byte = 0x08
	vdfMarkerEndOfString byte = 0x00
)

var (
	ErrEmptyVDF     = errors.New("the vdf you are trying to parse appears empty")
	ErrNotBinaryVDF = errors.New("the vdf appears not to be binary, are you sure it is not a text vdf?")
	ErrCorruptedVDF = errors.New("reached the end of the file earlier than expected, your file might be corrupted")
)

// Map is a parsed VDF map. Keys are lower-cased on parse.
type Map map[string]Value

// Value is one of string, uint32 or Map.
type Value struct {
	v any
}

func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

func (v Value) AsUint() (uint32, bool) {
	n, ok := v.v.(uint32)
	return n, ok
}

func (v Value) AsMap() (Map, bool) {
	m, ok := v.v.(Map)
	return m, ok
}

// GetMap looks up a nested map by key, case-insensitively.
func (v Value) GetMap(key string) (Map, bool) {
	m, ok := v.AsMap()
	if !ok {
		return nil, false
	}
	return m.GetMap(key)
}

func (m Map) GetMap(key string) (Map, bool) {
	val, ok := m[strings.ToLower(key)]
	if !ok {
		return nil, false
	}
	return val.AsMap()
}

func (m Map) GetString(key string) (string, bool) {
	val, ok := m[strings.ToLower(key)]
	if !ok {
		return "", false
	}
	return val.AsString()
}

func (m Map) GetUint(key string) (uint32, bool) {
	val, ok := m[strings.ToLower(key)]
	if !ok {
		return 0, false
	}
	return val.AsUint()
}

// GetBool reads a number field as a boolean, the way Steam stores flags.
func (m Map) GetBool(key string) (bool, bool) {
	n, ok := m.GetUint(key)
	if !ok {
		return false, false
	}
	return n != 0, true
}

// Parse reads a whole binary VDF document.
func Parse(r io.Reader) (Value, error) {
	buf := bufio.NewReader(r)

	byteArr, err := buf.Peek(1)
	if errors.Is(err, io.EOF) {
		return Value{}, ErrEmptyVDF
	}
	if err != nil {
		return Value{}, fmt.Errorf("peek error: %w", err)
	}

	switch byteArr[0] {
	case vdfMarkerMap, vdfMarkerString, vdfMarkerNumber, vdfMarkerEndOfMap:
	default:
		return Value{}, ErrNotBinaryVDF
	}

	p, err := parseMap(buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Value{}, ErrCorruptedVDF
	}
	return p, err
}

func parseMap(buf *bufio.Reader) (Value, error) {
	m := make(Map)

	for {
		b, err := buf.ReadByte()
		if err != nil {
			return Value{}, fmt.Errorf("read byte error: %w", err)
		}

		if b == vdfMarkerEndOfMap {
			break
		}

		key, err := parseString(buf)
		if err != nil {
			return Value{}, err
		}

		var value Value
		switch b {
		case vdfMarkerMap:
			value, err = parseMap(buf)
		case vdfMarkerNumber:
			value, err = parseNumber(buf)
		case vdfMarkerString:
			var s string
			s, err = parseString(buf)
			value = Value{s}
		default:
			err = fmt.Errorf("unexpected byte: 0x%02x, your file might be corrupted", b)
		}

		if err != nil {
			return Value{}, err
		}

		m[strings.ToLower(key)] = value
	}

	return Value{m}, nil
}

func parseNumber(buf *bufio.Reader) (Value, error) {
	var bf [4]byte
	if _, err := io.ReadFull(buf, bf[:]); err != nil {
		return Value{}, fmt.Errorf("number did not have the required amount of bytes: %w", err)
	}
	return Value{binary.LittleEndian.Uint32(bf[:])}, nil
}

func parseString(buf *bufio.Reader) (string, error) {
	s, err := buf.ReadString(vdfMarkerEndOfString)
	if err == nil {
		return s[:len(s)-1], nil
	}
	return "", fmt.Errorf("read string error: %w", err)
}
