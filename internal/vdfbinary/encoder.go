package vdfbinary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnbalancedMap = errors.New("vdf map begin/end calls are unbalanced")
	ErrNulInString   = errors.New("vdf keys and strings cannot contain NUL bytes")
)

// Encoder writes binary VDF with one method per value kind. Nesting is
// tracked so Close can refuse to finish a document with open maps.
//
// The document root is implicit: the outermost map is closed by Close.
type Encoder struct {
	w     *bufio.Writer
	err   error
	depth int
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// String writes a string entry.
func (e *Encoder) String(key, value string) {
	if e.checkText(key) && e.checkText(value) {
		e.writeByte(vdfMarkerString)
		e.writeText(key)
		e.writeText(value)
	}
}

// Uint32 writes a 32-bit little-endian number entry.
func (e *Encoder) Uint32(key string, value uint32) {
	if !e.checkText(key) {
		return
	}
	e.writeByte(vdfMarkerNumber)
	e.writeText(key)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	e.write(b[:])
}

// Bool writes a flag as a number entry, 1 or 0.
func (e *Encoder) Bool(key string, value bool) {
	var n uint32
	if value {
		n = 1
	}
	e.Uint32(key, n)
}

// BeginMap opens a nested map. Every BeginMap needs a matching EndMap.
func (e *Encoder) BeginMap(key string) {
	if !e.checkText(key) {
		return
	}
	e.writeByte(vdfMarkerMap)
	e.writeText(key)
	e.depth++
}

// EndMap closes the innermost open map.
func (e *Encoder) EndMap() {
	if e.depth == 0 {
		e.fail(ErrUnbalancedMap)
		return
	}
	e.writeByte(vdfMarkerEndOfMap)
	e.depth--
}

// StringList writes values as a map keyed "0", "1", ... the way Steam
// stores arrays.
func (e *Encoder) StringList(key string, values []string) {
	e.BeginMap(key)
	for i, v := range values {
		e.String(fmt.Sprint(i), v)
	}
	e.EndMap()
}

// Close ends the root map and flushes. It returns the first error seen.
func (e *Encoder) Close() error {
	if e.err == nil && e.depth != 0 {
		e.fail(ErrUnbalancedMap)
	}
	e.writeByte(vdfMarkerEndOfMap)
	if e.err == nil {
		if err := e.w.Flush(); err != nil {
			e.fail(fmt.Errorf("flush error: %w", err))
		}
	}
	return e.err
}

func (e *Encoder) checkText(s string) bool {
	if strings.IndexByte(s, 0) >= 0 {
		e.fail(fmt.Errorf("%w: %q", ErrNulInString, s))
		return false
	}
	return e.err == nil
}

func (e *Encoder) writeText(s string) {
	if e.err != nil {
		return
	}
	if _, err := e.w.WriteString(s); err != nil {
		e.fail(fmt.Errorf("write error: %w", err))
		return
	}
	e.writeByte(vdfMarkerEndOfString)
}

func (e *Encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	if err := e.w.WriteByte(b); err != nil {
		e.fail(fmt.Errorf("write error: %w", err))
	}
}

func (e *Encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(b); err != nil {
		e.fail(fmt.Errorf("write error: %w", err))
	}
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
