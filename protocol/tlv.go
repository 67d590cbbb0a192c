// Record format is based on ToyTLV (MIT licence) written by Victor Grishchenko in 2024
// Original project: https://github.com/learn-decentralized-systems/toytlv

/*
Package protocol implements the TLV (type-length-value) framing chit uses for
its persisted records.

# Record headers

	tiny   [ '0'+len ]                    body 0..9 bytes, lowercase lit only, type is lost
	short  [ lowercase lit, len ]         body up to 255 bytes
	long   [ uppercase lit, len as LE32 ] body up to 2GB

Record types are the letters A-Z. Passing a lowercase lit to the encoders
allows the tiny form; an uppercase lit keeps the type on the wire, which is
what every persisted chit record uses.

# Parsing

Take/TakeAny trust their input. TakeWary/TakeAnyWary are for bytes that came
from disk: they check the header and the bounds and report ErrIncomplete or
ErrBadRecord instead of returning partial data.
*/
package protocol

import (
	"encoding/binary"
	"errors"
)

const CaseBit uint8 = 'a' - 'A'

var (
	ErrIncomplete = errors.New("incomplete data")
	ErrBadRecord  = errors.New("bad TLV record format")
)

// ProbeHeader reads a record header.
//
// Returns:
//   - lit: record type ('A'-'Z', '0' for tiny, '-' for error, 0 for incomplete)
//   - hdrlen: header length (1, 2, or 5 bytes)
//   - bodylen: body length in bytes
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	dlit := data[0]
	switch {
	case dlit >= '0' && dlit <= '9': // tiny
		lit = '0'
		bodylen = int(dlit - '0')
		hdrlen = 1
	case dlit >= 'a' && dlit <= 'z': // short
		if len(data) < 2 {
			return
		}
		lit = dlit - CaseBit
		hdrlen = 2
		bodylen = int(data[1])
	case dlit >= 'A' && dlit <= 'Z': // long
		if len(data) < 5 {
			return
		}
		bl := binary.LittleEndian.Uint32(data[1:5])
		if bl > 0x7fffffff {
			lit = '-'
			return
		}
		lit = dlit
		bodylen = int(bl)
		hdrlen = 5
	default:
		lit = '-'
	}
	return
}

// AppendHeader appends a header for a body of the given length, picking the
// shortest form the lit allows.
func AppendHeader(into []byte, lit byte, bodylen int) (ret []byte) {
	biglit := lit &^ CaseBit
	if biglit < 'A' || biglit > 'Z' {
		panic("TLV record type is A..Z")
	}
	if bodylen < 10 && (lit&CaseBit) != 0 {
		ret = append(into, byte('0'+bodylen))
	} else if bodylen > 0xff {
		if bodylen > 0x7fffffff {
			panic("oversized TLV record")
		}
		ret = append(into, biglit)
		ret = binary.LittleEndian.AppendUint32(ret, uint32(bodylen))
	} else {
		ret = append(into, biglit|CaseBit, byte(bodylen))
	}
	return ret
}

// TakeWary extracts a record of the given type from untrusted data.
// Tiny records are refused: their type can not be checked.
func TakeWary(lit byte, data []byte) (body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == '-' {
		return nil, nil, ErrBadRecord
	}
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data, ErrIncomplete
	}
	if flit != lit {
		return nil, nil, ErrBadRecord
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

// TakeAnyWary extracts the next record of any explicit type from untrusted data.
func TakeAnyWary(data []byte) (lit byte, body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	switch {
	case flit == 0 || hdrlen+bodylen > len(data):
		return 0, nil, data, ErrIncomplete
	case flit == '-' || flit == '0':
		return 0, nil, nil, ErrBadRecord
	}
	return flit, data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

// TotalLen calculates the total length of multiple byte slices.
func TotalLen(inputs [][]byte) (sum int) {
	for _, input := range inputs {
		sum += len(input)
	}
	return
}

// Append builds a record from the body pieces and appends it to into.
func Append(into []byte, lit byte, body ...[]byte) (res []byte) {
	res = AppendHeader(into, lit, TotalLen(body))
	for _, b := range body {
		res = append(res, b...)
	}
	return res
}

// Record creates a complete TLV record with pre-allocated capacity.
func Record(lit byte, body ...[]byte) []byte {
	total := TotalLen(body)
	return Append(make([]byte, 0, total+5), lit, body...)
}

// OpenHeader starts a long-form record whose length is not known yet.
// Append the body, then finish with CloseHeader(buf, bookmark).
func OpenHeader(buf []byte, lit byte) (bookmark int, res []byte) {
	lit &= ^CaseBit
	if lit < 'A' || lit > 'Z' {
		panic("TLV liters are uppercase A-Z")
	}
	res = append(buf, lit, 0, 0, 0, 0)
	return len(res), res
}

// CloseHeader writes the body length of a record started with OpenHeader.
func CloseHeader(buf []byte, bookmark int) {
	if bookmark < 5 || len(buf) < bookmark {
		panic("check the API docs")
	}
	binary.LittleEndian.PutUint32(buf[bookmark-4:bookmark], uint32(len(buf)-bookmark))
}
