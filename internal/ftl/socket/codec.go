// Package socket implements the control-socket codec (§4.E): a blocking
// connection to the resolver's UNIX-domain socket, framing outbound text
// commands and decoding typed primitives and strings from a
// MessagePack-compatible reply stream terminated by the single reserved
// byte 0xc1 (EOM).
//
// The primitive decoder functions follow the same reader-based shape as the
// teacher's RFC 4506 XDR decoders (`func DecodeXxx(io.Reader) (T, error)`),
// adapted to the wire format this protocol actually uses.
package socket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/pihole/pihole-api/internal/apierror"
)

// MessagePack-compatible type tags used by the reply stream.
const (
	tagFixintMax = 0x7f
	tagFixintMin = 0xe0 // negative fixint range starts here (as uint8)
	tagInt32     = 0xd2
	tagInt64     = 0xd3
	tagFloat32   = 0xca
	tagFloat64   = 0xcb
	tagStr8      = 0xd9
	tagStr16     = 0xda
	tagStr32     = 0xdb
	tagReserved  = 0xc1 // EOM sentinel
)

// ErrEOM is returned by ReadStr when it encounters the reserved 0xc1 marker
// instead of a string tag. Higher layers treat this as normal termination
// when streaming variable-length lists (§4.E).
var ErrEOM = errors.New("ftl socket: end of message")

// Reader decodes typed primitives from a control-socket reply stream.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for primitive decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (d *Reader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI32 decodes a 32-bit signed integer, accepting both the fixint range
// and the explicit int32 tag.
func (d *Reader) ReadI32() (int32, error) {
	tag, err := d.readByte()
	if err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading i32 tag", err)
	}
	if tag == tagReserved {
		return 0, ErrEOM
	}
	if tag <= tagFixintMax || tag >= tagFixintMin {
		return int32(int8(tag)), nil
	}
	if tag != tagInt32 {
		return 0, apierror.New(apierror.KindFtlReadError, fmt.Sprintf("unexpected tag 0x%x for i32", tag))
	}
	var v int32
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading i32 payload", err)
	}
	return v, nil
}

// ReadI64 decodes a 64-bit signed integer.
func (d *Reader) ReadI64() (int64, error) {
	tag, err := d.readByte()
	if err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading i64 tag", err)
	}
	if tag == tagReserved {
		return 0, ErrEOM
	}
	if tag <= tagFixintMax || tag >= tagFixintMin {
		return int64(int8(tag)), nil
	}
	if tag != tagInt64 {
		return 0, apierror.New(apierror.KindFtlReadError, fmt.Sprintf("unexpected tag 0x%x for i64", tag))
	}
	var v int64
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading i64 payload", err)
	}
	return v, nil
}

// ReadF32 decodes a 32-bit IEEE-754 float.
func (d *Reader) ReadF32() (float32, error) {
	tag, err := d.readByte()
	if err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading f32 tag", err)
	}
	if tag == tagReserved {
		return 0, ErrEOM
	}
	if tag != tagFloat32 {
		return 0, apierror.New(apierror.KindFtlReadError, fmt.Sprintf("unexpected tag 0x%x for f32", tag))
	}
	var bits uint32
	if err := binary.Read(d.r, binary.BigEndian, &bits); err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading f32 payload", err)
	}
	return math.Float32frombits(bits), nil
}

// ReadF64 decodes a 64-bit IEEE-754 float.
func (d *Reader) ReadF64() (float64, error) {
	tag, err := d.readByte()
	if err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading f64 tag", err)
	}
	if tag == tagReserved {
		return 0, ErrEOM
	}
	if tag != tagFloat64 {
		return 0, apierror.New(apierror.KindFtlReadError, fmt.Sprintf("unexpected tag 0x%x for f64", tag))
	}
	var bits uint64
	if err := binary.Read(d.r, binary.BigEndian, &bits); err != nil {
		return 0, apierror.Wrap(apierror.KindFtlReadError, "reading f64 payload", err)
	}
	return math.Float64frombits(bits), nil
}

// ReadStr decodes a str8/16/32-tagged string. If the next byte is the EOM
// marker (0xc1) instead of a string tag, ReadStr aborts and returns ErrEOM
// — the caller's loop over a variable-length list should treat this as
// normal termination, per §4.E.
func (d *Reader) ReadStr() (string, error) {
	tag, err := d.readByte()
	if err != nil {
		return "", apierror.Wrap(apierror.KindFtlReadError, "reading str tag", err)
	}
	if tag == tagReserved {
		return "", ErrEOM
	}

	var length uint32
	switch tag {
	case tagStr8:
		b, err := d.readByte()
		if err != nil {
			return "", apierror.Wrap(apierror.KindFtlReadError, "reading str8 length", err)
		}
		length = uint32(b)
	case tagStr16:
		var l uint16
		if err := binary.Read(d.r, binary.BigEndian, &l); err != nil {
			return "", apierror.Wrap(apierror.KindFtlReadError, "reading str16 length", err)
		}
		length = uint32(l)
	case tagStr32:
		if err := binary.Read(d.r, binary.BigEndian, &length); err != nil {
			return "", apierror.Wrap(apierror.KindFtlReadError, "reading str32 length", err)
		}
	default:
		return "", apierror.New(apierror.KindFtlReadError, fmt.Sprintf("unexpected tag 0x%x for str", tag))
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", apierror.Wrap(apierror.KindFtlReadError, "reading str payload", err)
	}
	return string(buf), nil
}

// ExpectEOM consumes exactly one byte and fails if it is not the EOM
// marker (0xc1).
func (d *Reader) ExpectEOM() error {
	tag, err := d.readByte()
	if err != nil {
		return apierror.Wrap(apierror.KindFtlReadError, "reading expected EOM", err)
	}
	if tag != tagReserved {
		return apierror.New(apierror.KindFtlReadError, fmt.Sprintf("expected EOM (0xc1), got 0x%x", tag))
	}
	return nil
}

// IsEOM reports whether err is (or wraps) ErrEOM.
func IsEOM(err error) bool {
	return errors.Is(err, ErrEOM)
}
