package socket

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeF32(v float32) []byte {
	bits := math.Float32bits(v)
	return []byte{tagFloat32, byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
}

func encodeI32(v int32) []byte {
	u := uint32(v)
	return []byte{tagInt32, byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}

func encodeI64(v int64) []byte {
	u := uint64(v)
	b := make([]byte, 9)
	b[0] = tagInt64
	for i := 0; i < 8; i++ {
		b[1+i] = byte(u >> (56 - i*8))
	}
	return b
}

func encodeStr8(s string) []byte {
	b := []byte{tagStr8, byte(len(s))}
	return append(b, []byte(s)...)
}

func TestQueryTypesReply(t *testing.T) {
	// Seed scenario 2: write_f32(0.7); write_f32(0.3); EOM
	var buf bytes.Buffer
	buf.Write(encodeF32(0.7))
	buf.Write(encodeF32(0.3))
	buf.WriteByte(tagReserved)

	r := NewReader(&buf)

	a, err := r.ReadF32()
	require.NoError(t, err)
	require.InDelta(t, 0.7, a, 1e-6)

	aaaa, err := r.ReadF32()
	require.NoError(t, err)
	require.InDelta(t, 0.3, aaaa, 1e-6)

	_, err = r.ReadF32()
	require.True(t, IsEOM(err))
}

func TestDBStatsReply(t *testing.T) {
	// Seed scenario 3: write_i32(340934); write_i64(85843); write_str("3.0.1"); EOM
	var buf bytes.Buffer
	buf.Write(encodeI32(340934))
	buf.Write(encodeI64(85843))
	buf.Write(encodeStr8("3.0.1"))
	buf.WriteByte(tagReserved)

	r := NewReader(&buf)

	queries, err := r.ReadI32()
	require.NoError(t, err)
	require.Equal(t, int32(340934), queries)

	filesize, err := r.ReadI64()
	require.NoError(t, err)
	require.Equal(t, int64(85843), filesize)

	version, err := r.ReadStr()
	require.NoError(t, err)
	require.Equal(t, "3.0.1", version)

	require.NoError(t, r.ExpectEOM())
}

func TestReadStrAbortsOnEOM(t *testing.T) {
	buf := bytes.NewBuffer([]byte{tagReserved})
	r := NewReader(buf)

	_, err := r.ReadStr()
	require.True(t, IsEOM(err))
}

func TestExpectEOMFailsOnWrongByte(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00})
	r := NewReader(buf)

	err := r.ExpectEOM()
	require.Error(t, err)
}

func TestFakeConnIndistinguishableFromReader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeI32(7))
	buf.WriteByte(tagReserved)

	fc := NewFakeConn(map[string][]byte{"dbstats": buf.Bytes()})

	reader, err := fc.Command(nil, "dbstats") //nolint:staticcheck // test double accepts nil ctx
	require.NoError(t, err)

	v, err := reader.ReadI32()
	require.NoError(t, err)
	require.Equal(t, int32(7), v)
}
