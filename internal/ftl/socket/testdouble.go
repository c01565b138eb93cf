package socket

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pihole/pihole-api/internal/apierror"
)

// FakeConn is the codec's test double (§4.E): construction takes a mapping
// from command string to a prerecorded reply byte vector. It is
// indistinguishable at the codec surface from a real Conn — handlers depend
// only on the Conn interface.
type FakeConn struct {
	replies map[string][]byte
}

// NewFakeConn builds a FakeConn from prerecorded command replies.
func NewFakeConn(replies map[string][]byte) *FakeConn {
	return &FakeConn{replies: replies}
}

// Command returns a Reader over the prerecorded bytes for name, or a
// FtlConnectionFail error if no reply was recorded for it.
func (f *FakeConn) Command(_ context.Context, name string) (*Reader, error) {
	reply, ok := f.replies[name]
	if !ok {
		return nil, apierror.New(apierror.KindFtlConnectionFail, fmt.Sprintf("no recorded reply for command %q", name))
	}
	return NewReader(bytes.NewReader(reply)), nil
}

// Close is a no-op on the test double.
func (f *FakeConn) Close() error { return nil }
