// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import "io"

const defaultBufSize = 4096

// readBuffer is a read buffer similar to bufio.Reader but specialized for
// this client: readExact never surfaces a short read to callers above it,
// retrying against the underlying reader until n bytes are in hand or the
// stream reports EOF/error (§4.A).
type readBuffer struct {
	buf    []byte
	rd     io.Reader
	idx    int
	length int
}

func newReadBuffer(rd io.Reader) *readBuffer {
	return &readBuffer{
		buf: make([]byte, defaultBufSize),
		rd:  rd,
	}
}

// fill reads into the buffer until at least need bytes are in it.
func (b *readBuffer) fill(need int) error {
	// move existing data to the beginning
	if b.length > 0 && b.idx > 0 {
		copy(b.buf[0:b.length], b.buf[b.idx:b.idx+b.length])
	}

	// grow buffer if necessary
	if need > len(b.buf) {
		newBuf := make([]byte, need)
		copy(newBuf, b.buf[:b.length])
		b.buf = newBuf
	}
	b.idx = 0

	for b.length < need {
		n, err := b.rd.Read(b.buf[b.length:])
		b.length += n
		if err != nil {
			return err
		}
	}
	return nil
}

// readExact returns the next n bytes from the stream. The returned slice
// is only guaranteed to be valid until the next readExact call. A non-nil
// error is io.EOF or whatever the underlying Reader returned; callers wrap
// it as an IoError.
func (b *readBuffer) readExact(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if b.length < n {
		if err := b.fill(n); err != nil {
			return nil, err
		}
	}
	p := b.buf[b.idx : b.idx+n]
	b.idx += n
	b.length -= n
	return p, nil
}

// writeBuffer accumulates bytes across write calls and drains them to the
// underlying stream only on flush; failure surfaces at flush, never at an
// individual write (§4.A).
type writeBuffer struct {
	buf []byte
	wr  io.Writer
}

func newWriteBuffer(wr io.Writer) *writeBuffer {
	return &writeBuffer{
		buf: make([]byte, 0, defaultBufSize),
		wr:  wr,
	}
}

func (b *writeBuffer) write(p []byte)   { b.buf = append(b.buf, p...) }
func (b *writeBuffer) writeByte(c byte) { b.buf = append(b.buf, c) }

// flush drains all buffered bytes to the underlying stream and resets the
// buffer, succeeding or failing as one unit.
func (b *writeBuffer) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	_, err := b.wr.Write(b.buf)
	b.buf = b.buf[:0]
	return err
}
