// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import (
	"bytes"
	"testing"
)

func TestHelloRoundTrip(t *testing.T) {
	opts := &Options{Database: "default", User: "default", Password: "secret"}
	w := newWriteBuffer(&bytes.Buffer{})
	writeHelloPacket(w, opts)

	r := newReadBuffer(bytes.NewReader(w.buf))
	code, err := readVarUint64(r)
	if err != nil {
		t.Fatalf("read packet code: %v", err)
	}
	if code != packetClientHello {
		t.Fatalf("got code %d, want %d", code, packetClientHello)
	}
	name, err := readString(r)
	if err != nil || name != clientProductName {
		t.Fatalf("got name %q, %v", name, err)
	}
}

func helloResponseBytes(t *testing.T, name string, major, minor, revision uint64, tz string) []byte {
	t.Helper()
	dst := appendString(nil, name)
	dst = appendVarUint64(dst, major)
	dst = appendVarUint64(dst, minor)
	dst = appendVarUint64(dst, revision)
	if revision >= revisionServerTimezone {
		dst = appendString(dst, tz)
	}
	return dst
}

func TestReadHelloResponseWithTimezone(t *testing.T) {
	data := helloResponseBytes(t, "ClickHouse server", 23, 3, revisionServerTimezone, "UTC")
	r := newReadBuffer(bytes.NewReader(data))
	info, err := readHelloResponse(r)
	if err != nil {
		t.Fatalf("readHelloResponse: %v", err)
	}
	if info.Name != "ClickHouse server" || info.Revision != revisionServerTimezone || info.Timezone != "UTC" {
		t.Fatalf("got %+v", info)
	}
}

func TestReadHelloResponseBelowTimezoneGate(t *testing.T) {
	data := helloResponseBytes(t, "ClickHouse server", 22, 1, revisionServerTimezone-1, "")
	r := newReadBuffer(bytes.NewReader(data))
	info, err := readHelloResponse(r)
	if err != nil {
		t.Fatalf("readHelloResponse: %v", err)
	}
	if info.Timezone != "" {
		t.Fatalf("expected no timezone below the gate, got %q", info.Timezone)
	}
}

// decodeWrittenDataPacket mirrors what writeDataPacket actually emits on
// the client→server channel (no temp table name field — that's a
// server→client-only field decoded by readDataPacket) so these tests can
// check writeDataPacket's own BlockInfo gating without reusing
// readDataPacket's asymmetric decode path.
func decodeWrittenDataPacket(t *testing.T, r *readBuffer, server ServerInfo) *Block {
	t.Helper()
	code, err := readVarUint64(r)
	if err != nil || code != packetClientData {
		t.Fatalf("got code %d, %v", code, err)
	}

	block := &Block{}
	if server.Revision >= revisionBlockInfoInData {
		info, err := readBlockInfo(r)
		if err != nil {
			t.Fatalf("readBlockInfo: %v", err)
		}
		block.Info = info
	}
	numColumns, err := readVarUint64(r)
	if err != nil {
		t.Fatalf("read column count: %v", err)
	}
	numRows, err := readVarUint64(r)
	if err != nil {
		t.Fatalf("read row count: %v", err)
	}
	block.NumRows = int(numRows)
	block.columns = make([]blockColumn, 0, numColumns)
	for i := uint64(0); i < numColumns; i++ {
		name, err := readString(r)
		if err != nil {
			t.Fatalf("read column name: %v", err)
		}
		typeName, err := readString(r)
		if err != nil {
			t.Fatalf("read column type: %v", err)
		}
		col, err := newColumn(typeName)
		if err != nil {
			t.Fatalf("newColumn: %v", err)
		}
		if err := col.Load(r, block.NumRows); err != nil {
			t.Fatalf("Load: %v", err)
		}
		block.columns = append(block.columns, blockColumn{Name: name, Type: typeName, Column: col})
	}
	return block
}

func TestWriteDataPacketRoundTrip(t *testing.T) {
	block := NewBlock(2, 3)
	if err := block.AppendColumn("id", "UInt32", NewUInt32Column([]uint32{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	if err := block.AppendColumn("name", "String", NewStringColumn([]string{"a", "bb", "ccc"})); err != nil {
		t.Fatal(err)
	}

	server := ServerInfo{Revision: revisionBlockInfoInData}
	w := newWriteBuffer(&bytes.Buffer{})
	if err := writeDataPacket(w, server, block); err != nil {
		t.Fatalf("writeDataPacket: %v", err)
	}

	r := newReadBuffer(bytes.NewReader(w.buf))
	got := decodeWrittenDataPacket(t, r, server)
	if got.NumColumns() != 2 || got.Rows() != 3 {
		t.Fatalf("got %d columns, %d rows", got.NumColumns(), got.Rows())
	}
	idCol, ok := got.Column("id")
	if !ok || idCol.(*uint32Column).values[2] != 3 {
		t.Fatalf("got id column %+v", idCol)
	}
	nameCol, ok := got.Column("name")
	if !ok || nameCol.(*stringColumn).values[1] != "bb" {
		t.Fatalf("got name column %+v", nameCol)
	}
}

func TestWriteDataPacketOmitsBlockInfoBelowGate(t *testing.T) {
	block := EmptyBlock()
	server := ServerInfo{Revision: revisionBlockInfoInData - 1}

	w := newWriteBuffer(&bytes.Buffer{})
	if err := writeDataPacket(w, server, block); err != nil {
		t.Fatalf("writeDataPacket: %v", err)
	}

	// code (1 byte) + column count (1 byte) + row count (1 byte), no
	// BlockInfo bytes at all.
	if len(w.buf) != 3 {
		t.Fatalf("got %d bytes, want 3 (no BlockInfo below the gate): %x", len(w.buf), w.buf)
	}

	r := newReadBuffer(bytes.NewReader(w.buf))
	got := decodeWrittenDataPacket(t, r, server)
	if !got.IsEmpty() {
		t.Fatalf("expected an empty block, got %+v", got)
	}
}

func TestWriteDataPacketIncludesBlockInfoAtGate(t *testing.T) {
	block := EmptyBlock()
	block.Info = blockInfo{IsOverflows: true, BucketNum: 7}
	server := ServerInfo{Revision: revisionBlockInfoInData}

	w := newWriteBuffer(&bytes.Buffer{})
	if err := writeDataPacket(w, server, block); err != nil {
		t.Fatalf("writeDataPacket: %v", err)
	}

	r := newReadBuffer(bytes.NewReader(w.buf))
	got := decodeWrittenDataPacket(t, r, server)
	if got.Info != block.Info {
		t.Fatalf("got %+v, want %+v", got.Info, block.Info)
	}
}

func TestReadDataPacketHonorsTempTableGate(t *testing.T) {
	w := newWriteBuffer(&bytes.Buffer{})
	// Below the temp-table gate (and so also below the BlockInfo gate),
	// neither a table name nor BlockInfo precedes the column and row counts.
	w.buf = appendVarUint64(w.buf, 0)
	w.buf = appendVarUint64(w.buf, 0)

	r := newReadBuffer(bytes.NewReader(w.buf))
	server := ServerInfo{Revision: revisionTempTableInDataPacket - 1}
	got, err := readDataPacket(r, server)
	if err != nil {
		t.Fatalf("readDataPacket: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("expected an empty block, got %+v", got)
	}
}

func TestReadProgressHonorsTotalRowsGate(t *testing.T) {
	dst := appendVarUint64(nil, 10)
	dst = appendVarUint64(dst, 2048)
	dst = appendVarUint64(dst, 100)

	r := newReadBuffer(bytes.NewReader(dst))
	p, err := readProgress(r, ServerInfo{Revision: revisionTotalRowsInProgress})
	if err != nil {
		t.Fatalf("readProgress: %v", err)
	}
	if p.Rows != 10 || p.Bytes != 2048 || p.TotalRows != 100 {
		t.Fatalf("got %+v", p)
	}

	dst2 := appendVarUint64(nil, 5)
	dst2 = appendVarUint64(dst2, 512)
	r2 := newReadBuffer(bytes.NewReader(dst2))
	p2, err := readProgress(r2, ServerInfo{Revision: revisionTotalRowsInProgress - 1})
	if err != nil {
		t.Fatalf("readProgress: %v", err)
	}
	if p2.TotalRows != 0 {
		t.Fatalf("expected zero TotalRows below the gate, got %d", p2.TotalRows)
	}
}

func TestReadProfileInfoRoundTrip(t *testing.T) {
	dst := appendVarUint64(nil, 7)
	dst = appendVarUint64(dst, 2)
	dst = appendVarUint64(dst, 4096)
	dst = appendBool(dst, true)
	dst = appendVarUint64(dst, 7)
	dst = appendBool(dst, false)

	r := newReadBuffer(bytes.NewReader(dst))
	p, err := readProfileInfo(r)
	if err != nil {
		t.Fatalf("readProfileInfo: %v", err)
	}
	if p.Rows != 7 || p.Blocks != 2 || p.Bytes != 4096 || !p.AppliedLimit || p.RowsBeforeLimit != 7 || p.CalculatedRowsBeforeLimit {
		t.Fatalf("got %+v", p)
	}
}

func exceptionFrameBytes(dst []byte, f ExceptionFrame, hasNested bool) []byte {
	dst = appendInt32(dst, f.Code)
	dst = appendString(dst, f.Name)
	dst = appendString(dst, f.DisplayText)
	dst = appendString(dst, f.StackTrace)
	if hasNested {
		dst = appendUint8(dst, 1)
	} else {
		dst = appendUint8(dst, 0)
	}
	return dst
}

func TestReadExceptionChainSingleFrame(t *testing.T) {
	want := ExceptionFrame{Code: 60, Name: "DB::Exception", DisplayText: "Table doesn't exist", StackTrace: ""}
	data := exceptionFrameBytes(nil, want, false)

	r := newReadBuffer(bytes.NewReader(data))
	exc, err := readExceptionChain(r)
	if err != nil {
		t.Fatalf("readExceptionChain: %v", err)
	}
	if len(exc.Frames) != 1 || exc.Frames[0] != want {
		t.Fatalf("got %+v", exc.Frames)
	}
	if exc.Head() != want {
		t.Fatalf("Head() = %+v, want %+v", exc.Head(), want)
	}
}

func TestReadExceptionChainMultipleFrames(t *testing.T) {
	f1 := ExceptionFrame{Code: 1, Name: "Outer", DisplayText: "outer text"}
	f2 := ExceptionFrame{Code: 2, Name: "Inner", DisplayText: "inner text"}
	data := exceptionFrameBytes(nil, f1, true)
	data = exceptionFrameBytes(data, f2, false)

	r := newReadBuffer(bytes.NewReader(data))
	exc, err := readExceptionChain(r)
	if err != nil {
		t.Fatalf("readExceptionChain: %v", err)
	}
	if len(exc.Frames) != 2 || exc.Frames[0] != f1 || exc.Frames[1] != f2 {
		t.Fatalf("got %+v", exc.Frames)
	}
}

func TestReadExceptionChainRejectsUnboundedNesting(t *testing.T) {
	var data []byte
	f := ExceptionFrame{Code: 1, Name: "Loop", DisplayText: "x"}
	for i := 0; i <= maxExceptionChainDepth; i++ {
		data = exceptionFrameBytes(data, f, true)
	}
	r := newReadBuffer(bytes.NewReader(data))
	if _, err := readExceptionChain(r); err == nil {
		t.Fatal("expected an error decoding an unbounded exception chain")
	}
}
