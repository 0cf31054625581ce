// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

// blockInfo is the small tagged-field metadata record that precedes a
// block's columns on the wire when the server revision supports it
// (§4.F "BlockInfo", GLOSSARY).
type blockInfo struct {
	IsOverflows bool
	BucketNum   int32
}

const (
	blockInfoFieldOverflows = 1
	blockInfoFieldBucketNum = 2
	blockInfoFieldEnd       = 0
)

func readBlockInfo(r *readBuffer) (blockInfo, error) {
	var info blockInfo
	for {
		tag, err := readVarUint64(r)
		if err != nil {
			return info, err
		}
		switch tag {
		case blockInfoFieldOverflows:
			v, err := readBool(r)
			if err != nil {
				return info, err
			}
			info.IsOverflows = v
		case blockInfoFieldBucketNum:
			v, err := readInt32(r)
			if err != nil {
				return info, err
			}
			info.BucketNum = v
		case blockInfoFieldEnd:
			return info, nil
		default:
			return info, newProtocolError("unknown BlockInfo field tag %d", tag)
		}
	}
}

func appendBlockInfo(dst []byte, info blockInfo) []byte {
	dst = appendVarUint64(dst, blockInfoFieldOverflows)
	dst = appendBool(dst, info.IsOverflows)
	dst = appendVarUint64(dst, blockInfoFieldBucketNum)
	dst = appendInt32(dst, info.BucketNum)
	dst = appendVarUint64(dst, blockInfoFieldEnd)
	return dst
}

// blockColumn is one (name, type-descriptor, column) triple in insertion
// order (§3 Block).
type blockColumn struct {
	Name   string
	Type   string
	Column Column
}

// Block is an ordered, named, typed column sequence with a row count and
// block-info metadata. The empty block Block(0,0) — zero columns, zero
// rows — is the distinguished end-of-data sentinel on the client→server
// data channel (§3, §4.D).
type Block struct {
	Info    blockInfo
	NumRows int
	columns []blockColumn
}

// NewBlock reserves slots for numColumns columns, each declared to carry
// numRows rows.
func NewBlock(numColumns, numRows int) *Block {
	return &Block{
		NumRows: numRows,
		columns: make([]blockColumn, 0, numColumns),
	}
}

// EmptyBlock returns a fresh Block(0,0), the end-of-data marker.
func EmptyBlock() *Block { return NewBlock(0, 0) }

// IsEmpty reports whether this is the zero-columns, zero-rows sentinel.
func (b *Block) IsEmpty() bool { return len(b.columns) == 0 && b.NumRows == 0 }

// AppendColumn adds a column to the back of the block. It is a checked
// error if col's row count disagrees with the block's declared row count
// (§4.D); the check runs here, when the column is appended, so a caller
// learns about a mismatched insert block immediately. writeDataPacket does
// not repeat it.
func (b *Block) AppendColumn(name string, typeName string, col Column) error {
	if name == "" {
		return newProtocolError("block column name must not be empty")
	}
	if col.Len() != b.NumRows {
		return newProtocolError("column %q has %d rows, block declares %d", name, col.Len(), b.NumRows)
	}
	b.columns = append(b.columns, blockColumn{Name: name, Type: typeName, Column: col})
	return nil
}

// NumColumns reports how many columns have been appended.
func (b *Block) NumColumns() int { return len(b.columns) }

// ColumnNames returns the column names in insertion order.
func (b *Block) ColumnNames() []string {
	names := make([]string, len(b.columns))
	for i, c := range b.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name, returning (nil, false) if absent.
func (b *Block) Column(name string) (Column, bool) {
	for _, c := range b.columns {
		if c.Name == name {
			return c.Column, true
		}
	}
	return nil, false
}

// ColumnAt returns the (name, typeName, column) triple at position i in
// insertion order.
func (b *Block) ColumnAt(i int) (string, string, Column) {
	c := b.columns[i]
	return c.Name, c.Type, c.Column
}

// Rows reports the block's declared row count (convenience accessor over
// the triples §4.D already mandates).
func (b *Block) Rows() int { return b.NumRows }
