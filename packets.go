// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

// Client → server packet codes (§4.E).
const (
	packetClientHello uint64 = 0
	packetClientQuery uint64 = 1
	packetClientData  uint64 = 2
	packetClientPing  uint64 = 4
)

// Server → client packet codes (§4.E).
const (
	packetServerHello       uint64 = 0
	packetServerData        uint64 = 1
	packetServerException   uint64 = 2
	packetServerProgress    uint64 = 3
	packetServerPong        uint64 = 4
	packetServerEndOfStream uint64 = 5
	packetServerProfileInfo uint64 = 6
)

// maxExceptionChainDepth bounds a decoded exception chain, guarding
// against server misbehavior sending an unbounded nested chain (§4.F
// exception decode).
const maxExceptionChainDepth = 32

// writeHelloPacket encodes the client→server Hello packet: code, client
// name, client version, default database, user, password (§4.F "Connect &
// Handshake" step 1).
func writeHelloPacket(w *writeBuffer, opts *Options) {
	w.buf = appendVarUint64(w.buf, packetClientHello)
	w.buf = appendString(w.buf, clientProductName)
	w.buf = appendVarUint64(w.buf, clientMajor)
	w.buf = appendVarUint64(w.buf, clientMinor)
	w.buf = appendVarUint64(w.buf, clientRevision)
	w.buf = appendString(w.buf, opts.Database)
	w.buf = appendString(w.buf, opts.User)
	w.buf = appendString(w.buf, opts.Password)
}

// readHelloResponse decodes the server's Hello reply body (the code
// varuint64 has already been consumed by the caller). Timezone is only
// present when revision >= revisionServerTimezone (§4.F, §6).
func readHelloResponse(r *readBuffer) (ServerInfo, error) {
	var info ServerInfo
	name, err := readString(r)
	if err != nil {
		return info, err
	}
	info.Name = name
	if info.Major, err = readVarUint64(r); err != nil {
		return info, err
	}
	if info.Minor, err = readVarUint64(r); err != nil {
		return info, err
	}
	if info.Revision, err = readVarUint64(r); err != nil {
		return info, err
	}
	if info.Revision >= revisionServerTimezone {
		tz, err := readString(r)
		if err != nil {
			return info, err
		}
		info.Timezone = tz
	}
	return info, nil
}

// writeClientInfo encodes the ClientInfo block embedded in a Query packet,
// only when server.Revision >= revisionClientInfoInQuery (§4.F step 2).
func writeClientInfo(w *writeBuffer, server ServerInfo) {
	if server.Revision < revisionClientInfoInQuery {
		return
	}
	w.buf = appendUint8(w.buf, clientInfoQueryKind)
	w.buf = appendString(w.buf, "")                       // initial_user
	w.buf = appendString(w.buf, "")                       // initial_query_id
	w.buf = appendString(w.buf, "[::ffff:127.0.0.1]:0")   // initial_address
	w.buf = appendUint8(w.buf, clientInfoIfaceTCP)
	w.buf = appendString(w.buf, "") // os_user
	w.buf = appendString(w.buf, "") // client_hostname
	w.buf = appendString(w.buf, clientProductName)
	w.buf = appendVarUint64(w.buf, clientMajor)
	w.buf = appendVarUint64(w.buf, clientMinor)
	w.buf = appendVarUint64(w.buf, clientRevision)
	if server.Revision >= revisionQuotaKeyInClientInfo {
		w.buf = appendString(w.buf, "") // quota_key
	}
}

// writeQueryPacket encodes the client→server Query packet per §4.F
// "Query dispatch" step 2, for both the SELECT path and the insert
// dispatch's preamble (the text differs; the framing does not).
func writeQueryPacket(w *writeBuffer, server ServerInfo, queryID uint64, queryText string) {
	w.buf = appendVarUint64(w.buf, packetClientQuery)
	w.buf = appendString(w.buf, formatQueryID(queryID))
	writeClientInfo(w, server)
	w.buf = appendString(w.buf, "") // settings terminator: no per-query settings
	w.buf = appendVarUint64(w.buf, stageComplete)
	w.buf = appendVarUint64(w.buf, compressionDisabled)
	w.buf = appendString(w.buf, queryText)
}

// writeDataPacket encodes a Data packet carrying block on the client→server
// channel: code, BlockInfo (only when server.Revision >=
// revisionBlockInfoInData, per §4.F "Data packet encode" and the §8
// feature-gating monotonicity invariant — the client must not emit a
// field the server's revision doesn't also expect on decode), column
// count, row count, then each column's (name, type, body).
func writeDataPacket(w *writeBuffer, server ServerInfo, block *Block) error {
	w.buf = appendVarUint64(w.buf, packetClientData)
	if server.Revision >= revisionBlockInfoInData {
		w.buf = appendBlockInfo(w.buf, block.Info)
	}
	w.buf = appendVarUint64(w.buf, uint64(block.NumColumns()))
	w.buf = appendVarUint64(w.buf, uint64(block.NumRows))
	for i := 0; i < block.NumColumns(); i++ {
		name, typeName, col := block.ColumnAt(i)
		w.buf = appendString(w.buf, name)
		w.buf = appendString(w.buf, typeName)
		if err := col.Save(w); err != nil {
			return err
		}
	}
	return nil
}

// readDataPacket decodes a server→client Data packet body (the code
// varuint64 has already been consumed) per §4.F "Data packet decode".
func readDataPacket(r *readBuffer, server ServerInfo) (*Block, error) {
	if server.Revision >= revisionTempTableInDataPacket {
		if _, err := readString(r); err != nil { // temporary table name, unused by this core
			return nil, err
		}
	}

	block := &Block{}
	if server.Revision >= revisionBlockInfoInData {
		info, err := readBlockInfo(r)
		if err != nil {
			return nil, err
		}
		block.Info = info
	}

	numColumns, err := readVarUint64(r)
	if err != nil {
		return nil, err
	}
	numRows, err := readVarUint64(r)
	if err != nil {
		return nil, err
	}
	block.NumRows = int(numRows)
	block.columns = make([]blockColumn, 0, numColumns)

	for i := uint64(0); i < numColumns; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		typeName, err := readString(r)
		if err != nil {
			return nil, err
		}
		col, err := newColumn(typeName)
		if err != nil {
			return nil, err
		}
		if err := col.Load(r, block.NumRows); err != nil {
			return nil, err
		}
		block.columns = append(block.columns, blockColumn{Name: name, Type: typeName, Column: col})
	}
	return block, nil
}

// readProgress decodes a Progress packet body per §4.F receive loop.
func readProgress(r *readBuffer, server ServerInfo) (Progress, error) {
	var p Progress
	var err error
	if p.Rows, err = readVarUint64(r); err != nil {
		return p, err
	}
	if p.Bytes, err = readVarUint64(r); err != nil {
		return p, err
	}
	if server.Revision >= revisionTotalRowsInProgress {
		if p.TotalRows, err = readVarUint64(r); err != nil {
			return p, err
		}
	}
	return p, nil
}

// readProfileInfo decodes a ProfileInfo packet body per §4.F receive loop.
// AppliedLimit and CalculatedRowsBeforeLimit are one-byte booleans on the
// wire per spec.md §9's design note (not a generic fixed-size read).
func readProfileInfo(r *readBuffer) (ProfileInfo, error) {
	var p ProfileInfo
	var err error
	if p.Rows, err = readVarUint64(r); err != nil {
		return p, err
	}
	if p.Blocks, err = readVarUint64(r); err != nil {
		return p, err
	}
	if p.Bytes, err = readVarUint64(r); err != nil {
		return p, err
	}
	if p.AppliedLimit, err = readBool(r); err != nil {
		return p, err
	}
	if p.RowsBeforeLimit, err = readVarUint64(r); err != nil {
		return p, err
	}
	if p.CalculatedRowsBeforeLimit, err = readBool(r); err != nil {
		return p, err
	}
	return p, nil
}

// readExceptionChain decodes the exception frame chain per §4.F
// "Exception decode", capping chain length to guard against a server
// sending an unbounded has_nested chain.
func readExceptionChain(r *readBuffer) (*ServerException, error) {
	var frames []ExceptionFrame
	for {
		if len(frames) >= maxExceptionChainDepth {
			return nil, newProtocolError("exception chain exceeds %d frames", maxExceptionChainDepth)
		}
		code, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		displayText, err := readString(r)
		if err != nil {
			return nil, err
		}
		stackTrace, err := readString(r)
		if err != nil {
			return nil, err
		}
		frames = append(frames, ExceptionFrame{
			Code:        code,
			Name:        name,
			DisplayText: displayText,
			StackTrace:  stackTrace,
		})
		hasNested, err := readUint8(r)
		if err != nil {
			return nil, err
		}
		if hasNested == 0 {
			break
		}
	}
	return &ServerException{Frames: frames}, nil
}
