// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import (
	"fmt"
	"io"
	"net"
)

// sessionState names the states from §4.F: Disconnected → Handshaking →
// Idle → Querying → Inserting(awaiting-schema) → Inserting(sending-data)
// → Idle, with any Io/Protocol failure driving to Broken.
type sessionState int

const (
	stateDisconnected sessionState = iota
	stateHandshaking
	stateIdle
	stateQuerying
	stateInsertingAwaitingSchema
	stateInsertingSendingData
	stateBroken
)

// Session owns exactly one socket, one buffered reader, one buffered
// writer and the cached ServerInfo (§3 "Session"). It holds no event sink:
// Execute takes the sink as a parameter for the duration of the call.
type Session struct {
	opts   *Options
	conn   net.Conn
	r      *readBuffer
	w      *writeBuffer
	server ServerInfo
	state  sessionState

	lastException *ServerException
}

// Open resolves host:port, opens a TCP socket, and runs the handshake
// (§4.F "Connect & Handshake"). On any failure the socket (if opened) is
// closed and an error is returned; the returned Session is otherwise
// ready for Execute/Insert/Ping.
func Open(opts *Options) (*Session, error) {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, &IoError{Op: "dial", Err: err}
	}
	return newSession(conn, opts)
}

// newSession runs the handshake over an already-established conn. Open
// splits dial from handshake this way so the handshake/dispatch logic can
// be exercised over any net.Conn, not only a dialed TCP socket.
func newSession(conn net.Conn, opts *Options) (*Session, error) {
	s := &Session{
		opts:  opts,
		conn:  conn,
		r:     newReadBuffer(conn),
		w:     newWriteBuffer(conn),
		state: stateHandshaking,
	}

	if err := s.handshake(); err != nil {
		conn.Close()
		s.state = stateBroken
		return nil, err
	}

	s.state = stateIdle
	return s, nil
}

func (s *Session) handshake() error {
	writeHelloPacket(s.w, s.opts)
	if err := s.w.flush(); err != nil {
		return &IoError{Op: "flush hello", Err: err}
	}

	code, err := readVarUint64(s.r)
	if err != nil {
		return s.classifyReadErr("read hello response code", err)
	}

	switch code {
	case packetServerHello:
		info, err := readHelloResponse(s.r)
		if err != nil {
			return s.classifyReadErr("read hello response body", err)
		}
		s.server = info
		return nil
	case packetServerException:
		exc, err := readExceptionChain(s.r)
		if err != nil {
			return s.classifyReadErr("read handshake exception", err)
		}
		protoLog.Printf("handshake rejected: %v", exc)
		return exc
	default:
		return newProtocolError("unexpected packet code %d during handshake", code)
	}
}

// classifyReadErr turns an I/O failure encountered mid-packet into an
// IoError (§7: "Partial reads of a multi-field packet that yield EOF are
// classified as Io"). A *ProtocolError from the decoders is returned as is.
func (s *Session) classifyReadErr(op string, err error) error {
	if pe, ok := err.(*ProtocolError); ok {
		return pe
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &IoError{Op: op, Err: io.ErrUnexpectedEOF}
	}
	return &IoError{Op: op, Err: err}
}

// ServerInfo returns the immutable post-handshake server profile.
func (s *Session) ServerInfo() ServerInfo { return s.server }

// LastException returns the most recently decoded server exception chain,
// or nil if none has been seen yet. A convenience accessor (SPEC_FULL.md
// "Supplemented features"): it does not change the terminal/non-terminal
// dispatch semantics of §4.F.
func (s *Session) LastException() *ServerException { return s.lastException }

// Broken reports whether the session has suffered an Io or Protocol error
// and rejects further operations.
func (s *Session) Broken() bool { return s.state == stateBroken }

// Close closes the socket unconditionally; any unflushed write data is
// discarded (§5 "Resource release").
func (s *Session) Close() error {
	s.state = stateBroken
	return s.conn.Close()
}

func (s *Session) fail(err error) error {
	s.state = stateBroken
	return err
}

// Execute runs a SELECT-style query, streaming result blocks through sink
// until the server reports EndOfStream or Exception (§4.F "Query
// dispatch"). The sink is installed only for the duration of this call.
func (s *Session) Execute(queryText string, sink EventSink) error {
	if s.state == stateBroken {
		return &UsageError{Msg: "Execute called on a Broken session"}
	}
	s.state = stateQuerying

	queryID := nextQueryID()
	writeQueryPacket(s.w, s.server, queryID, queryText)
	if err := writeDataPacket(s.w, s.server, EmptyBlock()); err != nil {
		return s.fail(err)
	}
	if err := s.w.flush(); err != nil {
		return s.fail(&IoError{Op: "flush query", Err: err})
	}

	for {
		cont, err := s.receiveOnePacket(sink)
		if err != nil {
			if se, ok := err.(*ServerException); ok {
				s.state = stateIdle
				if s.opts.RethrowServerExceptions {
					return se
				}
				return nil
			}
			return s.fail(err)
		}
		if !cont {
			s.state = stateIdle
			return nil
		}
	}
}

// Insert sends block to table as an INSERT INTO ... VALUES, following the
// dialog in §4.F "Insert dispatch": query, await the server's schema
// block, send the data block, send the end-of-data marker, then drain to
// terminal.
func (s *Session) Insert(tableName string, block *Block) error {
	if s.state == stateBroken {
		return &UsageError{Msg: "Insert called on a Broken session"}
	}
	s.state = stateInsertingAwaitingSchema

	queryID := nextQueryID()
	queryText := "INSERT INTO " + tableName + " VALUES"
	writeQueryPacket(s.w, s.server, queryID, queryText)
	if err := writeDataPacket(s.w, s.server, EmptyBlock()); err != nil {
		return s.fail(err)
	}
	if err := s.w.flush(); err != nil {
		return s.fail(&IoError{Op: "flush insert query", Err: err})
	}

	if err := s.awaitInsertSchema(); err != nil {
		if se, ok := err.(*ServerException); ok {
			s.state = stateIdle
			if s.opts.RethrowServerExceptions {
				return se
			}
			return nil
		}
		return s.fail(err)
	}

	s.state = stateInsertingSendingData
	if err := writeDataPacket(s.w, s.server, block); err != nil {
		return s.fail(err)
	}
	if err := writeDataPacket(s.w, s.server, EmptyBlock()); err != nil {
		return s.fail(err)
	}
	if err := s.w.flush(); err != nil {
		return s.fail(&IoError{Op: "flush insert data", Err: err})
	}

	for {
		cont, err := s.receiveOnePacket(nil)
		if err != nil {
			if se, ok := err.(*ServerException); ok {
				s.state = stateIdle
				if s.opts.RethrowServerExceptions {
					return se
				}
				return nil
			}
			return s.fail(err)
		}
		if !cont {
			s.state = stateIdle
			return nil
		}
	}
}

// awaitInsertSchema receives packets, ignoring Progress, until a Data
// packet arrives carrying the server's view of the table's column schema
// (§4.F "Insert dispatch" step 2). The schema is consumed but not
// validated against the caller's block (§9 open question).
func (s *Session) awaitInsertSchema() error {
	for {
		code, err := readVarUint64(s.r)
		if err != nil {
			return s.classifyReadErr("read packet code awaiting insert schema", err)
		}
		switch code {
		case packetServerProgress:
			if _, err := readProgress(s.r, s.server); err != nil {
				return s.classifyReadErr("read progress awaiting insert schema", err)
			}
		case packetServerData:
			if _, err := readDataPacket(s.r, s.server); err != nil {
				return s.classifyReadErr("read schema data packet", err)
			}
			return nil
		case packetServerException:
			exc, err := readExceptionChain(s.r)
			if err != nil {
				return s.classifyReadErr("read exception awaiting insert schema", err)
			}
			s.lastException = exc
			return exc
		default:
			return newProtocolError("unexpected packet code %d awaiting insert schema", code)
		}
	}
}

// Ping sends a Ping packet and expects exactly one Pong packet in return
// (§4.F "Ping").
func (s *Session) Ping() error {
	if s.state == stateBroken {
		return &UsageError{Msg: "Ping called on a Broken session"}
	}
	s.w.buf = appendVarUint64(s.w.buf, packetClientPing)
	if err := s.w.flush(); err != nil {
		return s.fail(&IoError{Op: "flush ping", Err: err})
	}

	code, err := readVarUint64(s.r)
	if err != nil {
		return s.fail(s.classifyReadErr("read pong", err))
	}
	if code != packetServerPong {
		return s.fail(newProtocolError("ping answered with packet code %d, expected Pong", code))
	}
	return nil
}

// receiveOnePacket reads one server packet and dispatches it per §4.F
// "Packet reception". It returns (true, nil) to continue the dispatch
// loop, (false, nil) on a clean terminal packet (EndOfStream), and
// (false, err) on any other terminal condition: err is a *ServerException
// for a decoded Exception packet (handled specially by callers — it does
// not itself imply Io/Protocol failure) or an *IoError/*ProtocolError for
// everything else.
func (s *Session) receiveOnePacket(sink EventSink) (bool, error) {
	code, err := readVarUint64(s.r)
	if err != nil {
		return false, s.classifyReadErr("read packet code", err)
	}

	switch code {
	case packetServerData:
		block, err := readDataPacket(s.r, s.server)
		if err != nil {
			return false, s.classifyReadErr("read data packet", err)
		}
		if sink != nil && block.NumRows > 0 {
			sink.OnData(block)
		}
		return true, nil

	case packetServerProgress:
		p, err := readProgress(s.r, s.server)
		if err != nil {
			return false, s.classifyReadErr("read progress packet", err)
		}
		if sink != nil {
			sink.OnProgress(p)
		}
		return true, nil

	case packetServerProfileInfo:
		p, err := readProfileInfo(s.r)
		if err != nil {
			return false, s.classifyReadErr("read profile packet", err)
		}
		if sink != nil {
			sink.OnProfile(p)
		}
		return true, nil

	case packetServerPong:
		return true, nil

	case packetServerEndOfStream:
		if sink != nil {
			sink.OnFinish()
		}
		return false, nil

	case packetServerException:
		exc, err := readExceptionChain(s.r)
		if err != nil {
			return false, s.classifyReadErr("read exception packet", err)
		}
		s.lastException = exc
		if sink != nil {
			sink.OnServerException(exc)
		}
		return false, exc

	default:
		return false, newProtocolError("unexpected packet code %d", code)
	}
}
