// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import "fmt"

// IoError wraps a socket read/write/close failure, including an EOF seen
// mid-packet. A session that returns an IoError is left Broken.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("chnative: io error during %s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// ProtocolError covers anything the peer sent that doesn't fit the wire
// contract: an unexpected packet code, a malformed varint, an unknown
// column type, an exception chain deeper than maxExceptionChainDepth, a
// Ping answered by anything but Pong. A session that returns a
// ProtocolError is left Broken.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "chnative: protocol error: " + e.Msg }

func newProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// UsageError is returned when a caller invokes execute/insert/ping on a
// session that is already Broken.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "chnative: usage error: " + e.Msg }

// ExceptionFrame is one link of a decoded server exception chain (§4.F
// exception decode). The head frame is the proximate cause. Implemented as
// a flat owned slice rather than recursive owned pointers, per the design
// note on avoiding recursive ownership.
type ExceptionFrame struct {
	Code        int32
	Name        string
	DisplayText string
	StackTrace  string
}

// ServerException is a decoded exception chain delivered to the event
// sink's OnServerException and, when Options.RethrowServerExceptions is
// set, also returned as an error. It does not transition the session to
// Broken: the server finished the query cleanly at the protocol level.
type ServerException struct {
	Frames []ExceptionFrame
}

func (e *ServerException) Error() string {
	if len(e.Frames) == 0 {
		return "chnative: server exception"
	}
	head := e.Frames[0]
	return fmt.Sprintf("chnative: server exception (code %d, %s): %s", head.Code, head.Name, head.DisplayText)
}

// Head is the proximate-cause frame, or the zero value if the chain is
// empty.
func (e *ServerException) Head() ExceptionFrame {
	if len(e.Frames) == 0 {
		return ExceptionFrame{}
	}
	return e.Frames[0]
}
