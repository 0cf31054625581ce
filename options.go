// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

// Options configures a new Session (§3 "Client options"). Building these
// from a connection string, URL, or flag set is the caller-facing
// convenience façade and is explicitly out of scope for this core; callers
// construct Options directly or layer their own parser on top.
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// RethrowServerExceptions, when set, makes execute/insert return the
	// decoded ServerException as an error in addition to delivering it to
	// the event sink's OnServerException (§7).
	RethrowServerExceptions bool
}

// clientProductName, clientMajor, clientMinor and clientRevision are the
// fixed constants this client emits during handshake and ClientInfo (§3
// "Client profile", §6). They double as feature-gate floors for whatever
// revision gates a future server might check against this client.
const (
	clientProductName = "ClickHouse client"
	clientMajor       = 1
	clientMinor       = 1
	clientRevision    = 54126
)

// Revision feature gates (§6), all inclusive lower bounds compared against
// ServerInfo.Revision.
const (
	revisionTempTableInDataPacket = 50264
	revisionTotalRowsInProgress   = 51554
	revisionBlockInfoInData       = 51903
	revisionClientInfoInQuery     = 54032
	revisionServerTimezone        = 54058
	revisionQuotaKeyInClientInfo  = 54060
)

const (
	stageComplete       = 2
	compressionDisabled = 0
	clientInfoIfaceTCP  = 1
	clientInfoQueryKind = 1
)

// ServerInfo is the server profile captured during handshake (§3). Once
// set it is immutable for the connection's life.
type ServerInfo struct {
	Name     string
	Major    uint64
	Minor    uint64
	Revision uint64
	// Timezone is only populated when Revision >= revisionServerTimezone.
	Timezone string
}

// Progress is delivered to the event sink's OnProgress zero or more times
// per query (§4.F receive loop).
type Progress struct {
	Rows  uint64
	Bytes uint64
	// TotalRows is only populated when ServerInfo.Revision >=
	// revisionTotalRowsInProgress; otherwise it is zero.
	TotalRows uint64
}

// ProfileInfo is delivered to the event sink's OnProfile at most once per
// query (§4.F receive loop).
type ProfileInfo struct {
	Rows                      uint64
	Blocks                    uint64
	Bytes                     uint64
	AppliedLimit              bool
	RowsBeforeLimit           uint64
	CalculatedRowsBeforeLimit bool
}
