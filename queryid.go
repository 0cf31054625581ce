// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import (
	"strconv"
	"sync/atomic"
)

// globalQueryID is the process-wide, monotonically increasing query id
// counter (§3 "Query context", §5 "Shared resources"). It is the only
// shared mutable state in this client; lazily zero-valued, never reset,
// wrap-around not considered (§9 design note accepts module-scoped state
// over a session-scoped counter — the protocol's observable behavior does
// not distinguish the two outside multi-session scenarios).
var globalQueryID atomic.Uint64

// nextQueryID returns the next query id, strictly greater than every id
// previously returned by this process.
func nextQueryID() uint64 {
	return globalQueryID.Add(1)
}

// formatQueryID renders a query id as the decimal string the Query packet
// carries on the wire (§4.F step 2).
func formatQueryID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
