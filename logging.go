// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import (
	"log"
	"os"
)

// protoLog receives a trace line when a handshake ends in a server
// Exception, alongside the error returned to the caller. Other protocol
// and I/O errors are returned without a log line.
var protoLog = log.New(os.Stderr, "[chnative] ", log.Ldate|log.Ltime|log.Lshortfile)

// SetLogger replaces the package's diagnostic logger. Passing nil restores
// the default (stderr).
func SetLogger(l *log.Logger) {
	if l == nil {
		protoLog = log.New(os.Stderr, "[chnative] ", log.Ldate|log.Ltime|log.Lshortfile)
		return
	}
	protoLog = l
}
