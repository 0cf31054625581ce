// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

// EventSink is the capability set a caller supplies to Session.Execute. All
// calls are synchronous on the session's thread of control; a sink must
// not re-enter the session, and an error returned from a sink implies the
// caller keeps it internal (§4.G, §5).
//
// Unlike the teacher protocol this client is modeled on, the source
// installs and clears a raw sink pointer via a scoped guard; this client
// instead passes the sink as a borrowed parameter for the duration of one
// call (spec.md §9's design note), so there is no process-wide mutable
// sink state to race on.
type EventSink interface {
	// OnData is called once per non-empty Data packet received during
	// query execution.
	OnData(block *Block)

	// OnProgress is called zero or more times during execution.
	OnProgress(progress Progress)

	// OnProfile is called at most once per query.
	OnProfile(profile ProfileInfo)

	// OnServerException is called at most once; the query is terminal
	// once this fires.
	OnServerException(exc *ServerException)

	// OnFinish is called exactly once on normal completion (EndOfStream).
	OnFinish()
}

// NopSink is an EventSink whose methods do nothing; embed it to implement
// only the callbacks a caller cares about.
type NopSink struct{}

func (NopSink) OnData(*Block)                      {}
func (NopSink) OnProgress(Progress)                {}
func (NopSink) OnProfile(ProfileInfo)              {}
func (NopSink) OnServerException(*ServerException) {}
func (NopSink) OnFinish()                          {}

// CollectingSink accumulates everything delivered during one call into
// plain slices/fields, for callers (and tests) that want the whole result
// rather than a streaming callback.
type CollectingSink struct {
	Blocks     []*Block
	Progresses []Progress
	Profile    *ProfileInfo
	Exception  *ServerException
	Finished   bool
}

func (s *CollectingSink) OnData(block *Block)                     { s.Blocks = append(s.Blocks, block) }
func (s *CollectingSink) OnProgress(p Progress)                   { s.Progresses = append(s.Progresses, p) }
func (s *CollectingSink) OnProfile(p ProfileInfo)                 { s.Profile = &p }
func (s *CollectingSink) OnServerException(exc *ServerException) { s.Exception = exc }
func (s *CollectingSink) OnFinish()                               { s.Finished = true }
