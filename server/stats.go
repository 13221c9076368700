package server

import "sync/atomic"

// Stats holds the server's atomic counters (see SPEC_FULL.md's supplemented
// features), grounded on the counter idiom other pack repos
// (armandParser-gofast-server) use for connection stats. INFO reports
// connections accepted and commands processed; bytesIn and bytesOut are
// counted but not reported by INFO.
type Stats struct {
	connectionsAccepted int64
	commandsProcessed   int64
	bytesIn             int64
	bytesOut            int64
}

func (s *Stats) ConnectionsAccepted() int64 { return atomic.LoadInt64(&s.connectionsAccepted) }
func (s *Stats) CommandsProcessed() int64   { return atomic.LoadInt64(&s.commandsProcessed) }
func (s *Stats) BytesIn() int64             { return atomic.LoadInt64(&s.bytesIn) }
func (s *Stats) BytesOut() int64            { return atomic.LoadInt64(&s.bytesOut) }

func (s *Stats) addConnection()       { atomic.AddInt64(&s.connectionsAccepted, 1) }
func (s *Stats) addCommand()          { atomic.AddInt64(&s.commandsProcessed, 1) }
func (s *Stats) addBytesIn(n int)     { atomic.AddInt64(&s.bytesIn, int64(n)) }
func (s *Stats) addBytesOut(n int)    { atomic.AddInt64(&s.bytesOut, int64(n)) }
