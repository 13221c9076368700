// Package dispatch implements the command table: arity-checked resolution
// of an inbound token array to a keyspace/pub-sub operation and the RESP
// reply it produces. Commands are held in a map keyed by upper-cased
// command name, each entry carrying {min-arity, max-arity, handler},
// rather than a long per-command switch, to keep adding a command a
// one-line change.
package dispatch

import (
	"strings"

	"knox/keyspace"
	"knox/log"
	"knox/pubsub"
	"knox/resp"
)

// Conn is what a handler needs from the connection that sent it a command:
// identity for pub/sub bookkeeping, and a way to push reply frames back
// (the same path async pub/sub messages use).
type Conn interface {
	pubsub.Subscriber
}

// Stats are the atomic counters INFO reports; server.Server owns and
// increments the live instance, dispatch only reads it.
type Stats interface {
	ConnectionsAccepted() int64
	CommandsProcessed() int64
}

// Dispatcher wires together everything a handler might touch: the
// keyspace, the pub/sub registry, and server metadata for INFO.
type Dispatcher struct {
	Store     *keyspace.Store
	PubSub    *pubsub.Registry
	Stats     Stats
	Version   string
	Port      int
	StartedAt int64 // unix seconds, stamped by the caller at construction
}

// New constructs a Dispatcher. startedAt is a unix-seconds timestamp
// supplied by the caller (server.New), since packages under test must
// never call time.Now() themselves for a value this deterministic.
func New(store *keyspace.Store, ps *pubsub.Registry, stats Stats, version string, port int, startedAt int64) *Dispatcher {
	return &Dispatcher{Store: store, PubSub: ps, Stats: stats, Version: version, Port: port, StartedAt: startedAt}
}

type handlerFunc func(d *Dispatcher, conn Conn, args [][]byte) bool

type command struct {
	minArgs int // includes the command token itself
	maxArgs int // -1 means unbounded
	handler handlerFunc
}

var table map[string]*command

func init() {
	table = map[string]*command{
		"PING":        {1, 2, cmdPing},
		"INFO":        {1, 1, cmdInfo},
		"COMMAND":     {1, -1, cmdCommand},
		"QUIT":        {1, 1, cmdQuit},
		"EXIT":        {1, 1, cmdQuit},
		"SET":         {3, 3, cmdSet},
		"GET":         {2, 2, cmdGet},
		"DEL":         {2, 2, cmdDel},
		"EXISTS":      {2, 2, cmdExists},
		"INCR":        {2, 2, cmdIncr},
		"DECR":        {2, 2, cmdDecr},
		"EXPIRE":      {3, 3, cmdExpire},
		"TTL":         {2, 2, cmdTTL},
		"PERSIST":     {2, 2, cmdPersist},
		"KEYS":        {2, 2, cmdKeys},
		"LPUSH":       {3, 3, cmdLPush},
		"RPUSH":       {3, 3, cmdRPush},
		"LPOP":        {2, 2, cmdLPop},
		"RPOP":        {2, 2, cmdRPop},
		"LLEN":        {2, 2, cmdLLen},
		"LRANGE":      {4, 4, cmdLRange},
		"HSET":        {4, 4, cmdHSet},
		"HGET":        {3, 3, cmdHGet},
		"HDEL":        {3, 3, cmdHDel},
		"HEXISTS":     {3, 3, cmdHExists},
		"HGETALL":     {2, 2, cmdHGetAll},
		"SUBSCRIBE":   {2, -1, cmdSubscribe},
		"UNSUBSCRIBE": {1, -1, cmdUnsubscribe},
		"PUBLISH":     {3, 3, cmdPublish},
		"PUBSUB":      {2, -1, cmdPubSub},
		"SAVE":        {2, 2, cmdSave},
		"LOAD":        {2, 2, cmdLoad},
	}
}

// Dispatch resolves tokens[0] against the command table, validates arity
// before touching the keyspace, and runs the matched handler. It returns
// true if the connection should be closed after this command (QUIT/EXIT).
func Dispatch(d *Dispatcher, conn Conn, tokens [][]byte) bool {
	if len(tokens) == 0 {
		return false
	}

	name := strings.ToUpper(string(tokens[0]))
	cmd, ok := table[name]
	if !ok {
		conn.Push(resp.EncodeError("ERR unknown command '" + name + "'"))
		return false
	}

	if len(tokens) < cmd.minArgs || (cmd.maxArgs >= 0 && len(tokens) > cmd.maxArgs) {
		conn.Push(resp.EncodeError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command"))
		return false
	}

	log.Debugf("dispatch: %s", tokens)
	return cmd.handler(d, conn, tokens)
}

func replyError(conn Conn, err error) {
	conn.Push(resp.EncodeError("ERR " + err.Error()))
}
