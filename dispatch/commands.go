package dispatch

import (
	"strconv"
	"strings"

	"knox/keyspace"
	"knox/resp"
)

func cmdPing(d *Dispatcher, conn Conn, args [][]byte) bool {
	if len(args) == 2 {
		conn.Push(resp.EncodeBulkString(args[1]))
	} else {
		conn.Push(resp.EncodeSimpleString("PONG"))
	}
	return false
}

func cmdInfo(d *Dispatcher, conn Conn, args [][]byte) bool {
	var b strings.Builder
	b.WriteString("knox_version:" + d.Version + "\r\n")
	b.WriteString("tcp_port:" + strconv.Itoa(d.Port) + "\r\n")
	if d.Stats != nil {
		b.WriteString("connections_accepted:" + strconv.FormatInt(d.Stats.ConnectionsAccepted(), 10) + "\r\n")
		b.WriteString("commands_processed:" + strconv.FormatInt(d.Stats.CommandsProcessed(), 10) + "\r\n")
	}
	conn.Push(resp.EncodeBulkString([]byte(b.String())))
	return false
}

func cmdCommand(d *Dispatcher, conn Conn, args [][]byte) bool {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	elements := make([][]byte, len(names))
	for i, n := range names {
		elements[i] = resp.EncodeBulkString([]byte(strings.ToLower(n)))
	}
	conn.Push(resp.EncodeArray(elements...))
	return false
}

func cmdQuit(d *Dispatcher, conn Conn, args [][]byte) bool {
	conn.Push(resp.EncodeSimpleString("OK"))
	return true
}

func cmdSet(d *Dispatcher, conn Conn, args [][]byte) bool {
	d.Store.Set(string(args[1]), args[2])
	conn.Push(resp.EncodeSimpleString("OK"))
	return false
}

func cmdGet(d *Dispatcher, conn Conn, args [][]byte) bool {
	value, ok := d.Store.Get(string(args[1]))
	if !ok {
		conn.Push(resp.EncodeBulkString(nil))
		return false
	}
	conn.Push(resp.EncodeBulkString(value))
	return false
}

func cmdDel(d *Dispatcher, conn Conn, args [][]byte) bool {
	if d.Store.Delete(string(args[1])) {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdExists(d *Dispatcher, conn Conn, args [][]byte) bool {
	if d.Store.Exists(string(args[1])) {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdIncr(d *Dispatcher, conn Conn, args [][]byte) bool {
	n, err := d.Store.Incr(string(args[1]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	conn.Push(resp.EncodeInteger(n))
	return false
}

func cmdDecr(d *Dispatcher, conn Conn, args [][]byte) bool {
	n, err := d.Store.Decr(string(args[1]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	conn.Push(resp.EncodeInteger(n))
	return false
}

func cmdExpire(d *Dispatcher, conn Conn, args [][]byte) bool {
	seconds, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		replyError(conn, keyspace.ErrInvalidExpire)
		return false
	}
	ok, err := d.Store.Expire(string(args[1]), seconds)
	if err != nil {
		replyError(conn, err)
		return false
	}
	if ok {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdTTL(d *Dispatcher, conn Conn, args [][]byte) bool {
	conn.Push(resp.EncodeInteger(d.Store.TTL(string(args[1]))))
	return false
}

func cmdPersist(d *Dispatcher, conn Conn, args [][]byte) bool {
	if d.Store.Persist(string(args[1])) {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdKeys(d *Dispatcher, conn Conn, args [][]byte) bool {
	keys := d.Store.Keys(string(args[1]))
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = []byte(k)
	}
	conn.Push(resp.EncodeBulkStringArray(values))
	return false
}

func cmdLPush(d *Dispatcher, conn Conn, args [][]byte) bool {
	n, err := d.Store.LPush(string(args[1]), args[2])
	if err != nil {
		replyError(conn, err)
		return false
	}
	conn.Push(resp.EncodeInteger(n))
	return false
}

func cmdRPush(d *Dispatcher, conn Conn, args [][]byte) bool {
	n, err := d.Store.RPush(string(args[1]), args[2])
	if err != nil {
		replyError(conn, err)
		return false
	}
	conn.Push(resp.EncodeInteger(n))
	return false
}

func cmdLPop(d *Dispatcher, conn Conn, args [][]byte) bool {
	value, ok, err := d.Store.LPop(string(args[1]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	if !ok {
		conn.Push(resp.EncodeBulkString(nil))
		return false
	}
	conn.Push(resp.EncodeBulkString(value))
	return false
}

func cmdRPop(d *Dispatcher, conn Conn, args [][]byte) bool {
	value, ok, err := d.Store.RPop(string(args[1]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	if !ok {
		conn.Push(resp.EncodeBulkString(nil))
		return false
	}
	conn.Push(resp.EncodeBulkString(value))
	return false
}

func cmdLLen(d *Dispatcher, conn Conn, args [][]byte) bool {
	n, err := d.Store.LLen(string(args[1]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	conn.Push(resp.EncodeInteger(n))
	return false
}

func cmdLRange(d *Dispatcher, conn Conn, args [][]byte) bool {
	start, errStart := strconv.ParseInt(string(args[2]), 10, 64)
	stop, errStop := strconv.ParseInt(string(args[3]), 10, 64)
	if errStart != nil || errStop != nil {
		conn.Push(resp.EncodeError("ERR value is not an integer or out of range"))
		return false
	}
	values, err := d.Store.LRange(string(args[1]), start, stop)
	if err != nil {
		replyError(conn, err)
		return false
	}
	conn.Push(resp.EncodeBulkStringArray(values))
	return false
}

func cmdHSet(d *Dispatcher, conn Conn, args [][]byte) bool {
	inserted, err := d.Store.HSet(string(args[1]), string(args[2]), args[3])
	if err != nil {
		replyError(conn, err)
		return false
	}
	if inserted {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdHGet(d *Dispatcher, conn Conn, args [][]byte) bool {
	value, ok, err := d.Store.HGet(string(args[1]), string(args[2]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	if !ok {
		conn.Push(resp.EncodeBulkString(nil))
		return false
	}
	conn.Push(resp.EncodeBulkString(value))
	return false
}

func cmdHDel(d *Dispatcher, conn Conn, args [][]byte) bool {
	deleted, err := d.Store.HDel(string(args[1]), string(args[2]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	if deleted {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdHExists(d *Dispatcher, conn Conn, args [][]byte) bool {
	ok, err := d.Store.HExists(string(args[1]), string(args[2]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	if ok {
		conn.Push(resp.EncodeInteger(1))
	} else {
		conn.Push(resp.EncodeInteger(0))
	}
	return false
}

func cmdHGetAll(d *Dispatcher, conn Conn, args [][]byte) bool {
	pairs, err := d.Store.HGetAll(string(args[1]))
	if err != nil {
		replyError(conn, err)
		return false
	}
	flat := make([][]byte, 0, len(pairs)*2)
	for _, p := range pairs {
		flat = append(flat, p.Field, p.Value)
	}
	conn.Push(resp.EncodeBulkStringArray(flat))
	return false
}
