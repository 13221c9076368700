package dispatch

import (
	"strings"

	"knox/resp"
)

func pushSubscribeReply(conn Conn, verb, channel string, count int) {
	var channelFrame []byte
	if channel == "" {
		channelFrame = resp.EncodeBulkString(nil)
	} else {
		channelFrame = resp.EncodeBulkString([]byte(channel))
	}
	conn.Push(resp.EncodeArray(
		resp.EncodeBulkString([]byte(verb)),
		channelFrame,
		resp.EncodeInteger(int64(count)),
	))
}

func cmdSubscribe(d *Dispatcher, conn Conn, args [][]byte) bool {
	for _, ch := range args[1:] {
		channel := string(ch)
		// Confirm before registering: once registered, a concurrent
		// PUBLISH on another connection could deliver a message before
		// this reply reaches the wire.
		count := d.PubSub.PendingSubscribeCount(conn, channel)
		pushSubscribeReply(conn, "subscribe", channel, count)
		d.PubSub.Subscribe(conn, channel)
	}
	return false
}

func cmdUnsubscribe(d *Dispatcher, conn Conn, args [][]byte) bool {
	if len(args) == 1 {
		channels := d.PubSub.UnsubscribeAll(conn)
		if len(channels) == 0 {
			pushSubscribeReply(conn, "unsubscribe", "", 0)
			return false
		}
		for i, ch := range channels {
			pushSubscribeReply(conn, "unsubscribe", ch, len(channels)-i-1)
		}
		return false
	}

	for _, ch := range args[1:] {
		count := d.PubSub.Unsubscribe(conn, string(ch))
		pushSubscribeReply(conn, "unsubscribe", string(ch), count)
	}
	return false
}

func cmdPublish(d *Dispatcher, conn Conn, args [][]byte) bool {
	channel := string(args[1])
	frame := resp.EncodeArray(
		resp.EncodeBulkString([]byte("message")),
		resp.EncodeBulkString([]byte(channel)),
		resp.EncodeBulkString(args[2]),
	)
	delivered := d.PubSub.Publish(channel, frame)
	conn.Push(resp.EncodeInteger(int64(delivered)))
	return false
}

func cmdPubSub(d *Dispatcher, conn Conn, args [][]byte) bool {
	sub := strings.ToUpper(string(args[1]))
	switch sub {
	case "CHANNELS":
		if len(args) != 2 {
			conn.Push(resp.EncodeError("ERR wrong number of arguments for 'pubsub|channels' command"))
			return false
		}
		names := d.PubSub.Channels()
		values := make([][]byte, len(names))
		for i, n := range names {
			values[i] = []byte(n)
		}
		conn.Push(resp.EncodeBulkStringArray(values))
	case "NUMSUB":
		channels := make([]string, len(args)-2)
		for i, ch := range args[2:] {
			channels[i] = string(ch)
		}
		counts := d.PubSub.NumSub(channels)
		elements := make([][]byte, 0, len(channels)*2)
		for i, ch := range channels {
			elements = append(elements, resp.EncodeBulkString([]byte(ch)), resp.EncodeInteger(int64(counts[i])))
		}
		conn.Push(resp.EncodeArray(elements...))
	default:
		conn.Push(resp.EncodeError("ERR unknown PUBSUB subcommand '" + sub + "'"))
	}
	return false
}
