// Package client is a minimal RESP client used by integration tests:
// one typed method per command, each returning (value, error).
package client

import (
	"bufio"
	"net"
	"strconv"
	"time"

	"knox/resp"
)

// Client is a single connection to a knox server, not safe for concurrent
// use by multiple goroutines issuing commands (replies would interleave);
// concurrent Subscribe delivery is the one exception, handled internally.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

// Dial connects to a knox server at addr ("host:port").
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn), timeout: 5 * time.Second}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Do sends a command and returns its decoded reply.
func (c *Client) Do(args ...string) (Reply, error) {
	elements := make([][]byte, len(args))
	for i, a := range args {
		elements[i] = resp.EncodeBulkString([]byte(a))
	}
	frame := resp.EncodeArray(elements...)

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(frame); err != nil {
		return Reply{}, err
	}
	reply, err := readReply(c.r)
	if err != nil {
		return Reply{}, err
	}
	if reply.Err != "" {
		return reply, replyError(reply.Err)
	}
	return reply, nil
}

type replyError string

func (e replyError) Error() string { return string(e) }

func (c *Client) Ping() (string, error) {
	reply, err := c.Do("PING")
	if err != nil {
		return "", err
	}
	return reply.Str, err
}

func (c *Client) Set(key string, value []byte) error {
	_, err := c.Do("SET", key, string(value))
	return err
}

func (c *Client) Get(key string) ([]byte, bool, error) {
	reply, err := c.Do("GET", key)
	if err != nil {
		return nil, false, err
	}
	return reply.Bulk, !reply.NullBulk, nil
}

func (c *Client) Del(key string) (bool, error) {
	reply, err := c.Do("DEL", key)
	if err != nil {
		return false, err
	}
	return reply.Int == 1, nil
}

func (c *Client) Incr(key string) (int64, error) {
	reply, err := c.Do("INCR", key)
	if err != nil {
		return 0, err
	}
	return reply.Int, nil
}

func (c *Client) Expire(key string, seconds int64) (bool, error) {
	reply, err := c.Do("EXPIRE", key, strconv.FormatInt(seconds, 10))
	if err != nil {
		return false, err
	}
	return reply.Int == 1, nil
}

func (c *Client) TTL(key string) (int64, error) {
	reply, err := c.Do("TTL", key)
	if err != nil {
		return 0, err
	}
	return reply.Int, nil
}

func (c *Client) LPush(key, value string) (int64, error) {
	reply, err := c.Do("LPUSH", key, value)
	if err != nil {
		return 0, err
	}
	return reply.Int, nil
}

func (c *Client) LRange(key string, start, stop int64) ([]string, error) {
	reply, err := c.Do("LRANGE", key, strconv.FormatInt(start, 10), strconv.FormatInt(stop, 10))
	if err != nil {
		return nil, err
	}
	return reply.StringArray(), nil
}

func (c *Client) HSet(key, field, value string) (bool, error) {
	reply, err := c.Do("HSET", key, field, value)
	if err != nil {
		return false, err
	}
	return reply.Int == 1, nil
}

func (c *Client) HGet(key, field string) ([]byte, bool, error) {
	reply, err := c.Do("HGET", key, field)
	if err != nil {
		return nil, false, err
	}
	return reply.Bulk, !reply.NullBulk, nil
}

func (c *Client) Publish(channel, message string) (int64, error) {
	reply, err := c.Do("PUBLISH", channel, message)
	if err != nil {
		return 0, err
	}
	return reply.Int, nil
}

// Subscribe sends SUBSCRIBE for the given channels, consumes the
// subscription-confirmation replies, then returns a channel delivering
// every subsequent "message" push as (channel, payload). The returned
// channel closes when the connection's reader hits an error.
func (c *Client) Subscribe(channels ...string) (<-chan Message, error) {
	args := append([]string{"SUBSCRIBE"}, channels...)
	elements := make([][]byte, len(args))
	for i, a := range args {
		elements[i] = resp.EncodeBulkString([]byte(a))
	}
	if _, err := c.conn.Write(resp.EncodeArray(elements...)); err != nil {
		return nil, err
	}

	for range channels {
		if _, err := readReply(c.r); err != nil {
			return nil, err
		}
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			reply, err := readReply(c.r)
			if err != nil {
				return
			}
			arr := reply.Array
			if len(arr) != 3 {
				continue
			}
			out <- Message{Channel: arr[1].Bulk, Payload: arr[2].Bulk}
		}
	}()
	return out, nil
}

// Message is one pub/sub push delivered to a subscriber.
type Message struct {
	Channel []byte
	Payload []byte
}
