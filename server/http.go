package server

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
)

// serveHTTPEscapeHatch handles a one-shot health-check accommodation: a
// connection whose first bytes are "GET " is treated as HTTP/1.1 for
// exactly one request/response, then closed. Once a connection has
// committed to RESP (any other first byte) it never switches back, so
// this only ever runs before any RESP frame is parsed.
func serveHTTPEscapeHatch(raw net.Conn, firstBytes []byte) {
	defer raw.Close()

	r := bufio.NewReader(sequenceReader{bytes.NewReader(firstBytes), raw})
	req, err := http.ReadRequest(r)
	if err != nil {
		return
	}

	switch req.URL.Path {
	case "/health", "/":
		raw.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nOK"))
	default:
		raw.Write([]byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
	}
}

// sequenceReader reads fully from first, then from second; used to replay
// the bytes already consumed off the socket before handing the rest of the
// stream to http.ReadRequest.
type sequenceReader struct {
	first  *bytes.Reader
	second net.Conn
}

func (r sequenceReader) Read(p []byte) (int, error) {
	if r.first.Len() > 0 {
		return r.first.Read(p)
	}
	return r.second.Read(p)
}
