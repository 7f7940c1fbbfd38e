package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// Client is the smudgy CLI side of the control transport: a persistent
// connection to smudgyd's Unix socket, serializing one request at a time
// and matching responses back to requests by ID.
type Client struct {
	socketPath string

	mu      sync.Mutex
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
	nextID  int64
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", c.socketPath, err)
	}
	c.conn = conn
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	c.scanner = scanner
	c.enc = json.NewEncoder(conn)
	return nil
}

// Close closes the underlying socket connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call sends one request and waits for its matching response. Requests are
// serialized through mu: the protocol has no pipelining.
func (c *Client) call(op string, params any, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConn(); err != nil {
		return err
	}

	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("transport: marshal params: %w", err)
		}
		raw = encoded
	}

	id := fmt.Sprintf("%d", atomic.AddInt64(&c.nextID, 1))
	req := Request{ID: id, Op: op, Params: raw}
	if err := c.enc.Encode(req); err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("transport: send request: %w", err)
	}

	if !c.scanner.Scan() {
		err := c.scanner.Err()
		c.conn.Close()
		c.conn = nil
		if err == nil {
			return fmt.Errorf("transport: connection closed before response")
		}
		return fmt.Errorf("transport: read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	if resp.ID != id {
		return fmt.Errorf("transport: response id %q does not match request id %q", resp.ID, id)
	}
	if resp.Error != "" {
		return fmt.Errorf("transport: %s: %s", op, resp.Error)
	}
	if result != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("transport: decode result: %w", err)
		}
	}
	return nil
}

func (c *Client) Connect(sessionID, host string, port int, character string) error {
	var status map[string]string
	return c.call(OpConnect, ConnectParams{SessionID: sessionID, Host: host, Port: port, Character: character}, &status)
}

func (c *Client) Disconnect(sessionID string) error {
	return c.call(OpDisconnect, SessionParams{SessionID: sessionID}, nil)
}

func (c *Client) Send(sessionID, line string) error {
	return c.call(OpSend, SendParams{SessionID: sessionID, Line: line}, nil)
}

func (c *Client) ListSessions() ([]string, error) {
	var ids []string
	err := c.call(OpListSessions, nil, &ids)
	return ids, err
}

func (c *Client) ListTriggers(sessionID string) ([]string, error) {
	var names []string
	err := c.call(OpListTriggers, SessionParams{SessionID: sessionID}, &names)
	return names, err
}

func (c *Client) ListAliases(sessionID string) ([]string, error) {
	var names []string
	err := c.call(OpListAliases, SessionParams{SessionID: sessionID}, &names)
	return names, err
}

func (c *Client) SetEnabled(sessionID, name string, isAlias, enabled bool) error {
	op := OpDisable
	if enabled {
		op = OpEnable
	}
	return c.call(op, NameParams{SessionID: sessionID, Name: name, IsAlias: isAlias}, nil)
}

func (c *Client) Reload(sessionID string) error {
	return c.call(OpReload, SessionParams{SessionID: sessionID}, nil)
}

// SnapshotLine mirrors the server's wire representation of one scrollback line.
type SnapshotLine struct {
	Number int64  `json:"number"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

func (c *Client) Snapshot(sessionID string, fromLine int64, limit int) ([]SnapshotLine, error) {
	var lines []SnapshotLine
	err := c.call(OpSnapshot, SnapshotParams{SessionID: sessionID, FromLine: fromLine, Limit: limit}, &lines)
	return lines, err
}

func (c *Client) MapListAreas() ([]json.RawMessage, error) {
	var areas []json.RawMessage
	err := c.call(OpMapListAreas, nil, &areas)
	return areas, err
}

func (c *Client) MapGetRoom(areaHi, areaLo uint64, room uint32) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(OpMapGetRoom, MapRoomParams{AreaHi: areaHi, AreaLo: areaLo, Room: room}, &out)
	return out, err
}

func (c *Client) MapSearch(title, description string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := c.call(OpMapSearch, MapSearchParams{Title: title, Description: description}, &out)
	return out, err
}
