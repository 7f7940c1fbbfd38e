package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/smudgy/smudgy/internal/logger"
	"github.com/smudgy/smudgy/internal/mapcache"
	"github.com/smudgy/smudgy/internal/session"
	"github.com/smudgy/smudgy/internal/uifeed"
)

// Server is the daemon side of the control transport: a Unix-socket
// listener dispatching one JSON envelope per line to the session manager
// and shared map cache.
type Server struct {
	sessions   *session.Manager
	mapCache   *mapcache.Cache
	socketPath string
	hub        *uifeed.Hub

	// defaults supplies the ambient per-session settings (scrollback size,
	// prompt idle window, script budget, pattern backend, startup scripts)
	// that OpConnect's request does not carry; only ID/Host/Port/Character
	// come from the client.
	defaults session.Profile
}

func NewServer(sessions *session.Manager, mapCache *mapcache.Cache, socketPath string, defaults session.Profile, hub *uifeed.Hub) *Server {
	return &Server{sessions: sessions, mapCache: mapCache, socketPath: socketPath, defaults: defaults, hub: hub}
}

// ListenAndServe accepts connections until ctx is cancelled, matching the
// teacher's stale-socket cleanup and graceful-shutdown shape.
func (s *Server) ListenAndServe(ctx context.Context) error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("transport: listen unix %s: %w", s.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
		os.Remove(s.socketPath)
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("transport: accept: %w", err)
			}
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(Response{Error: "invalid JSON: " + err.Error()})
			continue
		}
		resp := s.dispatch(req)
		resp.ID = req.ID
		enc.Encode(resp)
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Op {
	case OpConnect:
		return s.handleConnect(req)
	case OpDisconnect:
		return s.handleDisconnect(req)
	case OpSend:
		return s.handleSend(req)
	case OpListSessions:
		return s.handleListSessions()
	case OpListTriggers:
		return s.handleListTriggers(req)
	case OpListAliases:
		return s.handleListAliases(req)
	case OpEnable:
		return s.handleSetEnabled(req, true)
	case OpDisable:
		return s.handleSetEnabled(req, false)
	case OpReload:
		return s.handleReload(req)
	case OpSnapshot:
		return s.handleSnapshot(req)
	case OpMapListAreas:
		return s.handleMapListAreas()
	case OpMapGetRoom:
		return s.handleMapGetRoom(req)
	case OpMapSearch:
		return s.handleMapSearch(req)
	default:
		return errResponse(fmt.Sprintf("unknown op %q", req.Op))
	}
}

func (s *Server) handleConnect(req Request) Response {
	var p ConnectParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	if _, ok := s.sessions.Get(p.SessionID); ok {
		return errResponse("session already exists: " + p.SessionID)
	}
	profile := s.defaults
	profile.ID = p.SessionID
	profile.Host = p.Host
	profile.Port = p.Port
	profile.Character = p.Character
	sess := session.New(profile, s.mapCache)
	sess.Manager = s.sessions
	sess.Hub = s.hub
	s.sessions.Add(sess)

	go func() {
		if err := sess.Connect(context.Background()); err != nil {
			logger.Session(p.SessionID).Error("session connect failed", "error", err)
		}
	}()

	return okResponse(map[string]string{"status": "connecting"})
}

func (s *Server) handleDisconnect(req Request) Response {
	var p SessionParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	sess.Disconnect()
	return okResponse(map[string]string{"status": "disconnecting"})
}

func (s *Server) handleSend(req Request) Response {
	var p SendParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	sess.Send(p.Line)
	return okResponse(map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions() Response {
	return okResponse(s.sessions.IDs())
}

func (s *Server) handleListTriggers(req Request) Response {
	var p SessionParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	return okResponse(sess.TriggerNames())
}

func (s *Server) handleListAliases(req Request) Response {
	var p SessionParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	return okResponse(sess.AliasNames())
}

func (s *Server) handleSetEnabled(req Request, enabled bool) Response {
	var p NameParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	if p.IsAlias {
		sess.SetAliasEnabled(p.Name, enabled)
	} else {
		sess.SetTriggerEnabled(p.Name, enabled)
	}
	return okResponse(map[string]string{"status": "ok"})
}

func (s *Server) handleReload(req Request) Response {
	var p SessionParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	sess.Reload()
	return okResponse(map[string]string{"status": "ok"})
}

type snapshotLine struct {
	Number int64  `json:"number"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

func (s *Server) handleSnapshot(req Request) Response {
	var p SnapshotParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	sess, ok := s.sessions.Get(p.SessionID)
	if !ok {
		return errResponse("unknown session: " + p.SessionID)
	}
	snap := sess.Snapshot()
	out := make([]snapshotLine, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		if line.Number < p.FromLine {
			continue
		}
		kind := "line"
		if line.Kind == 1 {
			kind = "prompt"
		}
		out = append(out, snapshotLine{Number: line.Number, Kind: kind, Text: line.PlainText()})
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
	}
	return okResponse(out)
}

func (s *Server) handleMapListAreas() Response {
	return okResponse(s.mapCache.ListAreaIDs())
}

func (s *Server) handleMapGetRoom(req Request) Response {
	var p MapRoomParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	room, ok := s.mapCache.GetRoom(mapcache.AreaID{Hi: p.AreaHi, Lo: p.AreaLo}, mapcache.RoomNumber(p.Room))
	if !ok {
		return errResponse("room not found")
	}
	return okResponse(room)
}

func (s *Server) handleMapSearch(req Request) Response {
	var p MapSearchParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(err.Error())
	}
	return okResponse(s.mapCache.SearchRooms(p.Title, p.Description))
}

func okResponse(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errResponse(err.Error())
	}
	return Response{Result: data}
}

func errResponse(msg string) Response { return Response{Error: msg} }
