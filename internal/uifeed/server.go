package uifeed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/smudgy/smudgy/internal/logger"
)

const writeTimeout = 10 * time.Second

// SessionTopic names the per-session scrollback topic.
func SessionTopic(sessionID string) string { return "session:" + sessionID }

// MapTopic names the single global map-cache change topic.
const MapTopic = "map"

// Server exposes the hub over a `coder/websocket` endpoint: a subscriber
// authenticates with a token naming the session it wants, then receives
// that session's scrollback events plus every map-cache event.
type Server struct {
	hub    *Hub
	tokens *TokenMinter
}

func NewServer(hub *Hub, tokens *TokenMinter) *Server {
	return &Server{hub: hub, tokens: tokens}
}

// Handler returns the http.Handler to mount at the feed's bind address.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)
	return mux
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	sessionID, err := s.tokens.SessionID(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	sessionSub := s.hub.Subscribe(SessionTopic(sessionID))
	defer s.hub.Unsubscribe(SessionTopic(sessionID), sessionSub)
	mapSub := s.hub.Subscribe(MapTopic)
	defer s.hub.Unsubscribe(MapTopic, mapSub)

	runCtx := r.Context()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-runCtx.Done():
				return
			case data, ok := <-sessionSub.Send:
				if !ok {
					return
				}
				if !s.write(runCtx, conn, data) {
					return
				}
			case data, ok := <-mapSub.Send:
				if !ok {
					return
				}
				if !s.write(runCtx, conn, data) {
					return
				}
			}
		}
	}()

	// Reader loop exists only to notice the subscriber closing the socket;
	// the feed is one-directional (daemon to UI).
	for {
		if _, _, err := conn.Read(runCtx); err != nil {
			break
		}
	}

	<-done
	conn.Close(websocket.StatusNormalClosure, "closing")
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, data []byte) bool {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		logger.Log.Warn("uifeed write failed", "error", err)
		return false
	}
	return true
}

// PublishScrollbackAppend publishes one appended line to a session's topic.
func (h *Hub) PublishScrollbackAppend(sessionID string, line int64, kind, text string) {
	data, err := json.Marshal(ScrollbackAppendEvent{Type: TypeScrollbackAppend, SessionID: sessionID, Line: line, Kind: kind, Text: text})
	if err != nil {
		return
	}
	h.Publish(SessionTopic(sessionID), data)
}

// PublishScrollbackGag publishes a gagged-line notice to a session's topic.
func (h *Hub) PublishScrollbackGag(sessionID string, line int64) {
	data, err := json.Marshal(ScrollbackGagEvent{Type: TypeScrollbackGag, SessionID: sessionID, Line: line})
	if err != nil {
		return
	}
	h.Publish(SessionTopic(sessionID), data)
}

// PublishScrollbackMutate publishes a retroactive line edit to a session's topic.
func (h *Hub) PublishScrollbackMutate(sessionID string, line int64, text string) {
	data, err := json.Marshal(ScrollbackMutateEvent{Type: TypeScrollbackMutate, SessionID: sessionID, Line: line, Text: text})
	if err != nil {
		return
	}
	h.Publish(SessionTopic(sessionID), data)
}

// PublishRoomChanged publishes a room mutation to the global map topic.
func (h *Hub) PublishRoomChanged(areaHi, areaLo uint64, room uint32, title string) {
	data, err := json.Marshal(MapRoomChangedEvent{Type: TypeMapRoomChanged, AreaHi: areaHi, AreaLo: areaLo, Room: room, Title: title})
	if err != nil {
		return
	}
	h.Publish(MapTopic, data)
}

// PublishAreaChanged publishes an area mutation to the global map topic.
func (h *Hub) PublishAreaChanged(areaHi, areaLo uint64, name string) {
	data, err := json.Marshal(MapAreaChangedEvent{Type: TypeMapAreaChanged, AreaHi: areaHi, AreaLo: areaLo, Name: name})
	if err != nil {
		return
	}
	h.Publish(MapTopic, data)
}
