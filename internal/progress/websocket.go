package progress

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/amd-aig-aima/bimserver/internal/logging"
)

// Upgrader mirrors the teacher's permissive CheckOrigin used for its
// TensorBoard log stream; progress events carry no sensitive payload.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PushSink fans published events out to subscribed websocket
// connections, scoped per modelVersionId so a client only receives
// progress for the version it asked about.
type PushSink struct {
	mu      sync.Mutex
	byModel map[string]map[*websocket.Conn]struct{}
}

// NewPushSink creates an empty PushSink.
func NewPushSink() *PushSink {
	return &PushSink{byModel: make(map[string]map[*websocket.Conn]struct{})}
}

// Subscribe registers conn to receive events for modelVersionID until
// Unsubscribe is called or a write to it fails.
func (s *PushSink) Subscribe(modelVersionID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byModel[modelVersionID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		s.byModel[modelVersionID] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes conn from modelVersionID's subscriber set.
func (s *PushSink) Unsubscribe(modelVersionID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.byModel[modelVersionID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(s.byModel, modelVersionID)
		}
	}
}

// Publish implements Sink. Delivery is best-effort: a write error drops
// that subscriber but never propagates to the caller.
func (s *PushSink) Publish(ev Event) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.byModel[ev.ModelVersionID]))
	for c := range s.byModel[ev.ModelVersionID] {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Warn("progress: failed to marshal event for push sink", "error", err)
		return
	}
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.Unsubscribe(ev.ModelVersionID, c)
		}
	}
}
