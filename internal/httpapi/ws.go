package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/joelkehle/trendscout/internal/analysis"
	"github.com/joelkehle/trendscout/internal/progress"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The listener protocol carries no credentials and the frontend may be
	// served from another origin during development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSink adapts a gorilla connection to the progress.Sink write interface.
// The owning Channel serializes writes.
type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) WriteMessage(data []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

type clientMessage struct {
	Type       string `json:"type"`
	Keyword    string `json:"keyword"`
	Comparison bool   `json:"comparison"`
}

// handleWS runs the listener protocol: analyze requests stream progress
// envelopes ending in a result or error; pings answer with pong. Protocol
// errors are reported on the channel and the read loop continues.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi ws_upgrade_failed remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	ch := progress.NewChannel(wsSink{conn: conn})
	s.registry.Add(ch)
	defer s.registry.Remove(ch)
	log.Printf("httpapi ws_connected remote=%s active=%d", r.RemoteAddr, s.registry.Count())

	for {
		_, blob, err := conn.ReadMessage()
		if err != nil {
			log.Printf("httpapi ws_closed remote=%s err=%v", r.RemoteAddr, err)
			return
		}
		s.dispatch(r.Context(), ch, blob)
		if ch.Closed() {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, ch *progress.Channel, blob []byte) {
	var msg clientMessage
	if err := json.Unmarshal(blob, &msg); err != nil {
		ch.Error("Invalid JSON format")
		return
	}
	switch msg.Type {
	case "ping":
		ch.Pong()
	case "analyze":
		s.runAnalysis(ctx, ch, msg)
	default:
		ch.Error("Unknown message type: " + msg.Type)
	}
}

func (s *Server) runAnalysis(ctx context.Context, ch *progress.Channel, msg clientMessage) {
	keyword, errMsg := validateKeyword(msg.Keyword)
	if errMsg != "" {
		ch.Error(errMsg)
		return
	}

	res, err := s.pipeline.RunWithProgress(ctx, keyword, msg.Comparison, func(ev analysis.ProgressEvent) {
		ch.Progress(ev.Step, ev.Percent, ev.Message, ev.Extra)
	})
	if err != nil {
		log.Printf("httpapi ws_analysis_failed keyword=%q err=%v", keyword, err)
		ch.Error("Analysis failed: " + err.Error())
		return
	}
	ch.Result("Analysis completed successfully!", res)
}
