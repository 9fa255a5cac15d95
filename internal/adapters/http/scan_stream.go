package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

type sessionDriver interface {
	Capture(ctx context.Context) (domain.SessionState, error)
	Prediction() *domain.FoodPrediction
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Clients are native apps, not browsers; origin checks add nothing here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// scanCommand is one client message on the live scan socket.
type scanCommand struct {
	Command  string `json:"command"`
	MealType string `json:"meal_type,omitempty"`
}

// scanEvent is one server message. State is always present; prediction and
// entry are populated when the session has them.
type scanEvent struct {
	Type       string                 `json:"type"`
	State      domain.SessionState    `json:"state"`
	Prediction *domain.FoodPrediction `json:"prediction,omitempty"`
	Entry      *domain.MealEntry      `json:"entry,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// streamConn serializes writes; capture and save results arrive from
// goroutines concurrent with the read loop.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamConn) send(evt scanEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = c.conn.WriteJSON(evt)
}

// scanStream drives one live capture session per websocket connection. The
// session dies with the connection; a result still in flight at disconnect
// is discarded.
func (rt *Router) scanStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("scan_stream_upgrade_failed", "error", err)
		return
	}

	sess := rt.sessions.New(userID)
	stream := &streamConn{conn: conn}
	if rt.metrics != nil {
		rt.metrics.SessionOpened()
	}

	// Wait runs after the session close below: Close releases the camera
	// right away and discards whatever the in-flight goroutines resolve to.
	var pending sync.WaitGroup
	defer pending.Wait()

	defer func() {
		if err := sess.Close(); err != nil {
			slog.Warn("scan_session_close_failed", "error", err)
		}
		_ = conn.Close()
		if rt.metrics != nil {
			rt.metrics.SessionClosed()
		}
	}()

	for {
		var cmd scanCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("scan_stream_read_failed", "error", err)
			}
			return
		}

		switch cmd.Command {
		case "start":
			if err := sess.Start(r.Context()); err != nil {
				stream.send(scanEvent{Type: "error", State: sess.State(), Error: err.Error()})
				continue
			}
			stream.send(scanEvent{Type: "state", State: sess.State()})

		case "capture":
			pending.Add(1)
			go func() {
				defer pending.Done()
				rt.runCapture(r, sess, stream)
			}()

		case "torch":
			if err := sess.ToggleTorch(r.Context()); err != nil {
				stream.send(scanEvent{Type: "error", State: sess.State(), Error: err.Error()})
				continue
			}
			stream.send(scanEvent{Type: "state", State: sess.State()})

		case "confirm":
			if err := sess.Confirm(domain.MealType(cmd.MealType)); err != nil {
				stream.send(scanEvent{Type: "error", State: sess.State(), Error: err.Error()})
				continue
			}
			stream.send(scanEvent{Type: "state", State: sess.State(), Prediction: sess.Prediction()})

		case "save":
			pending.Add(1)
			go func() {
				defer pending.Done()
				entry, err := sess.Save(r.Context())
				if err != nil {
					stream.send(scanEvent{Type: "error", State: sess.State(), Error: err.Error()})
					return
				}
				if entry != nil && rt.metrics != nil {
					rt.metrics.RecordMealLogged("api", string(domain.SourceScan))
				}
				stream.send(scanEvent{Type: "state", State: sess.State(), Entry: entry})
			}()

		case "close":
			return

		default:
			stream.send(scanEvent{Type: "error", State: sess.State(), Error: "unknown command"})
		}
	}
}

func (rt *Router) runCapture(r *http.Request, sess sessionDriver, stream *streamConn) {
	start := time.Now()
	state, err := sess.Capture(r.Context())
	if err != nil {
		stream.send(scanEvent{Type: "error", State: state, Error: err.Error()})
		return
	}

	pred := sess.Prediction()
	if rt.metrics != nil && pred != nil {
		accepted := state == domain.StateHighConfidenceResult
		rt.metrics.RecordScanResult("api", accepted, pred.Confidence, time.Since(start))
	}
	stream.send(scanEvent{Type: "state", State: state, Prediction: pred})
}
