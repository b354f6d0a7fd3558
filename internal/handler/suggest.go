package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/openfleet/mileage-api/internal/geocode"
	"github.com/openfleet/mileage-api/internal/suggest"
	"golang.org/x/sync/errgroup"
)

var suggestUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// TODO: restrict origins once the web client's deployment origin is fixed
		return true
	},
}

// suggestRequest is one client frame on the suggestion stream.
type suggestRequest struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

// suggestResponse is one server frame. Token increases with every change to
// the field; clients can ignore frames older than the last one they rendered.
type suggestResponse struct {
	Field      string              `json:"field"`
	Token      uint64              `json:"token"`
	Candidates []geocode.Candidate `json:"candidates"`
	Error      string              `json:"error,omitempty"`
}

// SuggestStream handles GET /api/v1/geocode/suggest, a WebSocket endpoint for
// streaming autocomplete.
//
// Client frames:
//
//	{"field":"origin","text":"par"}
//
// Server frames:
//
//	{"field":"origin","token":3,"candidates":[{"label":"...","coordinate":{...},"country_code":"US"}]}
//
// Keystrokes for a field are debounced server-side; only the newest lookup per
// field produces a frame, so clients never see suggestions for text they have
// already replaced. A blank text clears the field's candidates immediately.
// Each field on the connection is debounced independently.
func (h *Handler) SuggestStream(c *gin.Context) {
	conn, err := suggestUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		log.Printf("handler: suggest upgrade: %v", err)
		return
	}
	defer conn.Close()

	g, ctx := errgroup.WithContext(c.Request.Context())

	frames := make(chan suggestResponse, 16)
	sink := suggest.SinkFunc(func(fieldID string, token uint64, res suggest.Result) {
		frame := suggestResponse{Field: fieldID, Token: token, Candidates: res.Candidates}
		if res.Err != nil {
			frame.Error = "lookup failed"
		}
		if frame.Candidates == nil {
			frame.Candidates = []geocode.Candidate{}
		}
		select {
		case frames <- frame:
		case <-ctx.Done():
		}
	})

	sched := suggest.NewScheduler(h.geocoder, sink, h.suggestWindow)
	defer sched.Close()

	// Reader: client keystroke frames feed the scheduler.
	g.Go(func() error {
		for {
			var req suggestRequest
			if err := conn.ReadJSON(&req); err != nil {
				return err
			}
			if req.Field == "" {
				continue
			}
			sched.OnChange(req.Field, req.Text)
		}
	})

	// Writer: the only goroutine that writes to the connection.
	g.Go(func() error {
		for {
			select {
			case frame := <-frames:
				if err := conn.WriteJSON(frame); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	err = g.Wait()
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("handler: suggest stream closed: %v", err)
	}
}
