package nostr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/lumora-app/listsync/internal/logging"
)

// Relay is a websocket connection to a single relay. Requests on one Relay
// are issued sequentially; fan-out across relays happens in Pool.
type Relay struct {
	url  string
	conn *websocket.Conn
	log  logging.Logger
}

// Dial opens a websocket connection to the relay.
func Dial(ctx context.Context, url string, log logging.Logger) (*Relay, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	// List events stay small, but a relay may answer a paginated query
	// with a large burst; allow generous frames.
	conn.SetReadLimit(1 << 20)
	return &Relay{url: url, conn: conn, log: log.With("relay", url)}, nil
}

func (r *Relay) URL() string { return r.url }

// Close closes the underlying websocket.
func (r *Relay) Close() error {
	return r.conn.Close(websocket.StatusNormalClosure, "")
}

// Fetch runs one subscription against the relay and collects events until
// EOSE, paginating backward in time: while a page comes back full, the next
// page is requested with until = oldest-1. maxPages bounds the walk so a
// misbehaving relay cannot keep the subscription alive forever.
func (r *Relay) Fetch(ctx context.Context, f Filter, pageSize, maxPages int) ([]Event, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []Event
	until := f.Until

	for page := 0; page < maxPages; page++ {
		pf := f
		pf.Until = until
		pf.Limit = pageSize

		events, err := r.fetchPage(ctx, pf)
		if err != nil {
			return all, err
		}
		all = append(all, events...)

		if len(events) < pageSize {
			break
		}

		oldest := events[0].CreatedAt
		for _, ev := range events[1:] {
			if ev.CreatedAt < oldest {
				oldest = ev.CreatedAt
			}
		}
		if oldest <= 1 {
			break
		}
		until = oldest - 1
	}

	return all, nil
}

// fetchPage opens one subscription, reads until EOSE (or CLOSED), then
// unsubscribes. The CLOSE frame is sent even when the context is already
// canceled so the relay does not accumulate dead subscriptions.
func (r *Relay) fetchPage(ctx context.Context, f Filter) ([]Event, error) {
	subID := uuid.NewString()

	if err := r.write(ctx, []any{"REQ", subID, f}); err != nil {
		return nil, err
	}
	defer r.unsubscribe(subID)

	var events []Event
	for {
		frame, err := r.read(ctx)
		if err != nil {
			return nil, err
		}
		if len(frame) < 2 {
			continue
		}

		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil {
			continue
		}

		switch label {
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var id string
			if err := json.Unmarshal(frame[1], &id); err != nil || id != subID {
				continue
			}
			var ev Event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				r.log.Warn(ctx, "skipping malformed event", "err", err)
				continue
			}
			events = append(events, ev)
		case "EOSE":
			var id string
			if err := json.Unmarshal(frame[1], &id); err == nil && id == subID {
				return events, nil
			}
		case "CLOSED":
			var id string
			if err := json.Unmarshal(frame[1], &id); err == nil && id == subID {
				return events, fmt.Errorf("relay closed subscription %s", subID)
			}
		case "NOTICE":
			var msg string
			_ = json.Unmarshal(frame[1], &msg)
			r.log.Debug(ctx, "relay notice", "msg", msg)
		}
	}
}

// Publish sends the event and waits for the relay's OK acknowledgment.
func (r *Relay) Publish(ctx context.Context, ev Event) error {
	if err := r.write(ctx, []any{"EVENT", ev}); err != nil {
		return err
	}

	for {
		frame, err := r.read(ctx)
		if err != nil {
			return err
		}
		if len(frame) < 3 {
			continue
		}

		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil || label != "OK" {
			continue
		}
		var id string
		if err := json.Unmarshal(frame[1], &id); err != nil || id != ev.ID {
			continue
		}

		var accepted bool
		if err := json.Unmarshal(frame[2], &accepted); err != nil {
			return fmt.Errorf("malformed OK frame: %w", err)
		}
		if !accepted {
			var reason string
			if len(frame) > 3 {
				_ = json.Unmarshal(frame[3], &reason)
			}
			return fmt.Errorf("event rejected: %s", reason)
		}
		return nil
	}
}

// unsubscribe tears down a server-side subscription. It runs on its own
// short deadline because the caller's context may already be canceled.
func (r *Relay) unsubscribe(subID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.write(ctx, []any{"CLOSE", subID}); err != nil {
		r.log.Debug(ctx, "unsubscribe failed", "sub", subID, "err", err)
	}
}

func (r *Relay) write(ctx context.Context, frame []any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return r.conn.Write(ctx, websocket.MessageText, data)
}

func (r *Relay) read(ctx context.Context) ([]json.RawMessage, error) {
	_, data, err := r.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	return frame, nil
}
