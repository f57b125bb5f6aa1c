package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/tracker"
)

const (
	eventActivities = "activities"
	heartbeatEvery  = 25 * time.Second
)

// StreamActivities pushes the day as server-sent events: one "activities"
// event right away, then one after every change. A slow client only ever
// receives the latest state.
func StreamActivities(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayFromRequest(r)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		// Holds at most the newest undelivered view. Deliveries come from a
		// single goroutine, so drain-then-send never blocks.
		views := make(chan tracker.View, 1)
		sub, err := d.Tracker.Watch(r.Context(), day, func(v tracker.View) {
			select {
			case <-views:
			default:
			}
			views <- v
		})
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		defer sub.Stop()

		rc := http.NewResponseController(w)
		// The server write timeout would cut long-lived streams
		_ = rc.SetWriteDeadline(time.Time{})

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			d.Logger.Warn("streaming not supported", logger.Error(err))
			return
		}

		d.Logger.Debug("activity stream opened", logger.String("day", day.Key()))
		defer d.Logger.Debug("activity stream closed", logger.String("day", day.Key()))

		heartbeat := time.NewTicker(heartbeatEvery)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-sub.Done():
				return
			case <-d.Shutdown:
				return
			case v := <-views:
				if err := writeEvent(w, rc, eventActivities, newDayResponse(v)); err != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}
