package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/valyala/fasthttp"
)

const heartbeatInterval = 25 * time.Second

// streamLive writes the current value of live and every later change as
// server-sent events, until the projection closes or the client goes away
func streamLive[T any](c *fiber.Ctx, live *application.Live[T], project func(T) interface{}) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		send := true
		for {
			// take the channel before reading so no change is missed
			changed := live.Changed()
			if send {
				if err := writeEvent(w, live, project); err != nil {
					return
				}
			}

			select {
			case <-changed:
				send = true
			case <-live.Done():
				return
			case <-ticker.C:
				send = false
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeEvent[T any](w *bufio.Writer, live *application.Live[T], project func(T) interface{}) error {
	if err := live.Err(); err != nil {
		payload, _ := json.Marshal(fiber.Map{"error": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
		return w.Flush()
	}

	v, ok := live.Snapshot()
	if !ok {
		return nil
	}

	payload, err := json.Marshal(fiber.Map{"data": project(v)})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
	return w.Flush()
}

func asIs[T any](v T) interface{} {
	return v
}
