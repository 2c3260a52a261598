// posegame-replay streams a recorded landmark file to a posegame server as
// if it were a live detector client. Useful for demos and for testing
// routines without a camera.
//
// The input is JSON lines, one frame per line:
//
//	{"landmarks":[{"x":0.51,"y":0.22},...],"width":640,"height":480}
//
// Each line is either normalized (default) or in pixels with "normalized":false.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/protocol"
)

var (
	server = flag.String("server", "ws://localhost:8080", "posegame server base URL")
	id     = flag.String("id", "replay", "detector client id")
	fps    = flag.Float64("fps", 20, "frames per second")
	loop   = flag.Bool("loop", false, "restart at end of file")
	level  = flag.String("log-level", "info", "log level")
)

func main() {
	flag.Parse()
	log.Init(*level)
	logger := log.Component("replay")

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: posegame-replay [flags] <landmarks.jsonl>")
		os.Exit(2)
	}

	frames, err := readFrames(flag.Arg(0))
	if err != nil {
		logger.Error("read recording", "error", err)
		os.Exit(1)
	}
	if len(frames) == 0 {
		logger.Error("recording is empty")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := replay(ctx, logger, frames); err != nil {
		logger.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

// readFrames parses a JSON-lines landmark recording. Blank lines are skipped.
func readFrames(path string) ([]protocol.LandmarksData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseFrames(f)
}

func parseFrames(r io.Reader) ([]protocol.LandmarksData, error) {
	var frames []protocol.LandmarksData
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		frame := protocol.LandmarksData{Normalized: true}
		if err := json.Unmarshal(sc.Bytes(), &frame); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := frame.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, frame)
	}
	return frames, sc.Err()
}

func replay(ctx context.Context, logger *slog.Logger, frames []protocol.LandmarksData) error {
	u, err := url.JoinPath(*server, "ws", "detector", *id)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer ws.Close()
	logger.Info("connected", "url", u, "frames", len(frames))

	// Print score and events pushed back by the server.
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			switch msg.Type {
			case protocol.TypeScore:
				if sc, err := msg.GetScoreData(); err == nil {
					logger.Info("score", "score", sc.Score, "multiplier", sc.Multiplier, "exercise", sc.Exercise, "rep", sc.Rep, "target", sc.Target)
				}
			case protocol.TypeEvent:
				if ev, err := msg.GetEventData(); err == nil {
					logger.Info("event", "kind", ev.Kind, "step", ev.Step, "exercise", ev.Exercise, "reason", ev.Reason)
				}
			case protocol.TypeResult:
				if res, err := msg.GetResultData(); err == nil {
					logger.Info("result", "routine", res.RoutineName, "score", res.TotalScore, "max_multiplier", res.MaxMultiplier)
				}
			}
		}
	}()

	status, err := protocol.NewStatusMessage(true, "", 0)
	if err != nil {
		return err
	}
	if err := send(ws, status); err != nil {
		return err
	}

	interval := time.Duration(float64(time.Second) / max(*fps, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameID uint64
	for {
		for _, frame := range frames {
			select {
			case <-ctx.Done():
				return ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			case <-ticker.C:
			}
			frameID++
			frame.FrameID = frameID
			msg, err := protocol.NewMessage(protocol.TypeLandmarks, frame)
			if err != nil {
				return err
			}
			if err := send(ws, msg); err != nil {
				return err
			}
		}
		if !*loop {
			logger.Info("replay finished", "frames", frameID)
			return nil
		}
	}
}

func send(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}
