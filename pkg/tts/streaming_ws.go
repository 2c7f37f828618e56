package tts

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// StreamingWS is a reference Engine backed by a websocket speech-synthesis
// service: a JSON request carrying {text, voice} followed by a stream of
// binary audio chunks and a final "EOS" text frame, or an "ERR:" text frame
// on failure. It exists for local development and tests; the production
// voice model is out of scope.
type StreamingWS struct {
	apiKey string
	host   string
	path   string
	scheme string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStreamingWS creates a reference TTS client against host+path.
func NewStreamingWS(apiKey, host, path string) *StreamingWS {
	if path == "" {
		path = "/ws"
	}
	return &StreamingWS{apiKey: apiKey, host: host, path: path, scheme: "wss"}
}

func (t *StreamingWS) Name() string { return "streaming-ws-tts" }

func (t *StreamingWS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: t.scheme, Host: t.host, Path: t.path, RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, voiceerr.TTSError(fmt.Errorf("connect: %w", err))
	}
	t.conn = conn
	return conn, nil
}

func (t *StreamingWS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	var audio []byte
	err := t.StreamSynthesize(ctx, text, voice, func(chunk []byte) error {
		audio = append(audio, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (t *StreamingWS) StreamSynthesize(ctx context.Context, text, voice string, onChunk ChunkFunc) error {
	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := map[string]interface{}{
		"text":  text,
		"voice": voice,
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return voiceerr.TTSError(fmt.Errorf("send synthesis request: %w", err))
	}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.conn = nil
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return voiceerr.TTSError(fmt.Errorf("read response: %w", err))
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if strings.HasPrefix(msg, "ERR:") {
				return voiceerr.TTSError(fmt.Errorf("synthesis error: %s", msg))
			}
		}
	}
}

func (t *StreamingWS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
