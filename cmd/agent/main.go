package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkloop/voiceagent/internal/config"
	"github.com/talkloop/voiceagent/pkg/agent"
	"github.com/talkloop/voiceagent/pkg/llm"
	"github.com/talkloop/voiceagent/pkg/logging"
	"github.com/talkloop/voiceagent/pkg/metrics"
	"github.com/talkloop/voiceagent/pkg/stt"
	"github.com/talkloop/voiceagent/pkg/transport"
	"github.com/talkloop/voiceagent/pkg/tts"
	"github.com/talkloop/voiceagent/pkg/vad"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	sampleRate = 16000
	channels   = 1
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(logging.WithLevel("info"), logging.WithJSON())

	llmProvider, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		log.Fatalf("llm provider: %v", err)
	}

	sttEngine := sttFromEnv()
	ttsEngine := ttsFromEnv()
	vadEngine := vad.NewRMSEngine(0.02, 500*time.Millisecond)

	meterProvider := sdkmetric.NewMeterProvider()
	metricsEmitter, err := metrics.New(logger, meterProvider)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	room := transport.NewLocalDeviceRoom("local-dev", sampleRate, channels)

	a := agent.New(room, agent.Providers{
		VAD: vadEngine,
		STT: sttEngine,
		LLM: llmProvider,
		TTS: ttsEngine,
	}, cfg, sampleRate, metricsEmitter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Connect(ctx, "agent-voice"); err != nil {
		log.Fatalf("connect: %v", err)
	}

	fmt.Printf("Voice agent listening on the local microphone. LLM=%s STT=%s TTS=%s\n",
		llmProvider.Name(), sttEngine.Name(), ttsEngine.Name())
	fmt.Println("Press Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// sttFromEnv builds the reference Whisper-compatible STT client. The
// production transcription backend is out of scope; this talks to
// whatever Whisper-compatible HTTP endpoint is configured.
func sttFromEnv() stt.Engine {
	url := os.Getenv("WHISPER_HTTP_URL")
	if url == "" {
		url = "http://localhost:8000/v1/audio/transcriptions"
	}
	return stt.NewWhisperHTTP(os.Getenv("WHISPER_API_KEY"), url, os.Getenv("WHISPER_MODEL"), sampleRate)
}

// ttsFromEnv builds the reference streaming-websocket TTS client. The
// production synthesis backend is out of scope; this talks to whatever
// streaming TTS endpoint is configured.
func ttsFromEnv() tts.Engine {
	host := os.Getenv("TTS_WS_HOST")
	if host == "" {
		host = "localhost:8001"
	}
	return tts.NewStreamingWS(os.Getenv("TTS_API_KEY"), host, os.Getenv("TTS_WS_PATH"))
}
