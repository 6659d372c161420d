package main

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docmind/internal/chunker"
	"docmind/internal/config"
	"docmind/internal/embedding"
	"docmind/internal/extractor"
	"docmind/internal/llmservice"
	"docmind/internal/pipeline"
	"docmind/internal/server"
	"docmind/internal/synthesizer"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	// .env is optional, environment wins either way
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg.RAG).Msg("Loaded config")

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llmClient, err := llmservice.NewClient(&cfg.InferLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	splitter, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chunker")
	}

	extract := extractor.New()
	synth := synthesizer.New(llmClient)
	sessions := pipeline.NewManager(func() *pipeline.Session {
		return pipeline.NewSession(extract, splitter, embedder, synth, pipeline.Options{
			TopK:          cfg.RAG.TopK,
			HistoryWindow: cfg.RAG.HistoryWindow,
		})
	})

	srv := server.New(&cfg.Server, sessions)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
