package server

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"

	"docmind/internal/config"
	"docmind/internal/models"
	"docmind/internal/pipeline"
)

// sessionHeader lets clients isolate workspaces; absent means the shared
// default session.
const sessionHeader = "X-Session-ID"

var allowedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".docx":     true,
	".xlsx":     true,
	".ods":      true,
}

// Server is the thin HTTP collaborator in front of the pipeline. Handlers
// validate transport concerns and delegate everything else to the session.
type Server struct {
	app      *fiber.App
	cfg      *config.ServerConfig
	sessions *pipeline.Manager
}

func New(cfg *config.ServerConfig, sessions *pipeline.Manager) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.MaxUploadBytes + 64*1024, // multipart framing headroom
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, " + sessionHeader,
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	s := &Server{app: app, cfg: cfg, sessions: sessions}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.handleRoot)
	s.app.Get("/health", s.handleHealth)
	s.app.Post("/upload", s.handleUpload)
	s.app.Post("/query", s.handleQuery)
	s.app.Get("/documents", s.handleDocuments)
	s.app.Get("/history", s.handleHistory)
	s.app.Delete("/reset", s.handleReset)
	s.app.Post("/sessions", s.handleCreateSession)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	log.Info().Str("addr", addr).Msg("Server listening")
	return s.app.Listen(addr)
}

func (s *Server) session(c *fiber.Ctx) *pipeline.Session {
	return s.sessions.Get(c.Get(sessionHeader))
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "DocMind API is live!", "status": "ok"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.session(c).Status()
	return c.JSON(fiber.Map{
		"status":           "ok",
		"documents_loaded": status.Documents,
		"ready":            status.Ready,
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "A file upload is required.")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported file type %q.", ext))
	}
	if fileHeader.Size > int64(s.cfg.MaxUploadBytes) {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large. Max %dMB.", s.cfg.MaxUploadBytes/(1024*1024)))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Could not read uploaded file.")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Could not read uploaded file.")
	}

	record, err := s.session(c).Ingest(c.UserContext(), data, fileHeader.Filename)
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Upload failed")
		return errorJSON(c, statusFor(err), err.Error())
	}

	return c.JSON(fiber.Map{
		"message":        fmt.Sprintf("'%s' processed successfully!", record.Filename),
		"filename":       record.Filename,
		"chunks_created": record.ChunkCount,
		"pages":          record.PageCount,
	})
}

type queryRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body.")
	}

	answer, err := s.session(c).Ask(c.UserContext(), req.Question)
	if err != nil {
		log.Error().Err(err).Msg("Query failed")
		return errorJSON(c, statusFor(err), err.Error())
	}
	return c.JSON(answer)
}

func (s *Server) handleDocuments(c *fiber.Ctx) error {
	docs := s.session(c).Documents()
	return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"history": s.session(c).History()})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.session(c).Reset()
	return c.JSON(fiber.Map{"message": "All documents and chat history cleared."})
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	id, _, err := s.sessions.Create()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"session_id": id})
}

func errorJSON(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidQuestion), errors.Is(err, models.ErrNotReady):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrExtraction), errors.Is(err, models.ErrEmptyDocument):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEmbeddingProvider), errors.Is(err, models.ErrSynthesis):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
