// Package server is the HTTP backend serving speech, video analysis and
// report generation to remote clients.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/speech"
)

// Analyzer produces quiz content and reports.
type Analyzer interface {
	AnalyzeAll(ctx context.Context, urls []string, lang quiz.Language) ([]quiz.VideoAnalysis, error)
	GenerateReport(ctx context.Context, history []quiz.AnswerRecord, name string) (*quiz.Report, error)
}

// Server wraps the fiber app.
type Server struct {
	app      *fiber.App
	synth    speech.Synthesizer
	analyzer Analyzer
	metrics  *metrics
	validate *validator.Validate
	log      zerolog.Logger
}

type speakBody struct {
	Text string `json:"text" validate:"required"`
}

type analyzeBody struct {
	Videos   []string `json:"videos" validate:"required,min=1,dive,required,youtube_url"`
	Language string   `json:"language" validate:"omitempty,max=32"`
}

type reportBody struct {
	LearningHistory []quiz.AnswerRecord `json:"learningHistory" validate:"required,min=1"`
	UserName        string              `json:"userName" validate:"max=100"`
}

// New builds the app and registers all routes.
func New(synth speech.Synthesizer, analyzer Analyzer, log zerolog.Logger) *Server {
	s := &Server{
		synth:    synth,
		analyzer: analyzer,
		metrics:  newMetrics(),
		validate: quiz.Validator(),
		log:      log.With().Str("component", "server").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "vidquiz",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New())
	s.app.Use(s.metrics.middleware())

	s.app.Get("/health", s.health)
	s.app.Get("/metrics", s.metrics.handler())

	api := s.app.Group("/api")
	api.Post("/speak", s.speak)
	api.Post("/analyze", s.analyze)
	api.Post("/generate-report", s.generateReport)

	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx is done.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(addr) }()
	s.log.Info().Str("addr", addr).Msg("backend listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down backend")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "vidquiz",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) speak(c *fiber.Ctx) error {
	var body speakBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid JSON body")
	}
	if err := s.validate.Struct(body); err != nil {
		return badRequest(c, "No text provided")
	}

	audio, err := s.synth.Synthesize(c.UserContext(), body.Text)
	if err != nil {
		return err
	}
	s.metrics.audioBytes.Add(float64(len(audio)))
	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(audio)
}

func (s *Server) analyze(c *fiber.Ctx) error {
	var body analyzeBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid JSON body")
	}
	if err := s.validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "youtube_url" {
			return badRequest(c, "Please ensure all video URLs are valid YouTube URLs")
		}
		return badRequest(c, "No videos provided")
	}

	lang := quiz.ParseLanguage(body.Language)
	s.log.Debug().Strs("videos", body.Videos).Str("language", string(lang)).Msg("analyze request")

	results, err := s.analyzer.AnalyzeAll(c.UserContext(), body.Videos, lang)
	if err != nil {
		return err
	}
	s.metrics.videosScanned.Add(float64(len(results)))
	for _, r := range results {
		s.metrics.segments.Add(float64(len(r.Segments)))
	}
	return c.JSON(fiber.Map{
		"status":   "success",
		"results":  results,
		"language": lang,
	})
}

func (s *Server) generateReport(c *fiber.Ctx) error {
	var body reportBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid JSON body")
	}
	if err := s.validate.Struct(body); err != nil {
		return badRequest(c, "No learning history provided")
	}

	report, err := s.analyzer.GenerateReport(c.UserContext(), body.LearningHistory, body.UserName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   report,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// errorHandler renders handler failures in the shape clients expect.
// Validation failures from the analysis layer are client errors.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	var verr *quiz.ValidationError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &verr):
		code = fiber.StatusUnprocessableEntity
	}

	if code >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    "error",
		"error":     err.Error(),
		"timestamp": time.Now().Unix(),
	})
}
