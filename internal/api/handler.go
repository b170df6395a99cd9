package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/extractor"
	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/OAT7963/mae-pdf-processing/internal/writer"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// pageBreak separates pages in client-side extracted text (pdf.js).
const pageBreak = "\n---PAGE_BREAK---\n"

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Format        models.FormatID        `json:"format,omitempty"`
	FormatName    string                 `json:"formatName,omitempty"`
	AccountNumber string                 `json:"accountNumber,omitempty"`
	StatementDate string                 `json:"statementDate,omitempty"`
	Year          int                    `json:"year,omitempty"`
	Transactions  []models.Transaction   `json:"transactions"`
	CSV           string                 `json:"csv,omitempty"`
	TotalDebit    decimal.Decimal        `json:"totalDebit"`
	TotalCredit   decimal.Decimal        `json:"totalCredit"`
	TotalUnknown  decimal.Decimal        `json:"totalUnknown"`
	Count         int                    `json:"count"`
	Discarded     int                    `json:"discarded"`
	Warnings      []models.Warning       `json:"warnings,omitempty"`
	Reconcile     models.ReconcileReport `json:"reconcile"`
	RawText       string                 `json:"rawText,omitempty"`
	Version       string                 `json:"version,omitempty"`
	DebugLines    []models.DebugLine     `json:"debugLines,omitempty"`
}

// FormatInfo describes one registered format for GET /api/formats.
type FormatInfo struct {
	ID        models.FormatID `json:"id"`
	Name      string          `json:"name"`
	Grammar   string          `json:"grammar"`
	Schema    models.Schema   `json:"schema"`
	NeedsYear bool            `json:"needsYear"`
	Reconcile bool            `json:"reconcile"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Registry               *parser.Registry
	Source                 extractor.Source
	MaxReconcileIterations int
	Version                string
	Logger                 zerolog.Logger
}

// Options are the server limits. Zero values keep fiber's defaults.
type Options struct {
	BodyLimit    int // bytes
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the fiber app with every route registered.
func NewApp(h *Handler, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mae-pdf-processing",
		BodyLimit:             opts.BodyLimit,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Get("/formats", h.HandleFormats)
	api.Post("/convert", h.HandleConvert)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

func (h *Handler) HandleFormats(c *fiber.Ctx) error {
	formats := h.Registry.Formats()
	out := make([]FormatInfo, 0, len(formats))
	for _, cfg := range formats {
		out = append(out, FormatInfo{
			ID:        cfg.ID,
			Name:      cfg.Name,
			Grammar:   cfg.Grammar.String(),
			Schema:    cfg.Schema,
			NeedsYear: cfg.NeedsYear,
			Reconcile: cfg.Reconcile,
		})
	}
	return c.JSON(out)
}

// HandleConvert reconstructs the transactions of one uploaded statement.
// The form carries either the document in "file" or its text in
// "extractedText"; "format" forces a format and "header" set to false drops
// the CSV metadata rows.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	doc, sourceName, err := h.document(c)
	if err != nil {
		return err
	}
	lines := doc.Lines()

	cfg, err := h.format(c.FormValue("format"), lines)
	if err != nil {
		return err
	}

	info, err := parser.Reconstruct(lines, cfg, parser.Options{
		SourceName:             sourceName,
		MetadataYear:           doc.CreatedYear,
		MaxReconcileIterations: h.MaxReconcileIterations,
		Debug:                  c.FormValue("debug") == "true",
	})
	if err != nil {
		h.Logger.Warn().Err(err).Str("document", sourceName).Msg("parsing failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("Parsing failed: %v", err))
	}

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
	if err := csvWriter.Write(&csvBuf, []*models.StatementInfo{info}); err != nil {
		return fmt.Errorf("CSV generation failed: %w", err)
	}

	resp := buildResponse(info)
	resp.FormatName = cfg.Name
	resp.CSV = csvBuf.String()
	resp.Version = h.Version
	resp.RawText = strings.Join(doc.Pages, pageBreak)

	h.Logger.Info().
		Str("document", sourceName).
		Str("format", string(cfg.ID)).
		Int("transactions", resp.Count).
		Int("warnings", len(resp.Warnings)).
		Msg("converted statement")
	return c.JSON(resp)
}

// document returns the statement text from the request, extracting the
// uploaded file when no pre-extracted text was sent.
func (h *Handler) document(c *fiber.Ctx) (*extractor.Document, string, error) {
	fh, fileErr := c.FormFile("file")
	sourceName := c.FormValue("filename")
	if fileErr == nil && sourceName == "" {
		sourceName = fh.Filename
	}

	if text := c.FormValue("extractedText"); strings.TrimSpace(text) != "" {
		doc := &extractor.Document{Path: sourceName, Method: "client"}
		for _, page := range strings.Split(text, pageBreak) {
			if page = strings.TrimSpace(page); page != "" {
				doc.Pages = append(doc.Pages, page)
			}
		}
		doc.PageCount = len(doc.Pages)
		return doc, sourceName, nil
	}

	if fileErr != nil {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !extractor.Supported(fh.Filename) {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, "Only PDF and text files are supported.")
	}

	dir, err := os.MkdirTemp("", "statement-*")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// Keep the original name so the filename date survives.
	tmpPath := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveFile(fh, tmpPath); err != nil {
		return nil, "", fmt.Errorf("failed to save uploaded file: %w", err)
	}

	doc, err := h.Source.Extract(c.UserContext(), tmpPath)
	if err != nil {
		h.Logger.Warn().Err(err).Str("document", sourceName).Msg("extraction failed")
		if errors.Is(err, extractor.ErrUnsupportedInput) {
			return nil, "", fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return nil, "", fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("Extraction failed: %v", err))
	}
	return doc, sourceName, nil
}

func (h *Handler) format(id string, lines []string) (*parser.FormatConfig, error) {
	if id != "" {
		cfg, err := h.Registry.Lookup(models.FormatID(id))
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return cfg, nil
	}
	cfg, err := h.Registry.AutoDetect(lines)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return cfg, nil
}

func buildResponse(info *models.StatementInfo) ConvertResponse {
	// nil marshals to JSON null, not []
	txns := info.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}

	resp := ConvertResponse{
		Success:       true,
		Format:        info.Format,
		AccountNumber: info.AccountNumber,
		Year:          info.Year,
		Transactions:  txns,
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
		TotalUnknown:  decimal.Zero,
		Discarded:     info.Discarded,
		Warnings:      info.Warnings,
		Reconcile:     info.Reconcile,
		DebugLines:    info.DebugLines,
	}
	if info.StatementDate != nil {
		resp.StatementDate = info.StatementDate.Format("2006-01-02")
	}
	for _, txn := range txns {
		if txn.Opening {
			continue
		}
		resp.Count++
		resp.TotalDebit = resp.TotalDebit.Add(txn.Debit())
		resp.TotalCredit = resp.TotalCredit.Add(txn.Credit())
		resp.TotalUnknown = resp.TotalUnknown.Add(txn.Unclassified())
	}
	return resp
}

// errorHandler renders every error as a ConvertResponse so clients parse
// one shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ConvertResponse{
		Success:      false,
		Error:        err.Error(),
		Transactions: []models.Transaction{},
	})
}
