// Package editor holds the room redesign state machine: an uploaded room
// photo, the current design derived from it, and the single in-flight call
// to the image generator that produces the next design.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manash/roomdesign/internal/ledger"
	"github.com/manash/roomdesign/pkg/models"
)

var (
	ErrBusy             = errors.New("a design is already being generated")
	ErrNoImage          = errors.New("no room photo uploaded")
	ErrEmptyInstruction = errors.New("edit instruction cannot be empty")
	ErrAlreadyUploaded  = errors.New("a room is already loaded; start over first")
	ErrNotImage         = errors.New("file is not an image")
	ErrEmptyFile        = errors.New("file is empty")
	ErrReadFailed       = errors.New("failed to read file")
	ErrGenerationFailed = errors.New("generation failed")
	ErrRoomReset        = errors.New("room was reset while the design was generating")
)

const (
	StyleFailedNotice = "Failed to generate style. Please try again."
	EditFailedNotice  = "Failed to edit image. Please try again."
)

type Screen int

const (
	ScreenUpload Screen = iota
	ScreenEditor
)

func (s Screen) String() string {
	if s == ScreenEditor {
		return "editor"
	}
	return "upload"
}

// Generator produces a new image from an image and an instruction.
// provider.Provider satisfies it.
type Generator interface {
	Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error)
}

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(message string)
}

type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Resetter is cleared on StartOver. chat.Session satisfies it.
type Resetter interface {
	Clear()
}

// Room is one uploaded photo and the design derived from it.
type Room struct {
	ID        string
	Name      string
	Original  models.Image
	Current   models.Image
	Style     models.Style
	Edits     int
	Cost      float64
	CreatedAt time.Time
}

type Config struct {
	Generator Generator
	Model     string
	Provider  models.ProviderType
	Notifier  Notifier
	Recorder  ledger.Recorder
	Chat      Resetter
	Logger    *zap.Logger
}

type Editor struct {
	mu         sync.Mutex
	gen        Generator
	model      string
	provider   models.ProviderType
	notifier   Notifier
	recorder   ledger.Recorder
	chat       Resetter
	logger     *zap.Logger
	room       *Room
	processing bool
	draft      string
	epoch      uint64
	now        func() time.Time
}

func New(cfg *Config) *Editor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{
		gen:      cfg.Generator,
		model:    cfg.Model,
		provider: cfg.Provider,
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
		chat:     cfg.Chat,
		logger:   logger.Named("editor"),
		now:      time.Now,
	}
}

func (e *Editor) Screen() Screen {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room == nil {
		return ScreenUpload
	}
	return ScreenEditor
}

// Room returns a snapshot of the loaded room, or nil on the upload screen.
func (e *Editor) Room() *Room {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room == nil {
		return nil
	}
	room := *e.room
	return &room
}

func (e *Editor) Original() models.Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room == nil {
		return models.Image{}
	}
	return e.room.Original
}

func (e *Editor) Current() models.Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room == nil {
		return models.Image{}
	}
	return e.room.Current
}

func (e *Editor) Processing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processing
}

func (e *Editor) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *Editor) SetDraft(text string) {
	e.mu.Lock()
	e.draft = text
	e.mu.Unlock()
}

func (e *Editor) Model() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// SetGenerator switches the image generator used by later calls. A call
// already in flight finishes with the generator it started with.
func (e *Editor) SetGenerator(gen Generator, providerType models.ProviderType, model string) {
	e.mu.Lock()
	e.gen = gen
	e.provider = providerType
	e.model = model
	e.mu.Unlock()
}

func (e *Editor) SetNotifier(n Notifier) {
	e.mu.Lock()
	e.notifier = n
	e.mu.Unlock()
}

// UploadFile loads a room photo from disk. An empty path is ignored.
func (e *Editor) UploadFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "data:") {
		return e.UploadDataURL(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	defer f.Close()

	return e.Upload(ctx, path, f)
}

// UploadDataURL loads a room photo from a data URL or bare base64 payload.
func (e *Editor) UploadDataURL(ctx context.Context, dataURL string) error {
	img, err := models.ParseDataURL(dataURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	return e.load("data-url", img)
}

// Upload reads a room photo and moves to the editor screen. The photo
// becomes both the original and the current design.
func (e *Editor) Upload(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	return e.load(name, models.NewImage(data))
}

func (e *Editor) load(name string, img models.Image) error {
	if img.IsEmpty() {
		return ErrEmptyFile
	}
	if !img.IsImage() {
		return fmt.Errorf("%w: %s (%s)", ErrNotImage, name, img.MimeType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room != nil {
		return ErrAlreadyUploaded
	}

	e.room = &Room{
		ID:        uuid.New().String(),
		Name:      name,
		Original:  img,
		Current:   img,
		CreatedAt: e.now(),
	}
	e.logger.Info("room uploaded",
		zap.String("room_id", e.room.ID),
		zap.String("name", name),
		zap.String("mime_type", img.MimeType),
		zap.Int("bytes", len(img.Data)))
	return nil
}

// SelectStyle restyles the current design.
func (e *Editor) SelectStyle(ctx context.Context, style models.Style) (models.Image, error) {
	if !style.IsValid() {
		return models.Image{}, fmt.Errorf("%w: %q", models.ErrUnknownStyle, style)
	}
	return e.run(ctx, &call{
		op:     ledger.OpStyle,
		style:  style,
		prompt: style.Prompt(),
		notice: StyleFailedNotice,
	})
}

// SubmitEdit applies a free-text instruction to the current design. The
// instruction is kept as the draft until the edit succeeds.
func (e *Editor) SubmitEdit(ctx context.Context, instruction string) (models.Image, error) {
	trimmed := strings.TrimSpace(instruction)
	if trimmed == "" {
		return models.Image{}, ErrEmptyInstruction
	}

	return e.run(ctx, &call{
		op:     ledger.OpEdit,
		prompt: models.EditPrompt(trimmed),
		notice: EditFailedNotice,
		draft:  instruction,
	})
}

// SubmitDraft retries the preserved draft instruction.
func (e *Editor) SubmitDraft(ctx context.Context) (models.Image, error) {
	return e.SubmitEdit(ctx, e.Draft())
}

// StartOver discards the room, the draft and the chat log, and returns to
// the upload screen. A call still in flight has its result discarded.
func (e *Editor) StartOver() {
	e.mu.Lock()
	roomID := ""
	if e.room != nil {
		roomID = e.room.ID
	}
	e.room = nil
	e.draft = ""
	e.processing = false
	e.epoch++
	chat := e.chat
	e.mu.Unlock()

	if chat != nil {
		chat.Clear()
	}
	e.logger.Info("start over", zap.String("room_id", roomID))
}

type call struct {
	op     ledger.Operation
	style  models.Style
	prompt string
	notice string
	// draft is the edit text, kept until the edit succeeds.
	draft string
}

func (e *Editor) run(ctx context.Context, c *call) (models.Image, error) {
	e.mu.Lock()
	if e.room == nil {
		e.mu.Unlock()
		return models.Image{}, ErrNoImage
	}
	if e.processing {
		e.mu.Unlock()
		return models.Image{}, ErrBusy
	}
	e.processing = true
	if c.draft != "" {
		e.draft = c.draft
	}
	epoch := e.epoch
	roomID := e.room.ID
	input := e.room.Current
	gen, model, providerType := e.gen, e.model, e.provider
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.epoch == epoch {
			e.processing = false
		}
		e.mu.Unlock()
	}()

	logger := e.logger.With(
		zap.String("room_id", roomID),
		zap.String("operation", string(c.op)),
		zap.String("model", model))
	logger.Info("calling image generator", zap.String("style", string(c.style)))

	start := e.now()
	resp, err := gen.Edit(ctx, &models.EditRequest{Image: input, Prompt: c.prompt, Model: model})
	if err == nil && (resp == nil || resp.Image.IsEmpty()) {
		err = errors.New("empty image in response")
	}
	elapsed := e.now().Sub(start)

	entry := &ledger.Entry{
		RoomID:    roomID,
		Operation: c.op,
		Style:     string(c.style),
		Prompt:    c.prompt,
		Model:     model,
		Provider:  string(providerType),
		Duration:  elapsed,
	}
	if err != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = err.Error()
	} else if resp.Cost != nil {
		entry.Cost = resp.Cost.Total
	}
	e.record(ctx, entry)

	if err != nil {
		logger.Error("image generation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		e.mu.Lock()
		reset := e.epoch != epoch
		e.mu.Unlock()
		if reset {
			return models.Image{}, ErrRoomReset
		}
		e.notify(c.notice)
		return models.Image{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	e.mu.Lock()
	if e.epoch != epoch || e.room == nil || e.room.ID != roomID {
		e.mu.Unlock()
		logger.Warn("discarding result for reset room")
		return models.Image{}, ErrRoomReset
	}
	e.room.Current = resp.Image
	e.room.Edits++
	e.room.Cost += entry.Cost
	if c.op == ledger.OpStyle {
		e.room.Style = c.style
	}
	if c.draft != "" {
		e.draft = ""
	}
	e.mu.Unlock()

	logger.Info("design updated", zap.Duration("elapsed", elapsed), zap.Float64("cost", entry.Cost))
	return resp.Image, nil
}

func (e *Editor) record(ctx context.Context, entry *ledger.Entry) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Warn("failed to record usage", zap.Error(err))
	}
}

func (e *Editor) notify(message string) {
	e.mu.Lock()
	n := e.notifier
	e.mu.Unlock()
	if n != nil {
		n.Notify(message)
	}
}
