package ui

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/protocol"
)

// MessageLevel tells apart the two uses of the message line
type MessageLevel int

const (
	MessageNone MessageLevel = iota
	MessageError
	MessageWarning
)

// ResultBlock is one rendered result: its rank, image and score line
type ResultBlock struct {
	Rank       int
	Image      string
	Similarity string
}

// Renderer turns controller calls into a text page. Each Display call
// replaces what it displayed before, so repeating a call changes nothing.
// It is safe for concurrent use.
type Renderer struct {
	mu       sync.Mutex
	width    int
	color    bool
	loading  bool
	message  string
	level    MessageLevel
	query    string
	blocks   []ResultBlock
	items    []protocol.VectorItem
	jsonText string
}

// RendererOption configures a Renderer
type RendererOption func(*Renderer)

// WithWidth sets the render width
func WithWidth(width int) RendererOption {
	return func(r *Renderer) { r.width = width }
}

// WithColor enables ANSI colors in the JSON viewer
func WithColor(color bool) RendererOption {
	return func(r *Renderer) { r.color = color }
}

// NewRenderer creates an empty renderer
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{width: MinTerminalWidth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetWidth changes the render width, e.g. on terminal resize
func (r *Renderer) SetWidth(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width = width
}

func (r *Renderer) ShowLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = true
}

func (r *Renderer) HideLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
}

// ClearResults removes the query image, results and JSON
func (r *Renderer) ClearResults() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = ""
	r.blocks = nil
	r.items = nil
	r.jsonText = ""
}

func (r *Renderer) DisplayError(msg string) {
	r.setMessage(msg, MessageError)
}

// DisplayWarning shares the message line with errors
func (r *Renderer) DisplayWarning(msg string) {
	r.setMessage(msg, MessageWarning)
}

func (r *Renderer) ClearError() {
	r.setMessage("", MessageNone)
}

func (r *Renderer) setMessage(msg string, level MessageLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = msg
	r.level = level
	if msg == "" {
		r.level = MessageNone
	}
}

func (r *Renderer) DisplayQueryImage(b64 string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = b64
}

// DisplayResultImages shows every item that has both an image and a score
func (r *Renderer) DisplayResultImages(items []protocol.VectorItem) {
	blocks := make([]ResultBlock, 0, len(items))
	kept := make([]protocol.VectorItem, 0, len(items))
	for i, item := range items {
		if !item.Renderable() {
			logging.Debug("Skipping incomplete result item", zap.Int("index", i))
			continue
		}
		kept = append(kept, item)
		blocks = append(blocks, ResultBlock{
			Rank:       len(blocks) + 1,
			Image:      item.Image,
			Similarity: FormatSimilarity(*item.Percents),
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = blocks
	r.items = kept
}

// DisplayJSON shows the raw response, falling back to the decoded result
func (r *Renderer) DisplayJSON(result *protocol.GenerationResult) {
	if result == nil {
		return
	}
	r.mu.Lock()
	color := r.color
	r.mu.Unlock()

	text := FormatJSON(result.Raw, result, color)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jsonText = text
}

// Loading reports whether the loading indicator is shown
func (r *Renderer) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Message returns the message line and its level
func (r *Renderer) Message() (string, MessageLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message, r.level
}

// Blocks returns the rendered result blocks
func (r *Renderer) Blocks() []ResultBlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ResultBlock(nil), r.blocks...)
}

// JSON returns the JSON viewer text
func (r *Renderer) JSON() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jsonText
}

// HasResults reports whether there is anything to save
func (r *Renderer) HasResults() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query != "" || len(r.items) > 0
}

// SaveImages writes the displayed images under dir
func (r *Renderer) SaveImages(dir string) ([]string, error) {
	r.mu.Lock()
	query := r.query
	items := append([]protocol.VectorItem(nil), r.items...)
	r.mu.Unlock()

	return SaveImages(dir, query, items)
}

// Render draws the page
func (r *Renderer) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	width := r.width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var sections []string

	if r.loading {
		sections = append(sections, LoadingStyle.Render("● 이미지 생성 중..."))
	}

	switch r.level {
	case MessageError:
		sections = append(sections, ErrorMessageStyle.Render(FailureMarker+" "+r.message))
	case MessageWarning:
		sections = append(sections, WarningStyle.Render(WarningMarker+" "+r.message))
	}

	if r.query != "" {
		sections = append(sections, renderCard("Query image", r.query, width))
	}

	if len(r.blocks) > 0 {
		lines := []string{SectionTitleStyle.Render(fmt.Sprintf("Results (%d)", len(r.blocks)))}
		for _, b := range r.blocks {
			lines = append(lines,
				renderCard(fmt.Sprintf("#%d", b.Rank), b.Image, width),
				"  "+ScoreStyle.Render(b.Similarity),
			)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if r.jsonText != "" {
		sections = append(sections, SectionTitleStyle.Render("JSON")+"\n"+r.jsonText)
	}

	return strings.Join(sections, "\n\n")
}
