// Package render writes streamed log records for the operator, as coloured
// terminal lines or as JSON lines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"edgelog/internal/hub"
	"edgelog/internal/stream"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns the sink for format. color only affects FormatText.
func New(format string, w io.Writer, color bool) (stream.Sink, error) {
	switch format {
	case FormatText, "":
		return NewTerminal(w, color), nil
	case FormatJSON:
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// Badge background colours, ANSI palette indexes.
var levelBackground = map[hub.Level]lipgloss.Color{
	hub.LevelTrace: lipgloss.Color("2"),
	hub.LevelDebug: lipgloss.Color("6"),
	hub.LevelInfo:  lipgloss.Color("4"),
	hub.LevelWarn:  lipgloss.Color("3"),
	hub.LevelError: lipgloss.Color("1"),
	hub.LevelFatal: lipgloss.Color("8"),
	hub.LevelPrint: lipgloss.Color("8"),
}

// Terminal writes "<timestamp> <LEVEL> <driver name>  <message>" lines.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	badges  map[hub.Level]lipgloss.Style
	unknown lipgloss.Style
}

// NewTerminal creates a Terminal sink. When color is false the level badge
// is plain text.
func NewTerminal(w io.Writer, color bool) *Terminal {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI
	}
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	badges := make(map[hub.Level]lipgloss.Style, len(levelBackground))
	for level, bg := range levelBackground {
		badges[level] = renderer.NewStyle().Foreground(lipgloss.Color("0")).Background(bg)
	}
	return &Terminal{w: w, badges: badges, unknown: renderer.NewStyle()}
}

// Format renders rec without a trailing newline.
func (t *Terminal) Format(rec hub.LogRecord) string {
	badge, ok := t.badges[rec.Level]
	if !ok {
		badge = t.unknown
	}
	return fmt.Sprintf("%s %s %s  %s", rec.Timestamp, badge.Render(rec.Level.String()), rec.DriverName, rec.Message)
}

func (t *Terminal) Emit(rec hub.LogRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, t.Format(rec))
	return err
}

// JSON writes one JSON object per record.
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSON creates a JSON lines sink.
func NewJSON(w io.Writer) *JSON {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSON{enc: enc}
}

func (j *JSON) Emit(rec hub.LogRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(rec)
}
