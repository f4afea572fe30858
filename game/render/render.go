package render

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

// CellKind identifies what occupies a grid cell in a frame
type CellKind string

const (
	KindEmpty       CellKind = "empty"
	KindCar         CellKind = "car"
	KindPassenger   CellKind = "passenger"
	KindDestination CellKind = "destination"
	KindObstacle    CellKind = "obstacle"
	KindStation     CellKind = "station"
	KindOutside     CellKind = "outside"
)

var kindChars = map[CellKind]string{
	KindEmpty:       ".",
	KindCar:         "C",
	KindPassenger:   "P",
	KindDestination: "D",
	KindObstacle:    "X",
	KindStation:     "E",
	KindOutside:     "#",
}

var kindStyles = map[CellKind]lipgloss.Style{
	KindEmpty:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	KindCar:         lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Bold(true),
	KindPassenger:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	KindDestination: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	KindObstacle:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	KindStation:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	KindOutside:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)

// CellAt classifies a position of the snapshot. The car is drawn on top of
// whatever it occupies; the passenger disappears once picked up.
func CellAt(s engine.Snapshot, p engine.Position) CellKind {
	switch {
	case !p.InBounds(s.GridSize):
		return KindOutside
	case p == s.CarPos:
		return KindCar
	case slices.Contains(s.Obstacles, p):
		return KindObstacle
	case slices.Contains(s.Chargers, p):
		return KindStation
	case p == s.PassengerPos && !s.PassengerPicked:
		return KindPassenger
	case p == s.DestinationPos:
		return KindDestination
	default:
		return KindEmpty
	}
}

// Char returns the single-character symbol for a cell kind
func Char(k CellKind) string {
	if c, ok := kindChars[k]; ok {
		return c
	}
	return "?"
}

// Grid returns one string per row, top row first
func Grid(s engine.Snapshot) []string {
	lines := make([]string, 0, s.GridSize)
	for y := 0; y < s.GridSize; y++ {
		var row strings.Builder
		for x := 0; x < s.GridSize; x++ {
			row.WriteString(Char(CellAt(s, engine.Position{X: x, Y: y})))
		}
		lines = append(lines, row.String())
	}
	return lines
}

// LocalView returns the 3x3 neighbourhood around the car. Cells beyond the
// grid edge are drawn as walls.
func LocalView(s engine.Snapshot) []string {
	lines := make([]string, 0, 3)
	for dy := -1; dy <= 1; dy++ {
		var row strings.Builder
		for dx := -1; dx <= 1; dx++ {
			p := engine.Position{X: s.CarPos.X + dx, Y: s.CarPos.Y + dy}
			row.WriteString(Char(CellAt(s, p)))
		}
		lines = append(lines, row.String())
	}
	return lines
}

// StatusLine formats battery, reward, steps and distance
func StatusLine(s engine.Snapshot) string {
	return fmt.Sprintf("Battery: %.2f%% | Reward: %.2f | Steps: %d | Distance to Goal: %.2f",
		s.Battery, s.TotalReward, s.StepsTaken, s.DistanceToGoal)
}

// PassengerStatus describes where the passenger is in the trip
func PassengerStatus(s engine.Snapshot) string {
	switch {
	case s.Delivered:
		return "Person dropped off"
	case s.PassengerPicked:
		return "Person picked up"
	default:
		return "One person is waiting"
	}
}

// FrameString renders a complete frame: the grid, the status line and the
// passenger status. With styled set the frame carries ANSI colours.
func FrameString(s engine.Snapshot, styled bool) string {
	var sb strings.Builder

	for y := 0; y < s.GridSize; y++ {
		for x := 0; x < s.GridSize; x++ {
			kind := CellAt(s, engine.Position{X: x, Y: y})
			ch := Char(kind)
			if styled {
				ch = kindStyles[kind].Render(ch)
			}
			sb.WriteString(ch)
			if x < s.GridSize-1 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	status := StatusLine(s)
	passenger := PassengerStatus(s)
	if styled {
		status = statusStyle.Render(status)
		if s.Status == engine.StatusTerminated {
			passenger = doneStyle.Render(passenger)
		} else {
			passenger = statusStyle.Render(passenger)
		}
	}
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(passenger)
	sb.WriteString("\n")

	return sb.String()
}

// TextRenderer writes plain frames to a writer
type TextRenderer struct {
	w      io.Writer
	styled bool
}

// NewTextRenderer creates a renderer writing uncoloured frames to w
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// NewStyledRenderer creates a renderer writing lipgloss-coloured frames to w
func NewStyledRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w, styled: true}
}

// Render writes one frame followed by a blank line
func (r *TextRenderer) Render(s engine.Snapshot) error {
	if r.w == nil {
		return fmt.Errorf("renderer has no output")
	}
	_, err := io.WriteString(r.w, FrameString(s, r.styled)+"\n")
	return err
}

type flusher interface {
	Flush() error
}

// Close flushes buffered writers and detaches the output. The writer itself
// is left open since it is usually stdout.
func (r *TextRenderer) Close() error {
	w := r.w
	r.w = nil
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

var _ engine.Renderer = (*TextRenderer)(nil)
