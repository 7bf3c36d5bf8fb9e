// Package selector resolves what the operator typed (a driver id, a list
// index, "all" or nothing) into the driver whose logs should be streamed.
package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"edgelog/internal/hub"
)

// AllText selects every driver.
const AllText = "all"

// PromptQuestion is asked when no driver was given on the command line.
const PromptQuestion = "Enter id or index"

// ErrInvalidSelection is wrapped by errors for input that is neither a known
// driver id nor an index into the list.
var ErrInvalidSelection = errors.New("invalid id or index")

// Target is what a stream is opened for: every driver, or one.
type Target struct {
	driverID string
}

// All returns the all-drivers target.
func All() Target { return Target{} }

// Driver returns the target for a single driver.
func Driver(id string) Target { return Target{driverID: id} }

// All reports whether t streams every driver.
func (t Target) All() bool { return t.driverID == "" }

// DriverID returns the selected driver, or "" for all drivers.
func (t Target) DriverID() string { return t.driverID }

func (t Target) String() string {
	if t.All() {
		return AllText
	}
	return t.driverID
}

// Prompter reads a line of operator input. validate is applied to each answer
// and the question is asked again while it returns an error. An empty answer
// yields def. It returns ctx.Err() when ctx is done before an answer.
type Prompter interface {
	Input(ctx context.Context, question, def string, validate func(string) error) (string, error)
}

// Config configures a Selector.
type Config struct {
	Prompter Prompter
	// Out receives the driver table shown before prompting.
	Out io.Writer
}

// Selector resolves operator input to a Target.
type Selector struct {
	prompter Prompter
	out      io.Writer
}

// New creates a Selector.
func New(cfg Config) *Selector {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &Selector{prompter: cfg.Prompter, out: out}
}

// Resolve turns input into a Target. "all" never consults list; any other
// input waits for it. Indexes are 1-based over the drivers sorted by name,
// the order Resolve prints them in when prompting.
func (s *Selector) Resolve(ctx context.Context, input string, list func() ([]hub.DriverSummary, error)) (Target, error) {
	input = strings.TrimSpace(input)
	if input == AllText {
		return All(), nil
	}

	drivers, err := list()
	if err != nil {
		return Target{}, err
	}
	drivers = Sorted(drivers)

	if input != "" {
		return lookup(input, drivers)
	}
	if len(drivers) == 0 {
		return All(), nil
	}
	if s.prompter == nil {
		return Target{}, errors.New("no driver given and no prompt available")
	}

	PrintTable(s.out, drivers)
	answer, err := s.prompter.Input(ctx, PromptQuestion, AllText, func(answer string) error {
		answer = strings.TrimSpace(answer)
		if answer == AllText {
			return nil
		}
		if _, err := lookup(answer, drivers); err != nil {
			return fmt.Errorf("%w. Please enter an index or valid id", err)
		}
		return nil
	})
	if err != nil {
		return Target{}, fmt.Errorf("prompt for driver: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == AllText || answer == "" {
		return All(), nil
	}
	return lookup(answer, drivers)
}

// lookup matches input against the ids in drivers, then as a 1-based index.
// Ids that are both UUIDs compare regardless of case and formatting.
func lookup(input string, drivers []hub.DriverSummary) (Target, error) {
	want, perr := uuid.Parse(input)
	for _, d := range drivers {
		if d.DriverID == input {
			return Driver(d.DriverID), nil
		}
		if id, ok := d.UUID(); ok && perr == nil && id == want {
			return Driver(d.DriverID), nil
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(drivers) {
		return Driver(drivers[n-1].DriverID), nil
	}
	return Target{}, fmt.Errorf("%w %q", ErrInvalidSelection, input)
}

// Sorted returns a copy of drivers ordered by name, then id.
func Sorted(drivers []hub.DriverSummary) []hub.DriverSummary {
	out := slices.Clone(drivers)
	slices.SortStableFunc(out, func(a, b hub.DriverSummary) int {
		if c := strings.Compare(strings.ToLower(a.DriverName), strings.ToLower(b.DriverName)); c != 0 {
			return c
		}
		return strings.Compare(a.DriverID, b.DriverID)
	})
	return out
}

// PrintTable writes drivers, already sorted, with their 1-based index.
func PrintTable(w io.Writer, drivers []hub.DriverSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tDriver Id\tName")
	for i, d := range drivers {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, d.DriverID, d.DriverName)
	}
	_ = tw.Flush()
}
