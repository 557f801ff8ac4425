package score

import (
	"fmt"
	"os"
	"strings"

	"github.com/programme-lv/autograder/internal/compare"
)

const (
	FullMarksMessage = "All output matched expected!"
	CongratsMessage  = "Congrats, full points!"
)

// Feedback accumulates the text of one student's results file.
type Feedback struct {
	b     strings.Builder
	total float64
}

// NewFeedback starts a feedback text with the run header for the
// submission identified by stem.
func NewFeedback(stem string, total float64) *Feedback {
	f := &Feedback{total: total}
	fmt.Fprintf(&f.b, "Running tests for %s...\n\n", stem)
	return f
}

// Units writes one block per unit that did not match.
func (f *Feedback) Units(units []compare.Unit, pointsPerLine float64) {
	pts := Format(pointsPerLine)
	for _, u := range units {
		switch u.Verdict {
		case compare.VerdictMismatch:
			fmt.Fprintf(&f.b, "Output did not match expected! -%s points\n", pts)
			f.input(u.Input)
			fmt.Fprintf(&f.b, "Expected: %s\n", trim(u.Expected))
			fmt.Fprintf(&f.b, "Received: %s\n\n", trim(u.Actual))
		case compare.VerdictErrored:
			fmt.Fprintf(&f.b, "Your code produced an error! -%s points\n", pts)
			f.input(u.Input)
			fmt.Fprintf(&f.b, "Expected: %s\n", trim(u.Expected))
			fmt.Fprintf(&f.b, "Error:\n%s\n\n", trim(u.Error))
		case compare.VerdictMissing:
			fmt.Fprintf(&f.b, "Your code did not produce enough lines! -%s points\n", pts)
			fmt.Fprintf(&f.b, "Expected: %s\n", trim(u.Expected))
			f.b.WriteString("Received: <empty line>\n\n")
		}
	}
}

func (f *Feedback) input(in string) {
	if in != "" {
		fmt.Fprintf(&f.b, "Input: %s\n", trim(in))
	}
}

func (f *Feedback) RunFailure(diagnostic string) {
	fmt.Fprintf(&f.b, "An exception occurred while running your program:\n%s\n", trim(diagnostic))
}

func (f *Feedback) MissingOutput() {
	f.b.WriteString("You did not create the expected output file. Please check the project specification\n")
}

func (f *Feedback) CorruptSubmission() {
	f.b.WriteString("Your submission could not be decompressed. Please upload it again\n")
}

// UnscorableGrade is written when the driver's grade file has a score line
// whose value cannot be read.
func (f *Feedback) UnscorableGrade(reason string) {
	fmt.Fprintf(&f.b, "The grade file produced by the driver could not be scored:\n%s\n", trim(reason))
}

func (f *Feedback) CompileFailure(output string) {
	fmt.Fprintf(&f.b, "Your submission did not compile. See compiler output below\nYour score: 0/%s\n\nCompiler Output:\n", Format(f.total))
	f.b.WriteString(output)
}

// DriverFailure is written when an external driver crashed or produced no
// grade file.
func (f *Feedback) DriverFailure(diagnostic string) {
	fmt.Fprintf(&f.b, "Your submission did not produce the expected result file when running the driver. Most likely a Segmentation Fault\nYour score: 0/%s", Format(f.total))
	if strings.TrimSpace(diagnostic) != "" {
		fmt.Fprintf(&f.b, "\n\n%s\n", trim(diagnostic))
	}
}

// ScoreLine writes the final score, with the full-marks message when the
// score reaches the total.
func (f *Feedback) ScoreLine(score float64) {
	if FullMarks(score, f.total) {
		fmt.Fprintf(&f.b, "%s\nYour score: %s/%s\n%s", FullMarksMessage, Format(f.total), Format(f.total), CongratsMessage)
		return
	}
	fmt.Fprintf(&f.b, "Your score: %s/%s", Format(score), Format(f.total))
}

func (f *Feedback) DriverOutput(content string) {
	f.b.WriteString("\n\nDriver Output:\n")
	f.b.WriteString(content)
}

func (f *Feedback) String() string {
	return f.b.String()
}

func (f *Feedback) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(f.b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write feedback: %w", err)
	}
	return nil
}

func trim(s string) string {
	return strings.TrimRight(s, "\r\n")
}
