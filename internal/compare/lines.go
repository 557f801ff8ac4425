package compare

// Lines compares two captured outputs line by line. Every reference line is
// a unit; student lines past the end of the reference are ignored and
// reference lines the student never printed are Missing.
type Lines struct {
	Normalizer
}

func (l Lines) Compare(expected, actual string) *Outcome {
	refLines := splitLines(expected)
	stuLines := splitLines(actual)

	out := &Outcome{Units: make([]Unit, 0, len(refLines))}
	for i, ref := range refLines {
		if i >= len(stuLines) {
			out.Units = append(out.Units, Unit{Verdict: VerdictMissing, Expected: ref})
			continue
		}
		out.Units = append(out.Units, l.unit("", ref, stuLines[i]))
	}
	return out
}
