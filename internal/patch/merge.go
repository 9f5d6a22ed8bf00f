// Package patch implements divergence detection between cached and
// on-disk output, patch persistence, and 3-way merge reconciliation, per
// spec.md §4.8. The underlying diff engine is sergi/go-diff's
// diffmatchpatch, used in line mode the same way codenerd's internal/diff
// package drives it (DiffLinesToChars, DiffMain, DiffCharsToLines); the
// 3-way merge logic itself is original to this package, since nothing in
// the example pack implements one.
package patch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// hunk is a contiguous replacement against a [Start, End) range of base
// line indices (End exclusive; Start == End denotes a pure insertion).
type hunk struct {
	Start, End int
	Lines      []string
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// diffHunks computes the hunks that turn base into other, expressed as
// replacement ranges against base's line numbering.
func diffHunks(base, other string) []hunk {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(base, other)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var hunks []hunk
	baseLine := 0
	var pending *hunk

	flush := func() {
		if pending != nil {
			hunks = append(hunks, *pending)
			pending = nil
		}
	}

	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			baseLine += len(lines)
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &hunk{Start: baseLine, End: baseLine}
			}
			pending.End += len(lines)
			baseLine += len(lines)
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &hunk{Start: baseLine, End: baseLine}
			}
			pending.Lines = append(pending.Lines, lines...)
		}
	}
	flush()
	return hunks
}

// MergeResult is the outcome of a 3-way merge attempt.
type MergeResult struct {
	Merged   string
	Conflict bool
}

// taggedHunk is a hunk annotated with which side produced it, used while
// clustering overlapping hunks from both sides together.
type taggedHunk struct {
	hunk
	ours bool
}

// Merge reconciles base, ours (the user's on-disk edit), and theirs (the
// newly generated LLM output), per spec.md §4.7/§4.8: the hunks that turn
// base into ours and the hunks that turn base into theirs are clustered
// by overlapping base-line range. A cluster touched by only one side
// applies that side's replacement directly; a cluster touched by both
// sides is emitted with conflict markers around the two versions, and
// the whole merge is reported as conflicted.
func Merge(base, ours, theirs string) MergeResult {
	baseLines := splitLines(base)
	oursHunks := diffHunks(base, ours)
	theirsHunks := diffHunks(base, theirs)

	var combined []taggedHunk
	for _, h := range oursHunks {
		combined = append(combined, taggedHunk{h, true})
	}
	for _, h := range theirsHunks {
		combined = append(combined, taggedHunk{h, false})
	}
	sort.Slice(combined, func(i, j int) bool {
		if combined[i].Start != combined[j].Start {
			return combined[i].Start < combined[j].Start
		}
		return combined[i].End < combined[j].End
	})

	var out []string
	conflict := false
	cursor := 0

	flushPlain := func(to int) {
		for cursor < to {
			out = append(out, baseLines[cursor])
			cursor++
		}
	}

	i := 0
	for i < len(combined) {
		clusterStart := combined[i].Start
		clusterEnd := combined[i].End
		j := i + 1
		for j < len(combined) && combined[j].Start < clusterEnd {
			if combined[j].End > clusterEnd {
				clusterEnd = combined[j].End
			}
			j++
		}

		flushPlain(clusterStart)

		var oursLines, theirsLines []string
		hasOurs, hasTheirs := false, false
		for _, h := range combined[i:j] {
			if h.ours {
				hasOurs = true
				oursLines = append(oursLines, h.Lines...)
			} else {
				hasTheirs = true
				theirsLines = append(theirsLines, h.Lines...)
			}
		}

		switch {
		case hasOurs && hasTheirs:
			conflict = true
			out = append(out, "<<<<<<< ours")
			out = append(out, oursLines...)
			out = append(out, "=======")
			out = append(out, theirsLines...)
			out = append(out, ">>>>>>> theirs")
		case hasOurs:
			out = append(out, oursLines...)
		default:
			out = append(out, theirsLines...)
		}

		cursor = clusterEnd
		i = j
	}
	flushPlain(len(baseLines))

	return MergeResult{Merged: joinLines(out), Conflict: conflict}
}

// String renders a MergeResult for diagnostic messages.
func (r MergeResult) String() string {
	if r.Conflict {
		return fmt.Sprintf("conflict (%d bytes, markers embedded)", len(r.Merged))
	}
	return fmt.Sprintf("clean merge (%d bytes)", len(r.Merged))
}
