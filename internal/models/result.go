package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ResultKind discriminates the shapes a pipeline can return.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultSingle
	ResultMany
)

// FrameResult is the tagged return value of a pipeline invocation: nothing,
// one frame, or an ordered sequence of intermediate frames.
type FrameResult struct {
	Kind   ResultKind
	Frame  *Frame
	Frames []*Frame
}

func NoResult() FrameResult {
	return FrameResult{Kind: ResultNone}
}

func SingleResult(f *Frame) FrameResult {
	return FrameResult{Kind: ResultSingle, Frame: f}
}

func ManyResult(frames ...*Frame) FrameResult {
	return FrameResult{Kind: ResultMany, Frames: frames}
}

// Len reports how many frames the result carries.
func (r FrameResult) Len() int {
	switch r.Kind {
	case ResultSingle:
		return 1
	case ResultMany:
		return len(r.Frames)
	default:
		return 0
	}
}

// Pick selects the frame a view selector refers to. Selectors are of the form
// "step_0", "step_1", ... For single results the selector is ignored. Out of
// range or unparseable selectors fall back to the last frame of a sequence.
func (r FrameResult) Pick(selector string) *Frame {
	switch r.Kind {
	case ResultNone:
		return nil
	case ResultSingle:
		return r.Frame
	}

	if len(r.Frames) == 0 {
		return nil
	}
	idx := len(r.Frames) - 1
	if n, err := ParseViewSelector(selector); err == nil && n >= 0 && n < len(r.Frames) {
		idx = n
	}
	return r.Frames[idx]
}

// ParseViewSelector extracts the step index from a "step_N" selector string.
func ParseViewSelector(selector string) (int, error) {
	rest, ok := strings.CutPrefix(selector, "step_")
	if !ok {
		return 0, fmt.Errorf("invalid view selector %q", selector)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid view selector %q: %w", selector, err)
	}
	return n, nil
}
