// Package filtergraph builds video transformation graphs as typed nodes and
// serializes them to ffmpeg filter syntax at the boundary. Building is pure:
// the same mode and dimensions always produce the same graph string.
package filtergraph

import (
	"strconv"
	"strings"

	"github.com/clipshear/clipshear/internal/types"
)

// NodeKind tags the supported filter node variants.
type NodeKind int

const (
	KindCrop NodeKind = iota
	KindScale
	KindSplit
	KindBoxBlur
	KindOverlay
	KindVStack
	KindPad
	KindSubtitles
)

// Node is one filter in a chain. Params are pre-rendered filter arguments in
// positional order.
type Node struct {
	Kind   NodeKind
	Params []string
}

func (n Node) String() string {
	name := map[NodeKind]string{
		KindCrop:      "crop",
		KindScale:     "scale",
		KindSplit:     "split",
		KindBoxBlur:   "boxblur",
		KindOverlay:   "overlay",
		KindVStack:    "vstack",
		KindPad:       "pad",
		KindSubtitles: "subtitles",
	}[n.Kind]
	if len(n.Params) == 0 {
		return name
	}
	return name + "=" + strings.Join(n.Params, ":")
}

// Crop trims to w x h at offset (x, y). Arguments are ffmpeg expressions.
func Crop(w, h, x, y string) Node { return Node{Kind: KindCrop, Params: []string{w, h, x, y}} }

// Scale resizes to w x h.
func Scale(w, h string) Node { return Node{Kind: KindScale, Params: []string{w, h}} }

// ScaleFitted resizes to w x h preserving aspect; fit is "increase" for
// scale-to-fill or "decrease" for scale-to-fit.
func ScaleFitted(w, h, fit string) Node {
	return Node{Kind: KindScale, Params: []string{w, h, "force_original_aspect_ratio=" + fit}}
}

// Split duplicates the stream n ways.
func Split(n int) Node { return Node{Kind: KindSplit, Params: []string{strconv.Itoa(n)}} }

// BoxBlur blurs with the given radius and power.
func BoxBlur(radius, power int) Node {
	return Node{Kind: KindBoxBlur, Params: []string{strconv.Itoa(radius), strconv.Itoa(power)}}
}

// Overlay composites the second input over the first at (x, y).
func Overlay(x, y string) Node { return Node{Kind: KindOverlay, Params: []string{x, y}} }

// VStack stacks n inputs top to bottom.
func VStack(n int) Node { return Node{Kind: KindVStack, Params: []string{"inputs=" + strconv.Itoa(n)}} }

// Pad letterboxes to w x h with the input placed at (x, y) over a fill color.
func Pad(w, h, x, y, color string) Node {
	return Node{Kind: KindPad, Params: []string{w, h, x, y, "color=" + color}}
}

// Subtitles burns an ASS/SRT file in, with optional style overrides.
func Subtitles(path, forceStyle string) Node {
	params := []string{EscapeFilterPath(path)}
	if forceStyle != "" {
		params = append(params, "force_style='"+forceStyle+"'")
	}
	return Node{Kind: KindSubtitles, Params: params}
}

// Chain is a linear run of nodes with optional labeled inputs and outputs.
type Chain struct {
	Inputs  []string
	Nodes   []Node
	Outputs []string
}

// Graph is an ordered set of chains. An empty graph means passthrough.
type Graph struct {
	Chains []Chain
}

// Empty reports whether the graph is a passthrough.
func (g Graph) Empty() bool { return len(g.Chains) == 0 }

// String serializes the graph to ffmpeg filter syntax. Graphs built here have
// exactly one free input and one free output, so the result is usable as a
// -vf argument.
func (g Graph) String() string {
	var b strings.Builder
	for ci, c := range g.Chains {
		if ci > 0 {
			b.WriteByte(';')
		}
		for _, in := range c.Inputs {
			b.WriteString("[" + in + "]")
		}
		for ni, n := range c.Nodes {
			if ni > 0 {
				b.WriteByte(',')
			}
			b.WriteString(n.String())
		}
		for _, out := range c.Outputs {
			b.WriteString("[" + out + "]")
		}
	}
	return b.String()
}

// WithSubtitles returns a copy of g with a subtitle burn-in node appended to
// the final chain.
func (g Graph) WithSubtitles(assPath string, style types.SubtitleStyle) Graph {
	sub := Subtitles(assPath, StyleOverrides(style))
	if g.Empty() {
		return Graph{Chains: []Chain{{Nodes: []Node{sub}}}}
	}
	out := Graph{Chains: make([]Chain, len(g.Chains))}
	copy(out.Chains, g.Chains)
	last := &out.Chains[len(out.Chains)-1]
	nodes := make([]Node, 0, len(last.Nodes)+1)
	nodes = append(nodes, last.Nodes...)
	last.Nodes = append(nodes, sub)
	return out
}

// Build constructs the transformation graph for the given aspect-ratio mode
// and target output box.
func Build(mode types.AspectRatioMode, width, height int) Graph {
	w := strconv.Itoa(width)
	h := strconv.Itoa(height)
	halfH := strconv.Itoa(height / 2)

	switch mode {
	case types.AspectVerticalCrop:
		// Center crop to 9:16 then scale into the target box.
		return Graph{Chains: []Chain{{Nodes: []Node{
			Crop("ih*9/16", "ih", "(iw-ih*9/16)/2", "0"),
			Scale(w, h),
		}}}}

	case types.AspectVerticalBlurBackground:
		return Graph{Chains: []Chain{
			{Nodes: []Node{Split(2)}, Outputs: []string{"bg", "fg"}},
			{Inputs: []string{"bg"}, Nodes: []Node{
				ScaleFitted(w, h, "increase"),
				Crop(w, h, "(iw-ow)/2", "(ih-oh)/2"),
				BoxBlur(20, 5),
			}, Outputs: []string{"bgblur"}},
			{Inputs: []string{"fg"}, Nodes: []Node{
				ScaleFitted(w, h, "decrease"),
			}, Outputs: []string{"fgfit"}},
			{Inputs: []string{"bgblur", "fgfit"}, Nodes: []Node{
				Overlay("(W-w)/2", "(H-h)/2"),
			}},
		}}

	case types.AspectVerticalStackSplitScreen:
		return stackedGraph(nil, w, halfH)

	case types.AspectVerticalStackPodcast:
		// Inset crop removes letterboxing and watermarks before splitting:
		// 10% of the width and the top 20% of the height are trimmed.
		inset := Crop("iw*0.9", "ih*0.8", "iw*0.05", "ih*0.2")
		return stackedGraph(&inset, w, halfH)

	case types.AspectVerticalLetterbox:
		return Graph{Chains: []Chain{{Nodes: []Node{
			Scale(w, "-2"),
			Pad(w, h, "(ow-iw)/2", "(oh-ih)/2", "black"),
		}}}}

	default: // AspectOriginal
		return Graph{}
	}
}

// stackedGraph splits the frame into left/right halves stacked vertically.
func stackedGraph(inset *Node, w, halfH string) Graph {
	head := Chain{Outputs: []string{"left", "right"}}
	if inset != nil {
		head.Nodes = append(head.Nodes, *inset)
	}
	head.Nodes = append(head.Nodes, Split(2))

	return Graph{Chains: []Chain{
		head,
		{Inputs: []string{"left"}, Nodes: []Node{
			Crop("iw/2", "ih", "0", "0"),
			Scale(w, halfH),
		}, Outputs: []string{"top"}},
		{Inputs: []string{"right"}, Nodes: []Node{
			Crop("iw/2", "ih", "iw/2", "0"),
			Scale(w, halfH),
		}, Outputs: []string{"bottom"}},
		{Inputs: []string{"top", "bottom"}, Nodes: []Node{VStack(2)}},
	}}
}

// EscapeFilterPath escapes a filesystem path for use inside a filter argument.
func EscapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
