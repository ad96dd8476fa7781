package filtergraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/clipshear/clipshear/internal/types"
)

// StyleOverrides serializes a subtitle style into the libass force_style
// syntax used by the subtitles filter.
func StyleOverrides(s types.SubtitleStyle) string {
	parts := []string{
		"FontName=" + s.FontName,
		fmt.Sprintf("FontSize=%d", s.FontSize),
		"PrimaryColour=" + ASSColor(s.PrimaryColor),
		"OutlineColour=" + ASSColor(s.OutlineColor),
		"BackColour=" + ASSColor(s.BackColor),
		fmt.Sprintf("Outline=%d", s.OutlineWidth),
		fmt.Sprintf("Shadow=%d", s.ShadowDepth),
		fmt.Sprintf("Alignment=%d", s.Alignment),
		fmt.Sprintf("MarginV=%d", s.MarginV),
	}
	return strings.Join(parts, ",")
}

// ASSColor converts an RGB hex color ("#RRGGBB") to the ASS &H00BBGGRR
// encoding. This is a byte-order permutation, not a color-space transform;
// unparseable input falls back to white.
func ASSColor(rgb string) string {
	hex := strings.TrimPrefix(strings.TrimSpace(rgb), "#")
	if len(hex) != 6 || !isHex(hex) {
		hex = "FFFFFF"
	}
	r, g, b := hex[0:2], hex[2:4], hex[4:6]
	return "&H00" + strings.ToUpper(b+g+r)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// RenderASS produces a minimal ASS document showing the segment transcript
// for the full clip duration, wrapped to the style's width budget. Event
// times are clip-local because each clip burns its own subtitle file.
func RenderASS(text string, clipDur time.Duration, style types.SubtitleStyle) string {
	if style.AllCaps {
		text = strings.ToUpper(text)
	}

	var b strings.Builder
	b.WriteString(assHeader(style))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	lines := wrapText(sanitizeASS(text), style.WrapWidth)
	if len(lines) == 0 {
		return b.String()
	}
	per := clipDur / time.Duration(len(lines))
	if per <= 0 {
		per = clipDur
	}
	for i, line := range lines {
		start := time.Duration(i) * per
		end := start + per
		if i == len(lines)-1 {
			end = clipDur
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Clip,,0,0,0,,%s\n", assTime(start), assTime(end), line)
	}
	return b.String()
}

func assHeader(style types.SubtitleStyle) string {
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Italic, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Clip, %s, %d, %s, %s, %s, 0, 0, 1, %d, %d, %d, 40, 40, %d, 1
`),
		style.FontName, style.FontSize,
		ASSColor(style.PrimaryColor), ASSColor(style.OutlineColor), ASSColor(style.BackColor),
		style.OutlineWidth, style.ShadowDepth, style.Alignment, style.MarginV,
	)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

// wrapText greedily packs words into lines of at most width runes.
func wrapText(s string, width int) []string {
	if width <= 0 {
		width = 42
	}
	words := strings.Fields(s)
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		need := len([]rune(w))
		if cur.Len() > 0 {
			need++
		}
		if cur.Len() > 0 && len([]rune(cur.String()))+need > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
