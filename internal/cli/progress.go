package cli

import (
	"fmt"
	"strings"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// Shows level progress as: [=========>..........]  45% | 9 / 20 XP

const barWidth = 30 // Characters for the progress bar

// renderBar draws a bar for pct in [0, 100]; values outside are clamped.
func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", filled) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}

// levelBar renders progress through a level that takes required XP.
func levelBar(into, required int64) string {
	var pct float64
	if required > 0 {
		pct = float64(into) / float64(required) * 100
	}
	return fmt.Sprintf("%s %3.0f%% | %d / %d XP", renderBar(pct), pct, into, required)
}
