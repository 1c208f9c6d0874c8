// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation turns source citations into display-ready tuples.
//
// Render is pure and never fails: nil or empty input yields an empty slice,
// and the input slice is never modified. Citations are rendered in the order
// the backend returned them.
package citation

import (
	"math"
	"strconv"

	"github.com/jeranaias/docchat/internal/model"
)

// Display is the presentation form of a single citation.
type Display struct {
	Label            string
	ChunkPosition    int
	RelevancePercent int
}

// String formats the tuple as "plan.pdf, chunk 2, 87%".
func (d Display) String() string {
	return d.Label + ", chunk " + strconv.Itoa(d.ChunkPosition) + ", " + strconv.Itoa(d.RelevancePercent) + "%"
}

// Render maps citations to display tuples.
func Render(sources []model.Citation) []Display {
	out := make([]Display, 0, len(sources))
	for _, s := range sources {
		out = append(out, Display{
			Label:            s.Filename,
			ChunkPosition:    s.ChunkIndex,
			RelevancePercent: Percent(s.RelevanceScore),
		})
	}
	return out
}

// Percent converts a relevance score to a whole percentage.
// Halves round away from zero.
func Percent(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(score * 100))
}

// Strings renders every citation with Display.String.
func Strings(sources []model.Citation) []string {
	displays := Render(sources)
	out := make([]string, len(displays))
	for i, d := range displays {
		out[i] = d.String()
	}
	return out
}
