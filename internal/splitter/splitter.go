// Package splitter plans the coarse split boundaries cut from one file's
// cleaned audio (C1 "split" stage): it turns a silence map and a target
// split duration into a list of [start_ms,end_ms) ranges, preferring to cut
// in the middle of a silence interval near the target length over cutting
// mid-speech.
package splitter

import "github.com/ppisljar/speech-dataset-creator/internal/model"

// Boundary is one planned split's [start_ms,end_ms) range.
type Boundary struct {
	StartMS int
	EndMS   int
}

// Plan returns split boundaries covering [0,totalMS), each roughly
// targetMS long. Where a silence interval's midpoint falls within 10s
// (searchWindowMS) of the ideal cut point, the cut lands at that interval's midpoint instead, so
// splits don't sever mid-word. If no qualifying silence interval is found
// near the ideal point, the cut lands exactly at the ideal point.
func Plan(silences model.SilenceMap, totalMS, targetMS int) []Boundary {
	if totalMS <= 0 {
		return nil
	}
	if targetMS <= 0 {
		targetMS = totalMS
	}

	const searchWindowMS = 10000 // look up to 10s either side of the ideal cut

	var out []Boundary
	cursor := 0
	for cursor < totalMS {
		ideal := cursor + targetMS
		if ideal >= totalMS {
			out = append(out, Boundary{StartMS: cursor, EndMS: totalMS})
			break
		}

		cut := ideal
		bestDist := searchWindowMS + 1
		for _, iv := range silences {
			if iv.StartMS < cursor {
				continue
			}
			mid := (iv.StartMS + iv.EndMS) / 2
			dist := mid - ideal
			if dist < 0 {
				dist = -dist
			}
			if dist <= searchWindowMS && dist < bestDist {
				bestDist = dist
				cut = mid
			}
		}

		if cut <= cursor {
			cut = ideal
		}
		out = append(out, Boundary{StartMS: cursor, EndMS: cut})
		cursor = cut
	}
	return out
}
