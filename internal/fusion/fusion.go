// Package fusion implements the fusion engine (C4): the algorithm that
// turns a word-level ASR token stream, a diarization track, and a silence
// map into the segment list the rest of the pipeline (validation, export,
// the editor front-end) operates on.
package fusion

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
	"github.com/ppisljar/speech-dataset-creator/pkg/metrics"
)

// sentenceEnders are the punctuation marks that force a new segment when a
// token ends with one (fusion step 3c).
const sentenceEnders = ".?!"

// defaultMaxSubDurationMS bounds how large a merged sub-segment may grow
// under join_subsegments (fusion step 6).
const defaultMaxSubDurationMS = 15000

// EmbeddingExtractor produces a speaker embedding for one local diarization
// label, given the turn the fusion engine selected to represent it (the
// first-encountered turn for that label, per the first-wins tie-break).
type EmbeddingExtractor interface {
	ExtractLabelEmbedding(label string, turn model.DiarizationTurn) (speakerdb.Embedding, error)
}

// SpeakerAssigner is the subset of speakerdb.DB the fusion engine depends
// on, so tests can substitute a fake without standing up a real DB file.
type SpeakerAssigner interface {
	Assign(embedding speakerdb.Embedding, threshold float64) (id int, decision speakerdb.AssignDecision, err error)
}

// Settings is the subset of project settings the fusion engine consults.
type Settings struct {
	SilencePadMS        int
	MinSilenceLengthMS  int
	BuildSubsegments    bool
	JoinSubsegments     bool
	SpeakerSimThreshold float64
}

// Engine runs the fusion algorithm. It holds no state across calls; a
// fresh Engine per split invocation is expected.
type Engine struct {
	Extractor EmbeddingExtractor
	Assigner  SpeakerAssigner
}

// Fuse runs the nine-step fusion process: align, map speakers, form raw
// segments, pad to silence, assign text, build sub-segments, resolve
// overlaps, assign default verdicts, and return the two segment artifacts
// (raw and live start out identical; callers persist both).
func (e *Engine) Fuse(tokens []asr.Token, diar model.DiarizationTrack, silences model.SilenceMap, settings Settings) ([]model.Segment, error) {
	tokens = dropZeroDurationTokens(tokens)

	// Step 1+2: align tokens to diarization labels, then map local labels to
	// global speaker IDs.
	labels := e.alignTokensToLabels(tokens, diar, settings.SilencePadMS)
	speakerIDs, err := e.mapLabelsToSpeakers(labels, diar, settings.SpeakerSimThreshold)
	if err != nil {
		return nil, fmt.Errorf("fusion: speaker mapping: %w", err)
	}

	// Step 3: form raw main segments.
	segments := formRawSegments(tokens, speakerIDs, silences, settings.MinSilenceLengthMS)

	// Step 4: pad to silence.
	for i := range segments {
		padToSilence(&segments[i].Main, silences, settings.SilencePadMS, prevBoundary(segments, i), nextBoundary(segments, i, tokens))
	}

	// Diarization refinement pass: extend the first/last segment to the
	// diarization turn bounds they fall inside, and proportionally rescale
	// any subs whose parent moved.
	if len(diar) > 0 {
		refineToDiarizationTurns(segments, diar)
		for i := range segments {
			padToSilence(&segments[i].Main, silences, settings.SilencePadMS, prevBoundary(segments, i), nextBoundary(segments, i, tokens))
		}
	}

	// Step 5: assign segment text + min_confidence.
	for i := range segments {
		assignText(&segments[i], tokens)
	}

	// Step 6: build sub-segments.
	if settings.BuildSubsegments {
		for i := range segments {
			segments[i].Subs = buildSubsegments(segments[i], tokens, silences, settings.MinSilenceLengthMS)
			if settings.JoinSubsegments {
				segments[i].Subs = joinSubsegments(segments[i].Subs, defaultMaxSubDurationMS)
			}
		}
	}

	// Step 7: overlap resolution.
	markOverlaps(segments)

	// Step 8: default verdict.
	for i := range segments {
		if segments[i].Status != model.SegStatusBad {
			if segments[i].Main.MinConfidence < 0.60 {
				segments[i].Status = model.SegStatusBad
			} else {
				segments[i].Status = model.SegStatusGood
			}
		}
		metrics.RecordFusionSegment(string(segments[i].Status))
	}

	return segments, nil
}

func dropZeroDurationTokens(tokens []asr.Token) []asr.Token {
	out := make([]asr.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.EndMS <= t.StartMS {
			// Zero-duration tokens are dropped with a logged warning.
			slog.Warn("fusion: dropping zero-duration token", "text", t.Text, "start_ms", t.StartMS, "end_ms", t.EndMS)
			continue
		}
		out = append(out, t)
	}
	return out
}

// alignTokensToLabels implements step 1: for each token, find the
// diarization interval containing its midpoint; else the nearest interval
// within silence_pad_ms of the midpoint; else "" (speaker unknown).
func (e *Engine) alignTokensToLabels(tokens []asr.Token, diar model.DiarizationTrack, padMS int) []string {
	labels := make([]string, len(tokens))
	for i, t := range tokens {
		midMS := float64(t.StartMS+t.EndMS) / 2.0
		midS := midMS / 1000.0

		label := ""
		for _, turn := range diar {
			if midS >= turn.StartS && midS < turn.EndS {
				label = turn.SpeakerLabel
				break
			}
		}
		if label == "" && len(diar) > 0 {
			bestDist := float64(padMS) / 1000.0
			for _, turn := range diar {
				dist := nearestDistance(midS, turn.StartS, turn.EndS)
				if dist <= bestDist {
					bestDist = dist
					label = turn.SpeakerLabel
				}
			}
		}
		labels[i] = label
	}
	return labels
}

func nearestDistance(x, start, end float64) float64 {
	if x < start {
		return start - x
	}
	if x > end {
		return x - end
	}
	return 0
}

// mapLabelsToSpeakers implements step 2: extract one embedding per local
// label (using the first-encountered turn for that label, by start time)
// and call SpeakerDB.Assign, producing a speaker_id per token.
func (e *Engine) mapLabelsToSpeakers(labels []string, diar model.DiarizationTrack, threshold float64) ([]int, error) {
	if len(diar) == 0 {
		// Edge case: empty diarization -> single speaker 0 for whole split.
		ids := make([]int, len(labels))
		return ids, nil
	}

	firstTurnByLabel := map[string]model.DiarizationTurn{}
	var labelOrder []string
	sorted := make(model.DiarizationTrack, len(diar))
	copy(sorted, diar)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartS < sorted[j].StartS })
	for _, turn := range sorted {
		if _, ok := firstTurnByLabel[turn.SpeakerLabel]; !ok {
			firstTurnByLabel[turn.SpeakerLabel] = turn
			labelOrder = append(labelOrder, turn.SpeakerLabel)
		}
	}

	globalIDByLabel := map[string]int{}
	for _, label := range labelOrder {
		turn := firstTurnByLabel[label]
		if label == "" {
			continue
		}
		if e.Extractor == nil || e.Assigner == nil {
			continue
		}
		emb, err := e.Extractor.ExtractLabelEmbedding(label, turn)
		if err != nil {
			return nil, fmt.Errorf("extract embedding for label %s: %w", label, err)
		}
		id, _, err := e.Assigner.Assign(emb, threshold)
		if err != nil {
			return nil, fmt.Errorf("assign speaker for label %s: %w", label, err)
		}
		globalIDByLabel[label] = id
	}

	ids := make([]int, len(labels))
	for i, label := range labels {
		if label == "" {
			ids[i] = -1 // unknown; caller/renderer may treat -1 specially
			continue
		}
		ids[i] = globalIDByLabel[label]
	}
	return ids, nil
}

// formRawSegments implements step 3: scan tokens in order, starting a new
// segment when the speaker changes, when the inter-token gap is >=
// min_silence_length_ms and fully inside a silence interval, or when the
// previous token ended with sentence-terminal punctuation.
func formRawSegments(tokens []asr.Token, speakerIDs []int, silences model.SilenceMap, minSilenceMS int) []model.Segment {
	if len(tokens) == 0 {
		return nil
	}

	var segments []model.Segment
	segStart := 0

	flush := func(end int) {
		if segStart > end {
			return
		}
		segments = append(segments, model.Segment{
			SegIndex: len(segments),
			Main: model.SegRange{
				StartMS:   tokens[segStart].StartMS,
				EndMS:     tokens[end].EndMS,
				SpeakerID: speakerIDs[segStart],
			},
		})
	}

	for i := 1; i < len(tokens); i++ {
		speakerChanged := speakerIDs[i] != speakerIDs[i-1]
		gapMS := tokens[i].StartMS - tokens[i-1].EndMS
		gapIsSilenceBoundary := gapMS >= minSilenceMS && gapFullyInsideSilence(tokens[i-1].EndMS, tokens[i].StartMS, silences)
		prevEndsSentence := endsWithSentenceEnder(tokens[i-1].Text)

		if speakerChanged || gapIsSilenceBoundary || prevEndsSentence {
			flush(i - 1)
			segStart = i
		}
	}
	flush(len(tokens) - 1)

	return segments
}

func endsWithSentenceEnder(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return strings.ContainsRune(sentenceEnders, rune(text[len(text)-1]))
}

// gapFullyInsideSilence reports whether [startMS,endMS] lies entirely
// within some silence interval, using the documented >= comparator for
// every silence-duration gate in this engine.
func gapFullyInsideSilence(startMS, endMS int, silences model.SilenceMap) bool {
	for _, s := range silences {
		if startMS >= s.StartMS && endMS <= s.EndMS {
			return true
		}
	}
	return false
}

func prevBoundary(segments []model.Segment, i int) int {
	if i == 0 {
		return -1 << 30
	}
	return segments[i-1].Main.EndMS
}

func nextBoundary(segments []model.Segment, i int, tokens []asr.Token) int {
	if i == len(segments)-1 {
		return 1 << 30
	}
	return segments[i+1].Main.StartMS
}

// padToSilence implements step 4: measure how far a (leftward) and b
// (rightward) may extend to the edge of the adjacent silence interval,
// capped by silence_pad_ms and never crossing into a neighboring segment's
// body, and record those amounts as PadStartMS/PadEndMS deltas. StartMS and
// EndMS themselves are left unchanged.
func padToSilence(rng *model.SegRange, silences model.SilenceMap, padMS int, lowerBound, upperBound int) {
	a, b := rng.StartMS, rng.EndMS

	padStart := 0
	for _, s := range silences {
		if s.EndMS <= a && s.EndMS >= lowerBound {
			candidate := a - s.StartMS
			if candidate > padMS {
				candidate = padMS
			}
			newA := a - candidate
			if newA < lowerBound {
				newA = lowerBound
			}
			if a-newA > padStart {
				padStart = a - newA
			}
		}
	}
	rng.PadStartMS = padStart

	padEnd := 0
	for _, s := range silences {
		if s.StartMS >= b && s.StartMS <= upperBound {
			candidate := s.EndMS - b
			if candidate > padMS {
				candidate = padMS
			}
			newB := b + candidate
			if newB > upperBound {
				newB = upperBound
			}
			if newB-b > padEnd {
				padEnd = newB - b
			}
		}
	}
	rng.PadEndMS = padEnd
}

// assignText implements step 5: concatenate contained token texts with a
// single space, normalize whitespace, strip leading/trailing punctuation
// except sentence enders, and compute min_confidence over contained tokens.
func assignText(seg *model.Segment, tokens []asr.Token) {
	var texts []string
	minConf := 1.0
	hasToken := false
	for _, t := range tokens {
		mid := float64(t.StartMS+t.EndMS) / 2
		if mid >= float64(seg.Main.StartMS) && mid < float64(seg.Main.EndMS) {
			texts = append(texts, t.Text)
			if t.Confidence < minConf {
				minConf = t.Confidence
			}
			hasToken = true
		}
	}
	text := normalizeText(strings.Join(texts, " "))
	seg.Main.Text = text
	if hasToken {
		seg.Main.MinConfidence = minConf
	}
}

func normalizeText(s string) string {
	fields := strings.Fields(s)
	s = strings.Join(fields, " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		if strings.ContainsRune(sentenceEnders, r) {
			return false
		}
		return strings.ContainsRune(",;:-\"'() ", r)
	})
	return s
}

// buildSubsegments implements step 6's split: break on comma-terminated
// tokens whose trailing silence is >= half of min_silence_length_ms.
func buildSubsegments(seg model.Segment, tokens []asr.Token, silences model.SilenceMap, minSilenceMS int) []model.SegRange {
	var inRange []asr.Token
	for _, t := range tokens {
		mid := float64(t.StartMS+t.EndMS) / 2
		if mid >= float64(seg.Main.StartMS) && mid < float64(seg.Main.EndMS) {
			inRange = append(inRange, t)
		}
	}
	if len(inRange) == 0 {
		return nil
	}

	halfMin := minSilenceMS / 2
	var subs []model.SegRange
	start := 0
	for i := 0; i < len(inRange); i++ {
		isBoundary := false
		if strings.HasSuffix(strings.TrimSpace(inRange[i].Text), ",") && i < len(inRange)-1 {
			gap := inRange[i+1].StartMS - inRange[i].EndMS
			if gap >= halfMin && gapFullyInsideSilence(inRange[i].EndMS, inRange[i+1].StartMS, silences) {
				isBoundary = true
			}
		}
		if isBoundary || i == len(inRange)-1 {
			subs = append(subs, subRangeFrom(inRange[start:i+1], seg.Main.SpeakerID))
			start = i + 1
		}
	}
	if len(subs) == 1 {
		return nil // a single sub spanning the whole segment adds no information
	}
	return subs
}

func subRangeFrom(tokens []asr.Token, speakerID int) model.SegRange {
	var texts []string
	minConf := 1.0
	for _, t := range tokens {
		texts = append(texts, t.Text)
		if t.Confidence < minConf {
			minConf = t.Confidence
		}
	}
	return model.SegRange{
		StartMS:       tokens[0].StartMS,
		EndMS:         tokens[len(tokens)-1].EndMS,
		SpeakerID:     speakerID,
		Text:          normalizeText(strings.Join(texts, " ")),
		MinConfidence: minConf,
	}
}

// joinSubsegments implements step 6's merge: combine adjacent subs whose
// combined duration stays under maxDurationMS.
func joinSubsegments(subs []model.SegRange, maxDurationMS int) []model.SegRange {
	if len(subs) == 0 {
		return subs
	}
	var merged []model.SegRange
	cur := subs[0]
	for i := 1; i < len(subs); i++ {
		combinedDur := subs[i].EndMS - cur.StartMS
		if combinedDur < maxDurationMS && subs[i].SpeakerID == cur.SpeakerID {
			cur.EndMS = subs[i].EndMS
			cur.Text = normalizeText(cur.Text + " " + subs[i].Text)
			if subs[i].MinConfidence < cur.MinConfidence {
				cur.MinConfidence = subs[i].MinConfidence
			}
		} else {
			merged = append(merged, cur)
			cur = subs[i]
		}
	}
	merged = append(merged, cur)
	return merged
}

// markOverlaps implements step 7: two segments overlap iff a1<b2 && a2<b1.
// Both sides of an overlap (main or sub) are marked bad; overlaps are never
// silently merged regardless of speaker.
func markOverlaps(segments []model.Segment) {
	for i := 0; i < len(segments); i++ {
		for j := i + 1; j < len(segments); j++ {
			if rangesOverlap(segments[i].Main, segments[j].Main) {
				segments[i].Status = model.SegStatusBad
				segments[j].Status = model.SegStatusBad
			}
		}
		for a := 0; a < len(segments[i].Subs); a++ {
			for b := a + 1; b < len(segments[i].Subs); b++ {
				if rangesOverlap(segments[i].Subs[a], segments[i].Subs[b]) {
					segments[i].Status = model.SegStatusBad
				}
			}
		}
	}
}

func rangesOverlap(a, b model.SegRange) bool {
	return a.StartMS < b.EndMS && b.StartMS < a.EndMS
}

// refineToDiarizationTurns handles the case where a diarization turn
// straddles the first or last raw segment: that segment's boundary is
// pulled/pushed to the turn's bound, and any subs whose parent moved are
// rescaled proportionally to preserve their relative position.
func refineToDiarizationTurns(segments []model.Segment, diar model.DiarizationTrack) {
	if len(segments) == 0 {
		return
	}

	refineOne := func(idx int, extendStart bool) {
		seg := &segments[idx]
		midS := float64(seg.Main.StartMS+seg.Main.EndMS) / 2000.0
		for _, turn := range diar {
			if midS >= turn.StartS && midS < turn.EndS {
				turnStartMS := int(turn.StartS * 1000)
				turnEndMS := int(turn.EndS * 1000)
				oldStart, oldEnd := seg.Main.StartMS, seg.Main.EndMS

				if extendStart && turnStartMS < seg.Main.StartMS {
					seg.Main.StartMS = turnStartMS
				}
				if !extendStart && turnEndMS > seg.Main.EndMS {
					seg.Main.EndMS = turnEndMS
				}

				rescaleSubsProportionally(seg, oldStart, oldEnd)
				return
			}
		}
	}

	refineOne(0, true)
	refineOne(len(segments)-1, false)
}

func rescaleSubsProportionally(seg *model.Segment, oldStart, oldEnd int) {
	if len(seg.Subs) == 0 {
		return
	}
	oldSpan := oldEnd - oldStart
	newSpan := seg.Main.EndMS - seg.Main.StartMS
	if oldSpan <= 0 || newSpan == oldSpan {
		return
	}
	scale := float64(newSpan) / float64(oldSpan)
	for i := range seg.Subs {
		relStart := float64(seg.Subs[i].StartMS-oldStart) * scale
		relEnd := float64(seg.Subs[i].EndMS-oldStart) * scale
		seg.Subs[i].StartMS = seg.Main.StartMS + int(relStart)
		seg.Subs[i].EndMS = seg.Main.StartMS + int(relEnd)
	}
}
