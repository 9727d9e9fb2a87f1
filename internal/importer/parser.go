// Package importer turns batch-import answer-key text into question specs.
//
// Each non-empty line is one question group. A line may start with a
// "<points> | " prefix that sets the default points for that line and every
// following line of the same call. The remainder is matched against the
// grammars below, first match wins:
//
//	1-5: A B C D A 6-10: √ × √ √ ×     range list
//	1.A | 2.B | 3.对                    numbered list, one or more "|"-separated items
//	1-5 B (3分)                         legacy range, one shared answer
//	16. B (5分)                         legacy single
//
// Lines matching nothing are skipped.
package importer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/examhall/examhall/internal/model"
)

const (
	defaultChoicePoints = 2
	defaultShortPoints  = 4

	// maxLegacySpan bounds "start-end token" ranges so a typo such as
	// "1-1000000 A" does not create a million questions.
	maxLegacySpan = 500
)

var (
	pointsPrefixRe = regexp.MustCompile(`^(\d+)\s*\|\s*`)
	rangeHeaderRe  = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*[:：]`)
	numberedRe     = regexp.MustCompile(`^(\d+)\.([^|]+)$`)
	legacyRangeRe  = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)\s+(\S+)(?:\s+[(（](\d+)分[)）])?`)
	legacySingleRe = regexp.MustCompile(`^(\d+)\.?\s+(\S+)(?:\s+[(（](\d+)分[)）])?`)
	choiceRe       = regexp.MustCompile(`^[A-F]{1,4}$`)
	pointsSuffixRe = regexp.MustCompile(`\s*[(（](\d+)分[)）]$`)

	tfReplacer = strings.NewReplacer("对", "√", "错", "×")
)

// entry is one answer token recognised on a line, with its explicit
// "(N分)" points when the grammar carries them.
type entry struct {
	token  string
	points *int
}

// grammar recognises one line shape.
type grammar func(line string) ([]entry, bool)

// grammars in priority order. The points prefix is stripped before these run.
var grammars = []grammar{
	matchRangeList,
	matchNumberedList,
	matchLegacyRange,
	matchLegacySingle,
}

// accumulator is the state carried from one line to the next.
type accumulator struct {
	nextOrder     int
	defaultPoints *int
}

// Parse converts text into question specs. Orders continue after existing,
// the number of questions the exam already has. The result is empty when no
// line is recognised.
func Parse(text string, existing int) []model.QuestionSpec {
	var specs []model.QuestionSpec
	acc := accumulator{nextOrder: existing + 1}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line, acc = stripPointsPrefix(line, acc)
		entries, ok := matchLine(line)
		if !ok {
			continue
		}
		for _, e := range entries {
			var spec model.QuestionSpec
			spec, acc = acc.build(e)
			specs = append(specs, spec)
		}
	}
	return specs
}

func matchLine(line string) ([]entry, bool) {
	if line == "" {
		return nil, false
	}
	for _, g := range grammars {
		if entries, ok := g(line); ok {
			return entries, true
		}
	}
	return nil, false
}

func stripPointsPrefix(line string, acc accumulator) (string, accumulator) {
	m := pointsPrefixRe.FindStringSubmatch(line)
	if m == nil {
		return line, acc
	}
	p, err := strconv.Atoi(m[1])
	if err != nil {
		return line, acc
	}
	acc.defaultPoints = &p
	return strings.TrimSpace(line[len(m[0]):]), acc
}

func (acc accumulator) build(e entry) (model.QuestionSpec, accumulator) {
	typ, answer := Classify(e.token)
	points := defaultChoicePoints
	if typ == model.ShortAnswer {
		points = defaultShortPoints
	}
	if acc.defaultPoints != nil {
		points = *acc.defaultPoints
	}
	if e.points != nil {
		points = *e.points
	}
	spec := model.QuestionSpec{
		Order:         acc.nextOrder,
		Type:          typ,
		Points:        points,
		CorrectAnswer: &answer,
	}
	acc.nextOrder++
	return spec, acc
}

// Classify infers a question type from the shape of an answer token and
// returns the answer key to store. Choice and true/false keys are
// normalised; short-answer keys keep the token as written.
func Classify(token string) (model.QuestionType, string) {
	raw := strings.TrimSpace(token)
	norm := tfReplacer.Replace(strings.ToUpper(raw))
	switch {
	case norm == "√" || norm == "×":
		return model.TrueFalse, norm
	case choiceRe.MatchString(norm):
		if len(norm) == 1 {
			return model.SingleChoice, norm
		}
		return model.MultipleChoice, norm
	default:
		return model.ShortAnswer, raw
	}
}

// matchRangeList handles "1-5: A B C D A 6-10: ...". Each segment fills at
// most end-start+1 questions from its tokens.
func matchRangeList(line string) ([]entry, bool) {
	locs := rangeHeaderRe.FindAllStringSubmatchIndex(line, -1)
	if len(locs) == 0 || locs[0][0] != 0 {
		return nil, false
	}
	var entries []entry
	for i, loc := range locs {
		start, _ := strconv.Atoi(line[loc[2]:loc[3]])
		end, _ := strconv.Atoi(line[loc[4]:loc[5]])
		bodyEnd := len(line)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		span := end - start + 1
		if span <= 0 {
			continue
		}
		tokens := strings.Fields(line[loc[1]:bodyEnd])
		if len(tokens) > span {
			tokens = tokens[:span]
		}
		for _, tok := range tokens {
			entries = append(entries, entry{token: tok})
		}
	}
	return entries, len(entries) > 0
}

// matchNumberedList handles "1.A | 2.B | 3.√" and a lone "16.B (5分)".
// Segments that are not "<n>.<text>" are ignored.
func matchNumberedList(line string) ([]entry, bool) {
	var entries []entry
	for _, seg := range strings.Split(line, "|") {
		m := numberedRe.FindStringSubmatch(strings.TrimSpace(seg))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		var points *int
		if pm := pointsSuffixRe.FindStringSubmatchIndex(text); pm != nil {
			points = explicitPoints(text[pm[2]:pm[3]])
			text = strings.TrimSpace(text[:pm[0]])
		}
		if text == "" {
			continue
		}
		entries = append(entries, entry{token: text, points: points})
	}
	return entries, len(entries) > 0
}

// matchLegacyRange handles "1-5 B (3分)": one answer shared by every
// question in the range.
func matchLegacyRange(line string) ([]entry, bool) {
	m := legacyRangeRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	span := end - start + 1
	if span <= 0 || span > maxLegacySpan {
		return nil, false
	}
	points := explicitPoints(m[4])
	entries := make([]entry, span)
	for i := range entries {
		entries[i] = entry{token: m[3], points: points}
	}
	return entries, true
}

// matchLegacySingle handles "16. B (5分)" and "16 B".
func matchLegacySingle(line string) ([]entry, bool) {
	m := legacySingleRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return []entry{{token: m[2], points: explicitPoints(m[3])}}, true
}

func explicitPoints(s string) *int {
	if s == "" {
		return nil
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &p
}
