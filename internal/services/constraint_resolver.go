package services

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/SAP-F-2025/randomization-service/internal/models"
)

// defaultApartDistance applies when an apart rule omits min_distance:
// adjacency is forbidden, anything further is fine.
const defaultApartDistance = 2

// AnchoredQuestion pins a question to a fixed output position. Anchors are
// strategy-agnostic: the engine extracts them before ordering and the
// resolver reinserts them afterwards.
type AnchoredQuestion struct {
	Question models.Question
	Position int
}

// RuleResult records whether one blocking rule could be honored.
type RuleResult struct {
	Rule      models.BlockingRule
	Satisfied bool
	Reason    string
}

// ConstraintReport names the satisfied and unsatisfied rules of one
// resolution pass. Unsatisfiable constraints are best-effort by design; the
// report exists so callers can see partial failure instead of having it
// hidden.
type ConstraintReport struct {
	Results []RuleResult
}

// Unsatisfied returns the rules that could not be honored.
func (r *ConstraintReport) Unsatisfied() []RuleResult {
	var out []RuleResult
	for _, result := range r.Results {
		if !result.Satisfied {
			out = append(out, result)
		}
	}
	return out
}

// ConstraintResolver applies anchor positions and together/apart blocking
// rules to an already-ordered sequence.
type ConstraintResolver struct {
	logger *slog.Logger
}

func NewConstraintResolver(logger *slog.Logger) *ConstraintResolver {
	return &ConstraintResolver{logger: logger}
}

// Apply reinserts anchors, then applies blocking rules in list order. Rules
// are not globally reconciled: a later rule may perturb an earlier placement.
func (r *ConstraintResolver) Apply(questions []models.Question, anchors []AnchoredQuestion, rules []models.BlockingRule) ([]models.Question, *ConstraintReport) {
	sequence := make([]models.Question, len(questions))
	copy(sequence, questions)

	sequence = insertAnchors(sequence, anchors)

	report := &ConstraintReport{}
	for _, rule := range rules {
		var result RuleResult
		switch rule.Type {
		case models.BlockTogether:
			sequence, result = r.applyTogether(sequence, rule)
		case models.BlockApart:
			sequence, result = r.applyApart(sequence, rule)
		default:
			result = RuleResult{Rule: rule, Satisfied: false, Reason: fmt.Sprintf("unknown rule type %q", rule.Type)}
			r.logger.Warn("skipping blocking rule with unknown type", "type", rule.Type)
		}
		report.Results = append(report.Results, result)
	}

	return sequence, report
}

// insertAnchors places anchored questions at their target positions, earlier
// targets first, clamping out-of-range targets to the end.
func insertAnchors(sequence []models.Question, anchors []AnchoredQuestion) []models.Question {
	ordered := make([]AnchoredQuestion, len(anchors))
	copy(ordered, anchors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	for _, anchor := range ordered {
		pos := anchor.Position
		if pos > len(sequence) {
			pos = len(sequence)
		}
		if pos < 0 {
			pos = 0
		}
		sequence = append(sequence, models.Question{})
		copy(sequence[pos+1:], sequence[pos:])
		sequence[pos] = anchor.Question
	}
	return sequence
}

// applyTogether extracts the rule's questions in their relative order and
// reinserts them as one contiguous block at a random position.
func (r *ConstraintResolver) applyTogether(sequence []models.Question, rule models.BlockingRule) ([]models.Question, RuleResult) {
	flagged := idSet(rule.QuestionIDs)

	var block, remaining []models.Question
	for _, q := range sequence {
		if flagged[q.ID] {
			block = append(block, q)
		} else {
			remaining = append(remaining, q)
		}
	}

	if len(block) < 2 {
		// Nothing to group; rule is trivially satisfied.
		return sequence, RuleResult{Rule: rule, Satisfied: true}
	}

	insertAt := rand.Intn(len(remaining) + 1)
	result := make([]models.Question, 0, len(sequence))
	result = append(result, remaining[:insertAt]...)
	result = append(result, block...)
	result = append(result, remaining[insertAt:]...)

	return result, RuleResult{Rule: rule, Satisfied: true}
}

// applyApart moves rule-flagged questions so every flagged pair sits at least
// MinDistance apart. A question with no valid position is left in place and
// the rule is reported unsatisfied.
func (r *ConstraintResolver) applyApart(sequence []models.Question, rule models.BlockingRule) ([]models.Question, RuleResult) {
	minDistance := rule.MinDistance
	if minDistance <= 0 {
		minDistance = defaultApartDistance
	}

	flagged := idSet(rule.QuestionIDs)

	for _, id := range rule.QuestionIDs {
		current := indexOfQuestion(sequence, id)
		if current < 0 {
			continue
		}

		if apartSatisfiedAt(sequence, flagged, id, current, minDistance) {
			continue
		}

		target := closestValidPosition(sequence, flagged, id, current, minDistance)
		if target < 0 {
			r.logger.Warn("no valid position satisfies apart rule, leaving question in place",
				"question_id", id,
				"min_distance", minDistance)
			continue
		}

		sequence = moveQuestion(sequence, current, target)
	}

	if ok, reason := apartSatisfied(sequence, flagged, minDistance); !ok {
		r.logger.Warn("apart rule left unsatisfied", "reason", reason)
		return sequence, RuleResult{Rule: rule, Satisfied: false, Reason: reason}
	}
	return sequence, RuleResult{Rule: rule, Satisfied: true}
}

// apartSatisfiedAt checks the distance from position pos to every other
// flagged question.
func apartSatisfiedAt(sequence []models.Question, flagged map[string]bool, id string, pos, minDistance int) bool {
	for idx, q := range sequence {
		if !flagged[q.ID] || q.ID == id {
			continue
		}
		if abs(pos-idx) < minDistance {
			return false
		}
	}
	return true
}

// closestValidPosition scans every position and returns the valid one closest
// to current, ties broken by the smaller index. Returns -1 when none exists.
func closestValidPosition(sequence []models.Question, flagged map[string]bool, id string, current, minDistance int) int {
	best := -1
	bestDist := 0
	for pos := 0; pos < len(sequence); pos++ {
		if !apartSatisfiedAt(sequence, flagged, id, pos, minDistance) {
			continue
		}
		dist := abs(pos - current)
		if best < 0 || dist < bestDist {
			best = pos
			bestDist = dist
		}
	}
	return best
}

func apartSatisfied(sequence []models.Question, flagged map[string]bool, minDistance int) (bool, string) {
	var positions []int
	for idx, q := range sequence {
		if flagged[q.ID] {
			positions = append(positions, idx)
		}
	}
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			if abs(positions[i]-positions[j]) < minDistance {
				return false, fmt.Sprintf("questions %s and %s are %d apart, need %d",
					sequence[positions[i]].ID, sequence[positions[j]].ID,
					abs(positions[i]-positions[j]), minDistance)
			}
		}
	}
	return true, ""
}

func moveQuestion(sequence []models.Question, from, to int) []models.Question {
	q := sequence[from]
	sequence = append(sequence[:from], sequence[from+1:]...)
	if to > len(sequence) {
		to = len(sequence)
	}
	sequence = append(sequence, models.Question{})
	copy(sequence[to+1:], sequence[to:])
	sequence[to] = q
	return sequence
}

func indexOfQuestion(sequence []models.Question, id string) int {
	for idx, q := range sequence {
		if q.ID == id {
			return idx
		}
	}
	return -1
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
