// Package discovery infers, from a raw unlabelled bookmaker payload, where
// the event array lives and which fields carry participants and 1/X/2 prices.
// It is a pure function over the payload: its output is advisory and only
// becomes live configuration through an operator promotion step.
package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// Failure reasons returned to the discovery caller.
const (
	ReasonNotStructured = "not valid structured data"
	ReasonNoEvents      = "no event structure found"
	ReasonNoTeamFields  = "cannot identify team fields"
	ReasonNoOddsFields  = "cannot identify odds fields"
)

// Error is a structured discovery failure carrying up to three sample
// candidates (path + first element) to aid manual source configuration.
type Error struct {
	Reason     string
	Candidates []models.EventCandidate
}

func (e *Error) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("discovery failed: %s", e.Reason)
	}
	paths := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		paths = append(paths, c.Path)
	}
	return fmt.Sprintf("discovery failed: %s (candidates: %s)", e.Reason, strings.Join(paths, ", "))
}

// Key fragments used to classify participant fields. Team fields are never
// guessed positionally: misidentified teams silently corrupt downstream
// matching, so classification failure is a hard error.
var (
	homeKeyFragments = []string{"home", "team1", "local", "host"}
	awayKeyFragments = []string{"away", "team2", "visit", "guest"}
)

// Key fragments used to classify outcome price fields, tried per outcome in
// listed order. More specific fragments come first.
var outcomeKeyFragments = map[string][]string{
	models.OutcomeHome: {"odds1", "win1", "rate1", "home", "1"},
	models.OutcomeDraw: {"oddsx", "winx", "ratex", "draw", "tie", "x"},
	models.OutcomeAway: {"odds2", "win2", "rate2", "away", "2"},
}

// outcomeOrder fixes the assignment order for outcome classification.
var outcomeOrder = []string{models.OutcomeHome, models.OutcomeDraw, models.OutcomeAway}

const maxSampleCandidates = 3

// Discover inspects one JSON document and produces a mapping for it, or a
// structured *Error explaining why no event structure could be identified.
func Discover(payload []byte) (*models.DiscoveredMapping, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Reason: ReasonNotStructured}
	}

	var w walker
	w.walk(doc, "", 0)

	if len(w.candidates) == 0 {
		return nil, &Error{Reason: ReasonNoEvents, Candidates: samples(w.nearMisses)}
	}

	// Shallower candidates outrank deeper ones; discovery order breaks the
	// tie. The ordering is explicit rather than left to traversal order.
	sort.SliceStable(w.candidates, func(i, j int) bool {
		if w.candidates[i].depth != w.candidates[j].depth {
			return w.candidates[i].depth < w.candidates[j].depth
		}
		return w.candidates[i].order < w.candidates[j].order
	})

	winner := w.candidates[0]
	mapping, err := classify(winner)
	if err != nil {
		return nil, err
	}
	mapping.Alternates = samples(w.candidates[1:])
	return mapping, nil
}

// candidate is an array that passed the event-structure test.
type candidate struct {
	path     string
	depth    int
	order    int
	elements []map[string]any
}

func (c candidate) sample() models.EventCandidate {
	ec := models.EventCandidate{Path: c.path}
	if len(c.elements) > 0 {
		ec.Sample = c.elements[0]
	}
	return ec
}

func samples(cands []candidate) []models.EventCandidate {
	if len(cands) > maxSampleCandidates {
		cands = cands[:maxSampleCandidates]
	}
	out := make([]models.EventCandidate, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.sample())
	}
	return out
}

// walker recursively collects event candidates. nearMisses keeps arrays of
// objects that failed the test, reported as diagnostics when nothing passes.
type walker struct {
	candidates []candidate
	nearMisses []candidate
	order      int
}

func (w *walker) walk(v any, path string, depth int) {
	switch node := v.(type) {
	case map[string]any:
		for _, key := range sortedKeys(node) {
			w.walk(node[key], childPath(path, key), depth+1)
		}
	case []any:
		if elements, ok := objectElements(node); ok {
			c := candidate{path: path, depth: depth, order: w.order, elements: elements}
			w.order++
			if isEventArray(elements) {
				w.candidates = append(w.candidates, c)
			} else {
				w.nearMisses = append(w.nearMisses, c)
			}
		}
		for i, elem := range node {
			w.walk(elem, fmt.Sprintf("%s[%d]", path, i), depth+1)
		}
	}
}

// objectElements returns the object members of an array, or false when the
// array holds no objects at all.
func objectElements(arr []any) ([]map[string]any, bool) {
	var elements []map[string]any
	for _, e := range arr {
		if obj, ok := e.(map[string]any); ok {
			elements = append(elements, obj)
		}
	}
	return elements, len(elements) > 0
}

// isEventArray applies the event-structure test: a majority of the object
// elements must carry at least two name-like strings and two odds-like
// numbers.
func isEventArray(elements []map[string]any) bool {
	passing := 0
	for _, obj := range elements {
		names := 0
		for _, v := range obj {
			if s, ok := v.(string); ok && isNameLike(s) {
				names++
			}
		}
		if names >= 2 && countOdds(obj) >= 2 {
			passing++
		}
	}
	return passing*2 > len(elements)
}

// countOdds counts odds-like numbers in an object, descending into nested
// objects so that sources shipping prices one level down still qualify.
func countOdds(obj map[string]any) int {
	n := 0
	for _, v := range obj {
		if _, ok := oddsValue(v); ok {
			n++
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			n += countOdds(nested)
		}
	}
	return n
}

// isNameLike reports whether a string could be a participant name: length
// 2 to 80 and not purely numeric.
func isNameLike(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > 80 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// oddsValue extracts a number that looks like a decimal price.
func oddsValue(v any) (float64, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := num.Float64()
	if err != nil {
		return 0, false
	}
	if f < 1.01 || f > 100 {
		return 0, false
	}
	return f, true
}

// classify derives the field mapping from the winning candidate's first
// element.
func classify(c candidate) (*models.DiscoveredMapping, error) {
	first := c.elements[0]

	homeField, awayField, ok := classifyTeamFields(first)
	if !ok {
		return nil, &Error{Reason: ReasonNoTeamFields, Candidates: samples([]candidate{c})}
	}

	outcomes := classifyOutcomeFields(first)
	if len(outcomes) < 2 {
		// The array passed the event test on a majority of its elements,
		// but the first element itself exposes fewer than two odds-like
		// fields at any level.
		return nil, &Error{Reason: ReasonNoOddsFields, Candidates: samples([]candidate{c})}
	}

	confidence := models.ConfidenceMedium
	if len(outcomes) == len(outcomeOrder) {
		confidence = models.ConfidenceHigh
	}

	return &models.DiscoveredMapping{
		FieldMapping: models.FieldMapping{
			EventsPath:    c.path,
			HomeField:     homeField,
			AwayField:     awayField,
			OutcomeFields: outcomes,
		},
		Confidence: confidence,
	}, nil
}

// classifyTeamFields picks home and away among the name-like string fields by
// key fragment only.
func classifyTeamFields(obj map[string]any) (home, away string, ok bool) {
	var stringKeys []string
	for k, v := range obj {
		if s, isStr := v.(string); isStr && isNameLike(s) {
			stringKeys = append(stringKeys, k)
		}
	}
	sort.Strings(stringKeys)

	used := make(map[string]bool)
	home = matchFragment(stringKeys, homeKeyFragments, used)
	used[home] = true
	away = matchFragment(stringKeys, awayKeyFragments, used)
	if home == "" || away == "" {
		return "", "", false
	}
	return home, away, true
}

// classifyOutcomeFields assigns payload fields to 1/X/2. Fragment matching
// first; positional by sorted key when no fragment matches; a recursive
// search for a nested object holding the prices when the flat object has
// fewer than two.
func classifyOutcomeFields(obj map[string]any) map[string]string {
	keys, prefix := oddsKeys(obj, "")
	if len(keys) < 2 {
		keys, prefix = nestedOddsKeys(obj, "")
	}
	if len(keys) < 2 {
		return nil
	}
	sort.Strings(keys)

	assigned := make(map[string]string)
	used := make(map[string]bool)
	for _, outcome := range outcomeOrder {
		if key := matchFragment(keys, outcomeKeyFragments[outcome], used); key != "" {
			assigned[outcome] = prefix + key
			used[key] = true
		}
	}

	// Outcomes without a fragment match take the remaining keys
	// positionally, in sorted order. Odds fields may be guessed; only team
	// fields must never be.
	rest := keys[:0:0]
	for _, key := range keys {
		if !used[key] {
			rest = append(rest, key)
		}
	}
	for _, outcome := range outcomeOrder {
		if _, ok := assigned[outcome]; ok {
			continue
		}
		if len(rest) == 0 {
			break
		}
		assigned[outcome] = prefix + rest[0]
		rest = rest[1:]
	}
	return assigned
}

// oddsKeys lists the keys of obj whose values look like decimal odds.
func oddsKeys(obj map[string]any, prefix string) ([]string, string) {
	var keys []string
	for k, v := range obj {
		if _, ok := oddsValue(v); ok {
			keys = append(keys, k)
		}
	}
	return keys, prefix
}

// nestedOddsKeys searches the object depth-first (sorted keys, first hit
// wins) for a nested object holding at least two odds-like fields.
func nestedOddsKeys(obj map[string]any, prefix string) ([]string, string) {
	for _, k := range sortedKeys(obj) {
		nested, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		keys, _ := oddsKeys(nested, "")
		if len(keys) >= 2 {
			return keys, prefix + k + "."
		}
		if keys, p := nestedOddsKeys(nested, prefix+k+"."); len(keys) >= 2 {
			return keys, p
		}
	}
	return nil, ""
}

// matchFragment returns the first unused key (in slice order) containing any
// of the fragments.
func matchFragment(keys, fragments []string, used map[string]bool) string {
	for _, frag := range fragments {
		for _, key := range keys {
			if used[key] {
				continue
			}
			if strings.Contains(strings.ToLower(key), frag) {
				return key
			}
		}
	}
	return ""
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func childPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// LookupPath resolves a dot path against a decoded document. Segments may
// carry array indexes in the walker's `key[i]` form. An empty path returns
// the document itself. Shared with the normalizer so configured and
// discovered mappings address payloads identically.
func LookupPath(doc any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		name, indexes, ok := splitSegment(seg)
		if !ok {
			return nil, false
		}
		if name != "" {
			obj, objOK := cur.(map[string]any)
			if !objOK {
				return nil, false
			}
			cur, objOK = obj[name]
			if !objOK {
				return nil, false
			}
		}
		for _, idx := range indexes {
			arr, arrOK := cur.([]any)
			if !arrOK || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// splitSegment splits one path segment into its key name and any trailing
// bracketed indexes.
func splitSegment(seg string) (string, []int, bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, nil, true
	}
	name := seg[:open]
	var indexes []int
	for rest := seg[open:]; rest != ""; {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false
		}
		idx, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, idx)
		rest = rest[end+1:]
	}
	return name, indexes, true
}
