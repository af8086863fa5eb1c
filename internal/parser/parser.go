// Package parser turns raw query strings into SemanticQuery values. Two
// grammars are accepted: the structured kind%terms[%trailer] form, and a
// lightweight natural-language fallback for everything else.
package parser

import (
	"strings"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// Parse converts a raw query string into a SemanticQuery. Structured
// queries (containing '%') are parsed strictly; anything else non-empty
// goes through the natural-language fallback.
func Parse(raw string) (*types.SemanticQuery, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &types.ParseError{Code: types.ParseEmpty, Raw: raw}
	}
	if strings.Contains(trimmed, "%") {
		return parseStructured(trimmed, raw)
	}
	return parseNatural(trimmed, raw)
}

// parseStructured handles kind%part[%part]* with an optional temporal
// keyword in the trailer slot.
func parseStructured(trimmed, original string) (*types.SemanticQuery, error) {
	parts := strings.Split(trimmed, "%")

	kind, ok := types.ParseQueryKind(parts[0])
	if !ok {
		return nil, &types.ParseError{Code: types.ParseUnknownKind, Raw: original}
	}

	body := parts[1:]
	var terms []string
	var topics []string
	var temporal *types.TemporalRange

	for i, part := range body {
		isTrailer := i == len(body)-1
		for _, tok := range tokenize(part) {
			if isTrailer {
				// Temporal keywords collapse into the temporal field only
				// in the trailer slot; elsewhere they are ordinary terms.
				if tkind, ok := temporalKeyword(tok); ok {
					if temporal == nil {
						temporal = Resolve(tkind, nowUTC())
					}
					// Extra temporal tokens in the trailer degrade silently.
					continue
				}
			}
			if topic, ok := strings.CutPrefix(tok, "#"); ok && topic != "" {
				topics = appendUnique(topics, topic)
				continue
			}
			terms = appendUnique(terms, tok)
		}
	}

	if len(terms) == 0 {
		return nil, &types.ParseError{Code: types.ParseNoTerms, Raw: original}
	}

	q := &types.SemanticQuery{
		Kind:         kind,
		SearchTerms:  terms,
		Temporal:     temporal,
		TopicFilters: topics,
		TargetStores: proposeStores(kind, terms),
		Original:     original,
	}
	logging.ParserDebug("structured parse: kind=%s terms=%d temporal=%v stores=%v",
		q.Kind, len(q.SearchTerms), q.Temporal != nil, q.TargetStores)
	return q, nil
}

// tokenize splits a query part on whitespace and commas.
func tokenize(part string) []string {
	return strings.FieldsFunc(part, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '\n'
	})
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// graphHintKeywords route queries about connectedness to the graph store.
var graphHintKeywords = map[string]bool{
	"related": true, "connected": true, "relationship": true,
	"relationships": true, "linked": true, "depends": true,
}

// proposeStores is the parser's hint; the planner may add, remove or
// reorder.
func proposeStores(kind types.QueryKind, terms []string) []types.StoreKind {
	var stores []types.StoreKind
	switch kind {
	case types.QueryChat:
		stores = []types.StoreKind{types.StoreRelational, types.StoreKV}
	case types.QueryDocument:
		stores = []types.StoreKind{
			types.StoreFilesystem, types.StoreVector,
			types.StoreRelational, types.StoreGraph, types.StoreKV,
		}
	default: // MEMORY
		stores = []types.StoreKind{
			types.StoreVector, types.StoreRelational,
			types.StoreFilesystem, types.StoreGraph, types.StoreKV,
		}
	}

	for _, term := range terms {
		if graphHintKeywords[strings.ToLower(term)] {
			stores = promoteStore(stores, types.StoreGraph)
			break
		}
	}
	return stores
}

// promoteStore moves kind to the front, adding it if absent.
func promoteStore(stores []types.StoreKind, kind types.StoreKind) []types.StoreKind {
	out := []types.StoreKind{kind}
	for _, s := range stores {
		if s != kind {
			out = append(out, s)
		}
	}
	return out
}

// Format renders a SemanticQuery back into the structured grammar. Only
// the structured subset is expressible: Parse(Format(q)) == q for queries
// whose temporal (if any) is keyword-derived.
func Format(q *types.SemanticQuery) string {
	var sb strings.Builder
	sb.WriteString(string(q.Kind))
	sb.WriteByte('%')

	tokens := append([]string(nil), q.SearchTerms...)
	for _, topic := range q.TopicFilters {
		tokens = append(tokens, "#"+topic)
	}
	sb.WriteString(strings.Join(tokens, " "))

	if q.Temporal != nil && q.Temporal.Kind != types.TemporalCustom {
		sb.WriteByte('%')
		sb.WriteString(string(q.Temporal.Kind))
	}
	return sb.String()
}
