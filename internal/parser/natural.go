package parser

import (
	"regexp"
	"strings"
	"unicode"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// =============================================================================
// NATURAL-LANGUAGE FALLBACK
// =============================================================================

// Intent captures the verb-level reading of a natural-language query. It
// refines store selection but is not part of the semantic query itself.
type Intent string

const (
	IntentSearch   Intent = "search"
	IntentRetrieve Intent = "retrieve"
	IntentShow     Intent = "show"
	IntentAnalyze  Intent = "analyze"
	IntentCount    Intent = "count"
)

// contractions is the small expansion table applied before tokenizing.
var contractions = map[string]string{
	"don't":    "do not",
	"doesn't":  "does not",
	"didn't":   "did not",
	"can't":    "cannot",
	"won't":    "will not",
	"isn't":    "is not",
	"aren't":   "are not",
	"wasn't":   "was not",
	"couldn't": "could not",
	"i'm":      "i am",
	"it's":     "it is",
	"what's":   "what is",
	"that's":   "that is",
	"there's":  "there is",
	"i've":     "i have",
	"we've":    "we have",
}

var intentKeywords = map[Intent][]string{
	IntentSearch:   {"search", "find", "look", "locate"},
	IntentRetrieve: {"retrieve", "get", "fetch", "load"},
	IntentShow:     {"show", "display", "list"},
	IntentAnalyze:  {"analyze", "analyse", "examine", "explain", "why"},
	IntentCount:    {"count", "many"},
}

// contentTypeKeywords map query vocabulary onto a content type, which in
// turn maps onto a QueryKind: chat->CHAT, document->DOCUMENT, memory or
// unknown->MEMORY, relationship->MEMORY with graph priority.
var contentTypeKeywords = map[string][]string{
	"chat":         {"chat", "chats", "conversation", "conversations", "message", "messages", "discussed", "said", "talked"},
	"memory":       {"memory", "memories", "remember", "recall", "stored"},
	"document":     {"document", "documents", "doc", "docs", "file", "files", "readme", "notes"},
	"relationship": {"related", "connected", "relationship", "relationships", "linked", "links"},
}

// stopWords are dropped during term extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "not": true,
	"to": true, "of": true, "in": true, "for": true, "on": true,
	"with": true, "at": true, "by": true, "from": true, "as": true,
	"into": true, "about": true, "during": true, "before": true, "after": true,
	"and": true, "but": true, "or": true, "nor": true, "so": true,
	"if": true, "then": true, "else": true, "when": true, "where": true,
	"why": true, "how": true, "all": true, "any": true, "each": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "i": true, "you": true, "me": true, "my": true,
	"we": true, "our": true, "they": true, "them": true, "their": true,
	"what": true, "which": true, "who": true, "whom": true,
	"search": true, "find": true, "look": true, "locate": true,
	"retrieve": true, "get": true, "fetch": true, "load": true,
	"show": true, "display": true, "list": true, "please": true,
	"analyze": true, "analyse": true, "examine": true, "explain": true,
	"count": true, "many": true, "am": true, "can": true, "cannot": true,
}

var (
	quotedPattern    = regexp.MustCompile(`"([^"]+)"`)
	camelCasePattern = regexp.MustCompile(`[a-z][A-Z]`)
)

// parseNatural performs the lightweight NLP path for unstructured input.
func parseNatural(trimmed, original string) (*types.SemanticQuery, error) {
	// Quoted phrases survive verbatim, before lowercasing mangles them.
	var quoted []string
	for _, m := range quotedPattern.FindAllStringSubmatch(trimmed, -1) {
		quoted = append(quoted, m[1])
	}
	stripped := quotedPattern.ReplaceAllString(trimmed, " ")

	lower := strings.ToLower(stripped)
	for from, to := range contractions {
		lower = strings.ReplaceAll(lower, from, to)
	}
	// Multi-word temporal expressions become single keywords.
	lower = strings.ReplaceAll(lower, "last week", "last_week")
	lower = strings.ReplaceAll(lower, "last month", "last_month")

	intent := detectIntent(lower)
	contentType := detectContentType(lower)

	kind := types.QueryMemory
	switch contentType {
	case "chat":
		kind = types.QueryChat
	case "document":
		kind = types.QueryDocument
	}

	var temporal *types.TemporalRange
	var terms []string
	for _, tok := range tokenize(lower) {
		if tkind, ok := temporalKeyword(tok); ok {
			if temporal == nil {
				temporal = Resolve(tkind, nowUTC())
			}
			continue
		}
		if !keepToken(tok) {
			continue
		}
		terms = appendUnique(terms, tok)
	}
	// Preserve the original casing of tokens that survive as-is from the
	// raw input (identifiers, camelCase names).
	for _, tok := range strings.Fields(stripped) {
		clean := strings.Trim(tok, ".,!?;:")
		if camelCasePattern.MatchString(clean) || strings.Contains(clean, "_") {
			terms = replaceFold(terms, clean)
		}
	}
	for _, q := range quoted {
		terms = appendUnique(terms, q)
	}

	if len(terms) == 0 {
		return nil, &types.ParseError{Code: types.ParseNoTerms, Raw: original}
	}

	stores := proposeStores(kind, terms)
	if contentType == "relationship" {
		stores = promoteStore(stores, types.StoreGraph)
	}

	q := &types.SemanticQuery{
		Kind:         kind,
		SearchTerms:  terms,
		Temporal:     temporal,
		TargetStores: stores,
		Original:     original,
	}
	logging.ParserDebug("natural parse: intent=%s contentType=%s kind=%s terms=%v",
		intent, contentType, kind, terms)
	return q, nil
}

func detectIntent(lower string) Intent {
	for _, intent := range []Intent{IntentSearch, IntentShow, IntentAnalyze, IntentCount, IntentRetrieve} {
		for _, kw := range intentKeywords[intent] {
			if containsWord(lower, kw) {
				return intent
			}
		}
	}
	return IntentRetrieve
}

func detectContentType(lower string) string {
	for _, ct := range []string{"chat", "document", "relationship", "memory"} {
		for _, kw := range contentTypeKeywords[ct] {
			if containsWord(lower, kw) {
				return ct
			}
		}
	}
	return ""
}

func containsWord(text, word string) bool {
	for _, tok := range tokenize(text) {
		if strings.Trim(tok, ".,!?;:") == word {
			return true
		}
	}
	return false
}

// keepToken keeps tokens of length >= 3 that are not stop words, plus
// identifier-looking tokens of any length.
func keepToken(tok string) bool {
	tok = strings.Trim(tok, ".,!?;:")
	if tok == "" {
		return false
	}
	if strings.Contains(tok, "_") {
		return true
	}
	if camelCasePattern.MatchString(tok) {
		return true
	}
	if len(tok) < 3 {
		return false
	}
	if stopWords[tok] {
		return false
	}
	// Pure punctuation never qualifies.
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '*' || r == '.' || r == '-' {
			return true
		}
	}
	return false
}

// replaceFold swaps a case-folded match in terms for its original form,
// appending when no match exists.
func replaceFold(terms []string, original string) []string {
	lower := strings.ToLower(original)
	for i, t := range terms {
		if strings.ToLower(t) == lower {
			terms[i] = original
			return terms
		}
	}
	return append(terms, original)
}
