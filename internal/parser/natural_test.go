package parser

import (
	"testing"
	"time"

	"fedquery/internal/types"
)

func TestNaturalDefaultsToMemory(t *testing.T) {
	q, err := Parse("garbage")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if q.Kind != types.QueryMemory {
		t.Errorf("kind = %s, want memory default", q.Kind)
	}
	if len(q.SearchTerms) != 1 || q.SearchTerms[0] != "garbage" {
		t.Errorf("terms = %v, want [garbage]", q.SearchTerms)
	}
	if q.Temporal != nil {
		t.Errorf("temporal = %+v, want none", q.Temporal)
	}
}

func TestNaturalContentTypeMapping(t *testing.T) {
	tests := []struct {
		raw  string
		want types.QueryKind
	}{
		{"find the conversations about deployment", types.QueryChat},
		{"show me documents mentioning kubernetes", types.QueryDocument},
		{"what do we remember about caching", types.QueryMemory},
		{"find services related to billing", types.QueryMemory},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if q.Kind != tt.want {
				t.Errorf("kind = %s, want %s", q.Kind, tt.want)
			}
		})
	}
}

func TestNaturalRelationshipPromotesGraph(t *testing.T) {
	q, err := Parse("find services related to billing")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if q.TargetStores[0] != types.StoreGraph {
		t.Errorf("stores = %v, want graph first", q.TargetStores)
	}
}

func TestNaturalDropsStopAndIntentWords(t *testing.T) {
	q, err := Parse("please find all the notes about caching strategy")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, term := range q.SearchTerms {
		switch term {
		case "please", "find", "all", "the", "about":
			t.Errorf("stop word %q survived as a term", term)
		}
	}
	found := map[string]bool{}
	for _, term := range q.SearchTerms {
		found[term] = true
	}
	if !found["caching"] || !found["strategy"] {
		t.Errorf("terms = %v, want caching and strategy kept", q.SearchTerms)
	}
}

func TestNaturalTemporalPhrase(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pinNow(t, now)

	q, err := Parse("show documents changed last week")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if q.Temporal == nil || q.Temporal.Kind != types.TemporalLastWeek {
		t.Fatalf("temporal = %+v, want LAST_WEEK", q.Temporal)
	}
	if !q.Temporal.Start.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("start = %v, want now-7d", q.Temporal.Start)
	}
	for _, term := range q.SearchTerms {
		if term == "last_week" || term == "week" {
			t.Errorf("temporal token %q leaked into terms", term)
		}
	}
}

func TestNaturalQuotedPhraseSurvivesVerbatim(t *testing.T) {
	q, err := Parse(`find notes about "Connection Pool Exhaustion"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	found := false
	for _, term := range q.SearchTerms {
		if term == "Connection Pool Exhaustion" {
			found = true
		}
	}
	if !found {
		t.Errorf("terms = %v, want the quoted phrase kept with casing", q.SearchTerms)
	}
}

func TestNaturalIdentifierTokensKept(t *testing.T) {
	q, err := Parse("why does getUserData fail in auth_service")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	found := map[string]bool{}
	for _, term := range q.SearchTerms {
		found[term] = true
	}
	if !found["getUserData"] {
		t.Errorf("terms = %v, want camelCase identifier with original casing", q.SearchTerms)
	}
	if !found["auth_service"] {
		t.Errorf("terms = %v, want underscore identifier kept", q.SearchTerms)
	}
}

func TestNaturalContractionsExpanded(t *testing.T) {
	q, err := Parse("why doesn't the scheduler restart")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, term := range q.SearchTerms {
		if term == "doesn't" || term == "not" {
			t.Errorf("contraction handling leaked %q into terms", term)
		}
	}
}

func TestNaturalOnlyStopWordsIsNoTerms(t *testing.T) {
	_, err := Parse("show me all of it")
	pe, ok := err.(*types.ParseError)
	if !ok || pe.Code != types.ParseNoTerms {
		t.Fatalf("err = %v, want NO_TERMS", err)
	}
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		raw  string
		want Intent
	}{
		{"search for cache bugs", IntentSearch},
		{"show recent failures", IntentShow},
		{"analyze the outage", IntentAnalyze},
		{"how many incidents", IntentCount},
		{"the deployment pipeline", IntentRetrieve}, // default
	}
	for _, tt := range tests {
		if got := detectIntent(tt.raw); got != tt.want {
			t.Errorf("detectIntent(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
