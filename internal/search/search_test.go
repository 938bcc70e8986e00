package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ibakit/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Analog: []catalog.Signal{
			{ID: "A1", Name: "Speed", Group: "Drive", Kind: catalog.KindAnalog},
			{ID: "A2", Name: "SpeedSetpoint", Group: "Drive", Kind: catalog.KindAnalog},
			{ID: "A3", Name: "OilTemp", Group: "Hydraulics", Kind: catalog.KindAnalog},
		},
		Digital: []catalog.Signal{
			{ID: "D1", Name: "SpeedOK", Group: "Drive", Kind: catalog.KindDigital},
			{ID: "D2", Name: "PumpRunning", Group: "Hydraulics", Kind: catalog.KindDigital},
		},
		Text: []catalog.Signal{
			{ID: "T1", Name: "speed_note", Group: "", Kind: catalog.KindText},
		},
	}
}

func ids(signals []catalog.Signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.ID
	}
	return out
}

func TestRun_GlobWildcard(t *testing.T) {
	got := Run(testCatalog(), "*Speed*")
	require.Equal(t, []string{"A1", "A2", "D1"}, ids(got))
}

func TestRun_GlobIsCaseSensitive(t *testing.T) {
	// "speed_note" does not match the capitalized glob; the glob branch
	// must not fall back to the case-insensitive strategies.
	got := Run(testCatalog(), "*Speed*")
	require.NotContains(t, ids(got), "T1")

	got = Run(testCatalog(), "*speed*")
	require.Equal(t, []string{"T1"}, ids(got))
}

func TestRun_GlobQuestionMark(t *testing.T) {
	got := Run(testCatalog(), "Speed??")
	require.Equal(t, []string{"D1"}, ids(got))
}

func TestRun_GlobWinsOverValidRegex(t *testing.T) {
	// "Speed*" is also a valid regexp ("Spee" followed by zero or more
	// "d"), which would match every Speed signal case-insensitively. Glob
	// semantics require the name to start with "Speed".
	got := Run(testCatalog(), "Speed*")
	require.Equal(t, []string{"A1", "A2", "D1"}, ids(got))
}

func TestRun_RegexContains(t *testing.T) {
	got := Run(testCatalog(), "spe")
	require.Equal(t, []string{"A1", "A2", "D1", "T1"}, ids(got))
}

func TestRun_RegexAlternation(t *testing.T) {
	got := Run(testCatalog(), "oiltemp|pump")
	require.Equal(t, []string{"A3", "D2"}, ids(got))
}

func TestRun_InvalidRegexFallsBackToSubstring(t *testing.T) {
	cat := &catalog.Catalog{
		Analog: []catalog.Signal{
			{ID: "A1", Name: "Pressure[bar]", Kind: catalog.KindAnalog},
			{ID: "A2", Name: "Pressure[psi]", Kind: catalog.KindAnalog},
		},
	}

	// "[bar" is not a valid regexp and contains no wildcard, so it must
	// degrade to case-insensitive substring containment, not error.
	got := Run(cat, "[bar")
	require.Equal(t, []string{"A1"}, ids(got))

	got = Run(cat, "PRESSURE[")
	require.Equal(t, []string{"A1", "A2"}, ids(got))
}

func TestRun_MalformedGlobMatchesNothing(t *testing.T) {
	// Contains a wildcard so the glob branch is selected, but the
	// character class never closes.
	got := Run(testCatalog(), "Speed*[")
	require.Empty(t, got)
}

func TestRun_Idempotent(t *testing.T) {
	cat := testCatalog()
	first := Run(cat, "Speed*")
	second := Run(cat, "Speed*")
	require.Equal(t, first, second)
}

func TestRun_ResultsKeepCatalogOrder(t *testing.T) {
	got := Run(testCatalog(), "e")
	// Analog block first, then digital, then text, each in decoder order.
	require.Equal(t, []string{"A1", "A2", "A3", "D1", "T1"}, ids(got))
}

func TestRun_NilCatalog(t *testing.T) {
	require.Nil(t, Run(nil, "anything"))
}

func TestRun_NoMatches(t *testing.T) {
	require.Empty(t, Run(testCatalog(), "zzz"))
}
