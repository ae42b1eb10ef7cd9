package broker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/felt"
)

func TestKeyPatternWildcardMatchesAnyValue(t *testing.T) {
	p := KeyPattern{Keys: []felt.Felt{felt.Zero, felt.MustFromHex("0x2")}}
	require.True(t, p.Match([]felt.Felt{felt.MustFromHex("0x1"), felt.MustFromHex("0x2")}))
	require.True(t, p.Match([]felt.Felt{felt.MustFromHex("0x999"), felt.MustFromHex("0x2")}))
}

func TestKeyPatternRejectsMismatchedNonWildcard(t *testing.T) {
	p := KeyPattern{Keys: []felt.Felt{felt.MustFromHex("0x1")}}
	require.False(t, p.Match([]felt.Felt{felt.MustFromHex("0x2")}))
}

func TestKeyPatternRejectsShorterKeyList(t *testing.T) {
	p := KeyPattern{Keys: []felt.Felt{felt.MustFromHex("0x1"), felt.MustFromHex("0x2")}}
	require.False(t, p.Match([]felt.Felt{felt.MustFromHex("0x1")}))
}

func TestKeyPatternIgnoresTrailingKeys(t *testing.T) {
	p := KeyPattern{Keys: []felt.Felt{felt.MustFromHex("0x1")}}
	require.True(t, p.Match([]felt.Felt{felt.MustFromHex("0x1"), felt.MustFromHex("0x2"), felt.MustFromHex("0x3")}))
}

func TestNilEntityFilterAcceptsEverything(t *testing.T) {
	require.True(t, matchEntity(felt.MustFromHex("0x1"), nil, "Position", nil))
}

func TestEntityFilterIsOrOfClauses(t *testing.T) {
	id := felt.MustFromHex("0xabc")
	filter := &EntityFilter{Clauses: []EntityClause{
		{ModelNames: []string{"Health"}},
		{HashedIDs: []felt.Felt{id}},
	}}
	require.True(t, matchEntity(id, nil, "Position", filter), "second clause matches on id alone")
	require.False(t, matchEntity(felt.MustFromHex("0xdead"), nil, "Position", filter))
}

func TestEntityClauseRequiresEveryDeclaredRestriction(t *testing.T) {
	id := felt.MustFromHex("0xabc")
	clause := EntityClause{HashedIDs: []felt.Felt{id}, ModelNames: []string{"Health"}}
	filter := &EntityFilter{Clauses: []EntityClause{clause}}
	require.False(t, matchEntity(id, nil, "Position", filter), "id matches but model does not")
	require.True(t, matchEntity(id, nil, "Health", filter))
}

func TestNilEventFilterAcceptsEverything(t *testing.T) {
	require.True(t, matchEvent([]felt.Felt{felt.MustFromHex("0x1")}, nil))
}

func TestEventFilterMatchesAnyPattern(t *testing.T) {
	filter := &EventFilter{Patterns: []KeyPattern{
		{Keys: []felt.Felt{felt.MustFromHex("0x1")}},
		{Keys: []felt.Felt{felt.MustFromHex("0x2")}},
	}}
	require.True(t, matchEvent([]felt.Felt{felt.MustFromHex("0x2")}, filter))
	require.False(t, matchEvent([]felt.Felt{felt.MustFromHex("0x3")}, filter))
}
