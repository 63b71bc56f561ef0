package taskimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	anaSilva := member.New("Ana Silva", "")
	anaCosta := member.New("Ana Costa", "")
	roster := []member.Member{anaSilva, anaCosta}

	t.Run("bare shared first name is ambiguous", func(t *testing.T) {
		res := Resolve("ana", roster)
		assert.Equal(t, ConfidenceLow, res.Confidence)
		assert.Nil(t, res.Member)
		assert.Len(t, res.Candidates, 2)
		assert.True(t, res.Ambiguous())
	})

	t.Run("full name is exact", func(t *testing.T) {
		res := Resolve("Ana Silva", roster)
		require.True(t, res.Matched())
		assert.Equal(t, ConfidenceExact, res.Confidence)
		assert.Equal(t, anaSilva.ID, res.Member.ID)
	})

	t.Run("unique last name is medium", func(t *testing.T) {
		res := Resolve("silva", roster)
		require.True(t, res.Matched())
		assert.Equal(t, ConfidenceMedium, res.Confidence)
		assert.Equal(t, anaSilva.ID, res.Member.ID)
	})

	t.Run("unknown name", func(t *testing.T) {
		res := Resolve("zeca", roster)
		assert.Equal(t, ConfidenceNone, res.Confidence)
		assert.False(t, res.Matched())
		assert.Empty(t, res.Candidates)
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Equal(t, ConfidenceNone, Resolve("  ", roster).Confidence)
	})
}

func TestResolve_Strategies(t *testing.T) {
	t.Parallel()

	jose := member.New("José Carlos da Silva", "Zeca")
	maria := member.New("Maria Souza", "Mari")
	joao := member.New("João Souza", "")
	roster := []member.Member{jose, maria, joao}

	cases := []struct {
		name       string
		search     string
		confidence Confidence
		want       *member.Member
	}{
		{name: "exact ignores case and accents", search: "jose carlos DA SILVA", confidence: ConfidenceExact, want: &jose},
		{name: "first and last name", search: "José Silva", confidence: ConfidenceHigh, want: &jose},
		{name: "nickname", search: "zeca", confidence: ConfidenceHigh, want: &jose},
		{name: "unique first name", search: "maria", confidence: ConfidenceMedium, want: &maria},
		{name: "shared last name", search: "souza", confidence: ConfidenceLow},
		{name: "partial nickname", search: "marianne", confidence: ConfidenceMedium, want: &maria},
		{name: "nickname contains search", search: "zec", confidence: ConfidenceMedium, want: &jose},
		{name: "no match", search: "pedro", confidence: ConfidenceNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(tc.search, roster)
			assert.Equal(t, tc.confidence, res.Confidence)
			if tc.want == nil {
				assert.Nil(t, res.Member)
				return
			}
			require.NotNil(t, res.Member)
			assert.Equal(t, tc.want.ID, res.Member.ID)
		})
	}
}

func TestResolve_NicknameBeatsFirstName(t *testing.T) {
	t.Parallel()

	bruno := member.New("Bruno Lima", "bruno")
	res := Resolve("Bruno", []member.Member{bruno})
	require.True(t, res.Matched())
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestResolver_ResolveAll(t *testing.T) {
	t.Parallel()

	illian := member.New("Illian Souza", "")
	natan := member.New("Natan Reis", "")
	ana1 := member.New("Ana Silva", "")
	ana2 := member.New("Ana Costa", "")
	r := NewResolver([]member.Member{illian, natan, ana1, ana2})

	out := r.ResolveAll([]string{"illian", "natan", "Illian Souza", "ana", "ghost"})
	require.Len(t, out.Matched, 2)
	assert.Equal(t, illian.ID, out.Matched[0].ID)
	assert.Equal(t, natan.ID, out.Matched[1].ID)
	assert.Equal(t, []string{"ghost"}, out.Unmatched)
	require.Len(t, out.Ambiguous, 1)
	assert.Equal(t, "ana", out.Ambiguous[0].Name)
	assert.Len(t, out.Ambiguous[0].Candidates, 2)
}

func TestResolver_Suggest(t *testing.T) {
	t.Parallel()

	r := NewResolver([]member.Member{
		member.New("Natan Reis", ""),
		member.New("Illian Souza", ""),
		member.New("Bruno Lima", ""),
	})

	got := r.Suggest("ilian", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "Illian Souza", got[0])

	assert.Nil(t, r.Suggest("", 3))
	assert.Nil(t, r.Suggest("bruno", 0))
	assert.Empty(t, r.Suggest("xyz", 3))
}
