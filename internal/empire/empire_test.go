package empire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const designs = `"United Nations of Earth"={
	key="United Nations of Earth"
	ethic="ethic_egalitarian"
	ethic="ethic_xenophile"
	civics={
		"civic_beacon_of_liberty"
		"civic_idealistic_foundation"
	}
	ruler={
		name="Kasim Okonkwo"
	}
}
"Tzynn Empire"={
	key="Tzynn Empire"
	ethic="ethic_fanatic_militarist"
	ethic="ethic_authoritarian"
	civics={ "civic_police_state" }
}
`

func collect(text string) []Span {
	var spans []Span
	for s := range Scan(text) {
		spans = append(spans, s)
	}
	return spans
}

func TestScan(t *testing.T) {
	t.Run("nested blocks", func(t *testing.T) {
		text := "a={x={}}b={}"
		assert.Equal(t, []Span{{Start: 0, End: 7}, {Start: 8, End: 11}}, collect(text))
		assert.Equal(t, []string{"a={x={}", "b={"}, Blocks(text))
	})

	t.Run("spans are ordered and disjoint", func(t *testing.T) {
		spans := collect(designs)
		require.Len(t, spans, 2)
		for i := 1; i < len(spans); i++ {
			assert.Greater(t, spans[i].Start, spans[i-1].End)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, collect(""))
	})

	t.Run("no opening brace", func(t *testing.T) {
		assert.Empty(t, collect("just text } with a stray close"))
		assert.Empty(t, collect("a}"))
	})

	t.Run("dangling open drops the tail", func(t *testing.T) {
		assert.Equal(t, []string{"a={"}, Blocks("a={}\nb={"))
		assert.Equal(t, []string{"a={"}, Blocks("a={}\nb={ c={ }"))
	})

	t.Run("unclosed first block yields nothing", func(t *testing.T) {
		assert.Empty(t, collect("a={ b={ }"))
	})

	t.Run("consumer can stop early", func(t *testing.T) {
		n := 0
		for range Scan(designs) {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  Empire
	}{
		{
			name:  "single ethic",
			block: "Name = {\n ethic=\"ethic_military\"\n}",
			want:  Empire{Name: "Name", Ethics: []string{"military"}},
		},
		{
			name:  "ordered ethics with fanatic prefix",
			block: "Foo = {\n\tethic=\"ethic_fanatic_xenophile\"\n\tethic=\"ethic_egalitarian\"\n",
			want:  Empire{Name: "Foo", Ethics: []string{"fanatic xenophile", "egalitarian"}},
		},
		{
			name:  "duplicates kept",
			block: "Foo={\nethic=\"ethic_spiritualist\"\nethic=\"ethic_spiritualist\"",
			want:  Empire{Name: "Foo", Ethics: []string{"spiritualist", "spiritualist"}},
		},
		{
			name:  "no ethics",
			block: "Bar =  {  \n\tkey=\"Bar\"\n",
			want:  Empire{Name: "Bar", Ethics: []string{}},
		},
		{
			name:  "empty block",
			block: "",
			want:  Empire{Name: "", Ethics: []string{}},
		},
		{
			name:  "windows line endings",
			block: "Baz={\r\n\tethic=\"ethic_gestalt_consciousness\"\r\n",
			want:  Empire{Name: "Baz", Ethics: []string{"gestalt consciousness"}},
		},
		{
			name:  "prefix also matches longer keys",
			block: "Qux={\n\tethics_count=2\n",
			want:  Empire{Name: "Qux", Ethics: []string{"ethics count=2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.block))
		})
	}
}

func TestParse(t *testing.T) {
	got := Parse(designs)

	require.Len(t, got, 2)
	assert.Equal(t, Empire{
		Name:   `"United Nations of Earth"`,
		Ethics: []string{"egalitarian", "xenophile"},
	}, got[0])
	assert.Equal(t, Empire{
		Name:   `"Tzynn Empire"`,
		Ethics: []string{"fanatic militarist", "authoritarian"},
	}, got[1])

	assert.Equal(t, got, Parse(designs), "parsing is repeatable")
	assert.NotNil(t, Parse(""))
	assert.Empty(t, Parse(""))
}

func TestEmpireString(t *testing.T) {
	e := Empire{Name: "Foo", Ethics: []string{"fanatic xenophile", "egalitarian"}}
	assert.Equal(t, "Foo [fanatic xenophile, egalitarian]", e.String())
	assert.Equal(t, "Bar []", Empire{Name: "Bar"}.String())
}
