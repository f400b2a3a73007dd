package defaults

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
)

func TestTemplates_Embedded(t *testing.T) {
	tpls := Templates()
	require.NotEmpty(t, tpls)

	for _, tpl := range tpls {
		assert.True(t, IsReserved(tpl.ID), tpl.ID)
		assert.True(t, IsDefault(tpl.ID), tpl.ID)
		assert.NotEmpty(t, tpl.Title)
		assert.NotEmpty(t, tpl.Sections)
	}

	fire := tpls[0]
	assert.Equal(t, "default-fire-safety", fire.ID)
	assert.Equal(t, 20, fire.EstimatedMinutes)
	q, ok := fire.Question("ext-present")
	require.True(t, ok)
	assert.True(t, q.Critical)
	assert.Equal(t, models.QuestionBoolean, q.Type)
}

func TestTemplates_ReturnsCopies(t *testing.T) {
	a := Templates()
	a[0].Title = "changed"
	a[0].Sections[0].Questions[0].Text = "changed"

	b := Templates()
	assert.NotEqual(t, "changed", b[0].Title)
	assert.NotEqual(t, "changed", b[0].Sections[0].Questions[0].Text)
}

func TestIsDefault_Unknown(t *testing.T) {
	assert.False(t, IsDefault("default-unknown"))
	assert.True(t, IsReserved("default-unknown"))
	assert.False(t, IsReserved("user-1"))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("- id: user-1\n  title: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("- id: default-a\n- id: default-a\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	defs := []models.Template{{ID: "default-a", Title: "builtin"}, {ID: "default-b"}}
	records := []models.Template{{ID: "u1"}, {ID: "default-a", Title: "user copy"}, {ID: "u2"}}

	merged := Merge(defs, records)

	ids := make([]string, len(merged))
	for i, m := range merged {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"default-a", "default-b", "u1", "u2"}, ids)
	assert.Equal(t, "builtin", merged[0].Title)
	assert.Len(t, records, 3)
}
