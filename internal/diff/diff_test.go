package diff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futureCreator/renote/internal/types"
)

func it(id int64, title string) types.ReleaseItem {
	return types.NewReleaseItem(types.ItemSpec{ID: id, Title: title})
}

func note(known, resolved []types.ReleaseItem) *types.ReleaseNote {
	return &types.ReleaseNote{
		Version: "v1.2.0",
		Sections: []types.SectionContent{
			{Section: types.SectionKnownIssues, Title: "Known Issues", Items: known},
			{Section: types.SectionResolvedIssues, Title: "Resolved Issues", Items: resolved},
		},
	}
}

func ids(items []types.ReleaseItem) []int64 {
	var out []int64
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func TestDiffIdenticalNotes(t *testing.T) {
	a := note([]types.ReleaseItem{it(1, "leak")}, []types.ReleaseItem{it(2, "fix"), it(3, "fix 2")})
	b := note([]types.ReleaseItem{it(1, "leak")}, []types.ReleaseItem{it(2, "fix"), it(3, "fix 2")})

	diffs := Diff(a, b)
	require.Len(t, diffs, 2)
	for _, d := range diffs {
		assert.Empty(t, d.Added)
		assert.Empty(t, d.Removed)
	}
	assert.False(t, HasChanges(diffs))

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, diffs, false))
	assert.Equal(t, "No changes.\n", buf.String())
}

func TestDiffAddedRemoved(t *testing.T) {
	prev := note([]types.ReleaseItem{it(1, "leak"), it(4, "slow start")}, []types.ReleaseItem{it(2, "fix")})
	cur := note([]types.ReleaseItem{it(1, "leak")}, []types.ReleaseItem{it(2, "fix"), it(5, "new fix")})
	prevCopy := *prev

	diffs := Diff(prev, cur)
	require.Len(t, diffs, 2)

	assert.Equal(t, types.SectionKnownIssues, diffs[0].Section)
	assert.Equal(t, []int64{4}, ids(diffs[0].Removed))
	assert.Equal(t, []int64{1}, ids(diffs[0].Unchanged))
	assert.Equal(t, []int64{5}, ids(diffs[1].Added))
	assert.Equal(t, []int64{2}, ids(diffs[1].Unchanged))

	assert.Equal(t, prevCopy, *prev)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, diffs, false))
	assert.Equal(t, "## Known Issues (+0 -1 =1)\n- #4 slow start\n## Resolved Issues (+1 -0 =1)\n+ #5 new fix\n", buf.String())
}

func TestDiffSectionOnlyInPrevious(t *testing.T) {
	prev := note(nil, nil)
	prev.Sections = append(prev.Sections, types.SectionContent{Section: "highlights", Title: "Highlights", Items: []types.ReleaseItem{it(9, "x")}})
	cur := note(nil, nil)

	diffs := Diff(prev, cur)
	require.Len(t, diffs, 3)
	assert.Equal(t, types.Section("highlights"), diffs[2].Section)
	assert.Equal(t, []int64{9}, ids(diffs[2].Removed))
}

func TestDiffWithoutPrevious(t *testing.T) {
	cur := note([]types.ReleaseItem{it(1, "leak")}, nil)
	diffs := Diff(nil, cur)
	assert.Equal(t, []int64{1}, ids(diffs[0].Added))
	assert.True(t, HasChanges(diffs))
}

func TestCarriedOver(t *testing.T) {
	prev := note([]types.ReleaseItem{it(1, "leak"), it(4, "slow start")}, nil)
	cur := note([]types.ReleaseItem{it(7, "new"), it(4, "slow start"), it(1, "leak")}, nil)

	assert.Equal(t, []int64{4, 1}, ids(CarriedOver(prev, cur)))
	assert.Nil(t, CarriedOver(nil, cur))
}

func TestFormatStyledKeepsText(t *testing.T) {
	diffs := Diff(nil, note(nil, []types.ReleaseItem{it(5, "new fix")}))
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, diffs, true))
	assert.Contains(t, buf.String(), "+ #5 new fix")
}
