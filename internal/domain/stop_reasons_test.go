package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStopReasons(t *testing.T) {
	h := DefaultStopReasons()
	require.NoError(t, h.Validate())
	assert.Contains(t, h.Flatten(), "Materials > Yarn shortage")
}

func TestStopReasonHierarchy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		h       StopReasonHierarchy
		wantErr bool
	}{
		{"empty tree is valid", StopReasonHierarchy{}, false},
		{"blank label", StopReasonHierarchy{{Label: " "}}, true},
		{"duplicate siblings ignoring case", StopReasonHierarchy{{Label: "Equipment"}, {Label: "equipment"}}, true},
		{"same label at different levels", StopReasonHierarchy{{Label: "Other", Children: []StopReasonNode{{Label: "Other"}}}}, false},
		{"too deep", StopReasonHierarchy{{Label: "1", Children: []StopReasonNode{{Label: "2", Children: []StopReasonNode{
			{Label: "3", Children: []StopReasonNode{{Label: "4", Children: []StopReasonNode{{Label: "5"}}}}},
		}}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.h.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStopReasons)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStopReasonHierarchy_Flatten(t *testing.T) {
	h := StopReasonHierarchy{
		{Label: "Quality", Children: []StopReasonNode{{Label: "Rework"}, {Label: "Shade", Children: []StopReasonNode{{Label: "Too dark"}}}}},
		{Label: "Other"},
	}
	assert.Equal(t, []string{"Quality > Rework", "Quality > Shade > Too dark", "Other"}, h.Flatten())
}
