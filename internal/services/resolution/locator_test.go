package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Luca1234105/torren/internal/services/debrid"
)

func TestPickLocator(t *testing.T) {
	tests := []struct {
		name          string
		status        *debrid.ResourceStatus
		ok            bool
		wantLink      string
		wantFile      int
		wantExact     bool
		wantAmbiguous bool
	}{
		{
			name:   "no links",
			status: &debrid.ResourceStatus{Files: []debrid.ResourceFile{{ID: 1, Selected: true}}},
			ok:     false,
		},
		{
			name: "single file",
			status: &debrid.ResourceStatus{
				Files: []debrid.ResourceFile{{ID: 3, Bytes: 5, Selected: true}},
				Links: []string{"L1"},
			},
			ok: true, wantLink: "L1", wantFile: 3, wantExact: true,
		},
		{
			name: "largest file paired by position",
			status: &debrid.ResourceStatus{
				Files: []debrid.ResourceFile{
					{ID: 2, Bytes: 900, Selected: true},
					{ID: 1, Bytes: 10, Selected: true},
					{ID: 3, Bytes: 50, Selected: true},
				},
				Links: []string{"L-id1", "L-id2", "L-id3"},
			},
			ok: true, wantLink: "L-id2", wantFile: 2, wantExact: true,
		},
		{
			name: "unselected files are ignored",
			status: &debrid.ResourceStatus{
				Files: []debrid.ResourceFile{
					{ID: 1, Bytes: 5000, Selected: false},
					{ID: 2, Bytes: 10, Selected: true},
					{ID: 3, Bytes: 20, Selected: true},
				},
				Links: []string{"L-id2", "L-id3"},
			},
			ok: true, wantLink: "L-id3", wantFile: 3, wantExact: true,
		},
		{
			name: "ties go to lowest id",
			status: &debrid.ResourceStatus{
				Files: []debrid.ResourceFile{
					{ID: 7, Bytes: 100, Selected: true},
					{ID: 4, Bytes: 100, Selected: true},
				},
				Links: []string{"L-id4", "L-id7"},
			},
			ok: true, wantLink: "L-id4", wantFile: 4, wantExact: true,
		},
		{
			name: "count mismatch falls back to first link",
			status: &debrid.ResourceStatus{
				Files: []debrid.ResourceFile{
					{ID: 1, Bytes: 10, Selected: true},
					{ID: 2, Bytes: 900, Selected: true},
				},
				Links: []string{"L-packed"},
			},
			ok: true, wantLink: "L-packed", wantFile: 2, wantAmbiguous: true,
		},
		{
			name: "no file metadata",
			status: &debrid.ResourceStatus{
				Links: []string{"L1", "L2"},
			},
			ok: true, wantLink: "L1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := pickLocator(tt.status)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantLink, loc.link)
			assert.Equal(t, tt.wantFile, loc.file.ID)
			assert.Equal(t, tt.wantExact, loc.exact)
			assert.Equal(t, tt.wantAmbiguous, loc.ambiguous)
		})
	}
}
