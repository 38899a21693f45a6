package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDimensionNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"scenes", "scene"},
		{"beats", "beat"},
		{"categories", "category"},
		{"numOfScenes", "scene"},
		{"countOfBeats", "beat"},
		{"sceneCount", "scene"},
		{"beatNumber", "beat"},
		{"perScene", "scene"},
		{"script.scenes", "scene"},
		{"script.scenes.beats", "beat"},
		{"", "item"},
		{"numOf", "item"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DimensionNameFromPath(tt.path))
		})
	}
}
