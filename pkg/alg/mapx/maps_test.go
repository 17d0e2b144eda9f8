package mapx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/hourglass/pkg/alg/mapx"
)

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	assert.Nil(t, mapx.SortedKeys[string, int](nil))
	assert.Empty(t, mapx.SortedKeys(map[int]string{}))
	assert.Equal(t, []int{1, 2, 3}, mapx.SortedKeys(map[int]string{3: "c", 1: "a", 2: "b"}))
	assert.Equal(t, []string{"apple", "banana"}, mapx.SortedKeys(map[string]bool{"banana": true, "apple": false}))
}
