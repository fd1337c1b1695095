package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, DirectKey([]int{1, 2}), DirectKey([]int{2, 1}))
	assert.Equal(t, "3:17", DirectKey([]int{17, 3}))
}
