package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCPUNum(t *testing.T) {
	assert.Positive(t, GetCPUNum())
}

func TestGetMemoryCount(t *testing.T) {
	assert.Positive(t, GetMemoryCount())
}
