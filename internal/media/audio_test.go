package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimExt(t *testing.T) {
	assert.Equal(t, "/data/v1", trimExt("/data/v1.mp4"))
	assert.Equal(t, "/data/v1.part", trimExt("/data/v1.part.mp4"))
	assert.Equal(t, "/data/noext", trimExt("/data/noext"))
	assert.Equal(t, "/da.ta/noext", trimExt("/da.ta/noext"))
}
