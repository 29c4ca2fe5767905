package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixAndCleanPath(t *testing.T) {
	assert.Equal(t, "/", FixAndCleanPath(""))
	assert.Equal(t, "/a/b", FixAndCleanPath("a//b/"))
	assert.Equal(t, "/a/c", FixAndCleanPath("\\a\\b\\..\\c"))
}

func TestEncodePath(t *testing.T) {
	assert.Equal(t, "/My%20Files/a%3Fb", EncodePath("/My Files/a?b"))
}
