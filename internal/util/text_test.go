package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, "航班日期", CleanHeader(" 航班\n日期 "))
	assert.Equal(t, "燃油差价费(元)", CleanHeader("燃油差价费（元）"))
	assert.Equal(t, "航段", CleanHeader("航　段"))
}

func TestLettersOnly(t *testing.T) {
	assert.Equal(t, "YG", LettersOnly("YG9061"))
	assert.Equal(t, "cA", LettersOnly(" cA-123 "))
	assert.Equal(t, "", LettersOnly("1234"))
}

func TestLooksLikeCode(t *testing.T) {
	assert.True(t, LooksLikeCode("CGO"))
	assert.True(t, LooksLikeCode("ZHCC"))
	assert.False(t, LooksLikeCode("Cgo"))
	assert.False(t, LooksLikeCode("CG"))
	assert.False(t, LooksLikeCode("郑州市"))
}
