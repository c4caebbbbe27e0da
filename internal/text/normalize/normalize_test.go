package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKoreanNumerals(t *testing.T) {
	cases := map[string]string{
		"1,500":          "천오백",
		"0":              "영",
		"10":             "십",
		"21":             "이십일",
		"10000":          "일만",
		"12,000":         "일만이천",
		"120,000,000":    "일억이천만",
		"3.14":           "삼 점 일사",
		"50%":            "오십 퍼센트",
		"총 1,500명입니다": "총 천오백명입니다",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in, Korean), in)
	}
}

func TestEnglishNumerals(t *testing.T) {
	assert.Equal(t, "It costs one thousand five hundred dollars", Normalize("It costs 1,500 dollars", English))
	assert.Equal(t, "pi is three point one four", Normalize("pi is 3.14", English))
	assert.Equal(t, "fifty percent off", Normalize("50% off", English))
	assert.Equal(t, "ninety-nine", Normalize("99", English))
	assert.Equal(t, "two million three", Normalize("2,000,003", English))
}

func TestJapaneseNumerals(t *testing.T) {
	assert.Equal(t, "千五百円", Normalize("1,500円", Japanese))
	assert.Equal(t, "一万", Normalize("10000", Japanese))
}

func TestOtherScriptIsLeftAlone(t *testing.T) {
	in := "The 2 towers were 300 meters tall"
	assert.Equal(t, in, Normalize(in, Korean))

	ko := "2명이 왔다"
	assert.Equal(t, ko, Normalize(ko, English))
}

func TestOverflowLeftUntouched(t *testing.T) {
	in := "99999999999999999999999"
	assert.Equal(t, in, Normalize(in, Korean))
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, Korean, ParseLocale("ko-KR"))
	assert.Equal(t, Korean, ParseLocale("Korean"))
	assert.Equal(t, Japanese, ParseLocale("ja"))
	assert.Equal(t, English, ParseLocale("en-US"))
	assert.Equal(t, English, ParseLocale(""))
}
