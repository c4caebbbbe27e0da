package normalize

import (
	"strconv"
	"strings"
)

type speaker struct {
	percent  string
	point    string
	digitSep string
	digits   [10]string
	number   func(string) string
}

var (
	koDigits = [10]string{"영", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}
	koSmall  = [4]string{"", "십", "백", "천"}
	koBig    = []string{"", "만", "억", "조", "경"}

	jaDigits = [10]string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九"}
	jaSmall  = [4]string{"", "十", "百", "千"}
	jaBig    = []string{"", "万", "億", "兆", "京"}

	enOnes = []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	enTens   = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
	enScales = []string{"", "thousand", "million", "billion", "trillion", "quadrillion", "quintillion"}
	enDigits = [10]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
)

func speakerFor(locale Locale) speaker {
	switch locale {
	case Korean:
		return speaker{
			percent: " 퍼센트",
			point:   " 점 ",
			digits:  koDigits,
			number:  numeral(func(n uint64) string { return myriad(n, koDigits, koSmall, koBig) }),
		}
	case Japanese:
		return speaker{
			percent: "パーセント",
			point:   "点",
			digits:  jaDigits,
			number:  numeral(func(n uint64) string { return myriad(n, jaDigits, jaSmall, jaBig) }),
		}
	default:
		return speaker{
			percent:  " percent",
			point:    " point ",
			digitSep: " ",
			digits:   enDigits,
			number:   numeral(english),
		}
	}
}

// numeral adapts a uint64 speller to raw matched text. Values that do not
// parse are returned unchanged.
func numeral(spell func(uint64) string) func(string) string {
	return func(raw string) string {
		n, err := strconv.ParseUint(strings.ReplaceAll(raw, ",", ""), 10, 64)
		if err != nil {
			return raw
		}
		if out := spell(n); out != "" {
			return out
		}
		return raw
	}
}

// myriad spells n grouping digits by powers of 10^4. A one before a small
// unit is dropped (천, not 일천); whole groups keep it (일만).
func myriad(n uint64, digits [10]string, small [4]string, big []string) string {
	if n == 0 {
		return digits[0]
	}

	var groups []string
	for idx := 0; n > 0; idx++ {
		part := n % 10000
		n /= 10000
		if part == 0 {
			continue
		}
		if idx >= len(big) {
			return ""
		}
		groups = append(groups, smallGroup(part, digits, small)+big[idx])
	}

	var sb strings.Builder
	for i := len(groups) - 1; i >= 0; i-- {
		sb.WriteString(groups[i])
	}
	return sb.String()
}

func smallGroup(part uint64, digits [10]string, small [4]string) string {
	var sb strings.Builder
	div := uint64(1000)
	for i := 3; i >= 0; i-- {
		d := (part / div) % 10
		div /= 10
		if d == 0 {
			continue
		}
		if d == 1 && i > 0 {
			sb.WriteString(small[i])
			continue
		}
		sb.WriteString(digits[d])
		sb.WriteString(small[i])
	}
	return sb.String()
}

func english(n uint64) string {
	if n == 0 {
		return enOnes[0]
	}

	var groups []string
	for idx := 0; n > 0; idx++ {
		part := n % 1000
		n /= 1000
		if part == 0 {
			continue
		}
		words := englishHundreds(part)
		if enScales[idx] != "" {
			words += " " + enScales[idx]
		}
		groups = append(groups, words)
	}

	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return strings.Join(groups, " ")
}

func englishHundreds(n uint64) string {
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, enOnes[h], "hundred")
	}
	rest := n % 100
	switch {
	case rest == 0:
	case rest < 20:
		words = append(words, enOnes[rest])
	case rest%10 == 0:
		words = append(words, enTens[rest/10])
	default:
		words = append(words, enTens[rest/10]+"-"+enOnes[rest%10])
	}
	return strings.Join(words, " ")
}
