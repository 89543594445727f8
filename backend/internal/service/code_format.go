package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeCode 去除首尾空白并转为大写，长度必须恰好为 length 个可打印字符
func NormalizeCode(raw string, length int) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if utf8.RuneCountInString(code) != length {
		return "", ErrInvalidCodeFormat
	}
	for _, r := range code {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return "", ErrInvalidCodeFormat
		}
	}
	return code, nil
}
