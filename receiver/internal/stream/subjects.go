package stream

import (
	"strings"
)

// SessionFromSubject возвращает последний токен темы (ecg.wave.<session>)
func SessionFromSubject(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
