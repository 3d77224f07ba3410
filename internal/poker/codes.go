package poker

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// CodeAlphabet leaves out characters that read alike (0/O, 1/I).
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// NewRoomCode draws CodeLength characters from CodeAlphabet uniformly, with
// replacement. It does not check whether the code is already in use.
func NewRoomCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = CodeAlphabet[mrand.IntN(len(CodeAlphabet))]
		}
		return string(buf)
	}
	// len(CodeAlphabet) divides 256, so the modulo is unbiased.
	for i := range buf {
		buf[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
	}
	return string(buf)
}

var lastParticipantID atomic.Int64

// NewParticipantID returns the current time in nanoseconds, bumped so that
// ids handed out by this process are strictly increasing.
func NewParticipantID() string {
	for {
		prev := lastParticipantID.Load()
		next := time.Now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if lastParticipantID.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// NormalizeCode uppercases and trims a typed room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isWellFormedCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

func isWellFormedParticipantID(id string) bool {
	if id == "" || len(id) > 24 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
