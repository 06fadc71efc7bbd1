package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"github.com/0xPuncker/cron-panel/pkg/types"
)

// TokenLength is the number of hex characters in an identity token.
const TokenLength = 32

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// Hash derives the identity token of an argument set. Two occurrences of the same
// hook at the same time are told apart by this token alone, so it has to be a pure
// function of the ordered pairs.
func Hash(args types.Args) string {
	h := sha256.New()
	var size [8]byte
	write := func(s string) {
		binary.BigEndian.PutUint64(size[:], uint64(len(s)))
		h.Write(size[:])
		h.Write([]byte(s))
	}

	binary.BigEndian.PutUint64(size[:], uint64(len(args)))
	h.Write(size[:])
	for _, arg := range args {
		write(arg.Key)
		write(arg.Value)
	}

	return hex.EncodeToString(h.Sum(nil))[:TokenLength]
}

// Sanitize strips markup and control characters.
func Sanitize(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func Valid(token string) bool {
	return tokenPattern.MatchString(token)
}
