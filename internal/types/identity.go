package types

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// BotIdentity is the hashed form of the operator supplied identifier. The raw
// identifier is never sent to the coordinator.
type BotIdentity string

func NewBotIdentity(raw string) BotIdentity {
	sum := md5.Sum([]byte(strings.TrimSpace(raw)))
	return BotIdentity(hex.EncodeToString(sum[:]))
}

func (b BotIdentity) String() string {
	return string(b)
}
