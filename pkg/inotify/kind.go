// Package inotify models the raw notifications reported by inotifywait.
package inotify

import "strings"

// Kind is a set of raw notification kinds.
type Kind uint32

// Raw kinds. Bit values follow inotifywait's event ordering; 512 is the
// generic move bit, which is never set.
const (
	Access       Kind = 1 << 0
	Modify       Kind = 1 << 1
	Attrib       Kind = 1 << 2
	CloseWrite   Kind = 1 << 3
	CloseNoWrite Kind = 1 << 4
	Close        Kind = 1 << 5
	Open         Kind = 1 << 6
	MovedTo      Kind = 1 << 7
	MovedFrom    Kind = 1 << 8
	Create       Kind = 1 << 10
	Delete       Kind = 1 << 11
	DeleteSelf   Kind = 1 << 12
	Unmount      Kind = 1 << 13
	IsDir        Kind = 1 << 14
)

var kindNames = []struct {
	kind Kind
	name string
}{
	{Access, "ACCESS"},
	{Modify, "MODIFY"},
	{Attrib, "ATTRIB"},
	{CloseWrite, "CLOSE_WRITE"},
	{CloseNoWrite, "CLOSE_NOWRITE"},
	{Close, "CLOSE"},
	{Open, "OPEN"},
	{MovedTo, "MOVED_TO"},
	{MovedFrom, "MOVED_FROM"},
	{Create, "CREATE"},
	{Delete, "DELETE"},
	{DeleteSelf, "DELETE_SELF"},
	{Unmount, "UNMOUNT"},
	{IsDir, "ISDIR"},
}

// ignoredTokens are reported by inotifywait but carry nothing the classifier uses.
var ignoredTokens = map[string]struct{}{
	"MOVE":      {},
	"MOVE_SELF": {},
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for _, kn := range kindNames {
		m[kn.name] = kn.kind
	}
	return m
}()

// ParseKind maps an inotifywait token to its kind. ok is false for unknown
// tokens. Ignored tokens return (0, true).
func ParseKind(token string) (k Kind, ok bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if k, ok := byName[token]; ok {
		return k, true
	}
	if _, ok := ignoredTokens[token]; ok {
		return 0, true
	}
	return 0, false
}

// ParseKinds folds a token list into a set and returns the unknown tokens.
func ParseKinds(tokens []string) (Kind, []string) {
	var set Kind
	var unknown []string
	for _, t := range tokens {
		k, ok := ParseKind(t)
		if !ok {
			unknown = append(unknown, t)
			continue
		}
		set |= k
	}
	return set, unknown
}

// Has reports whether every bit of other is set.
func (k Kind) Has(other Kind) bool {
	return k&other == other
}

// HasAny reports whether any bit of other is set.
func (k Kind) HasAny(other Kind) bool {
	return k&other != 0
}

// Names returns the token names of the set bits in bit order.
func (k Kind) Names() []string {
	var names []string
	for _, kn := range kindNames {
		if k&kn.kind != 0 {
			names = append(names, kn.name)
		}
	}
	return names
}

func (k Kind) String() string {
	if k == 0 {
		return "NONE"
	}
	return strings.Join(k.Names(), "|")
}

// Tokens splits inotifywait's comma separated %e field.
func Tokens(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
