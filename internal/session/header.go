package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

const maxIDLength = 128

// ParseHeader extracts the identity from a Storefront-Session header value.
//
// Examples:
//   - sid="abc"                 → session abc, anonymous
//   - sid="abc", uid="42"       → session abc, user 42
//   - sid="abc";v=1, other="x"  → session abc (params and unknown keys ignored)
//
// Returns error if the header is empty, malformed, or has no sid.
func ParseHeader(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, errors.New("empty Storefront-Session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Identity{}, fmt.Errorf("invalid Storefront-Session header: %w", err)
	}

	sid, err := stringMember(dict, "sid")
	if err != nil {
		return Identity{}, err
	}
	if sid == "" {
		return Identity{}, errors.New("sid key not found in Storefront-Session header")
	}

	uid, err := stringMember(dict, "uid")
	if err != nil {
		return Identity{}, err
	}

	id := Identity{SessionID: sid, UserID: uid}
	if err := id.validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// FormatHeader serializes id as a Storefront-Session header value.
func FormatHeader(id Identity) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("sid", httpsfv.NewItem(id.SessionID))
	if id.UserID != "" {
		dict.Add("uid", httpsfv.NewItem(id.UserID))
	}
	return httpsfv.Marshal(dict)
}

// stringMember returns the string value of key, or "" when key is absent.
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	value, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return strings.TrimSpace(value), nil
}

func (id Identity) validate() error {
	if len(id.SessionID) > maxIDLength {
		return fmt.Errorf("sid longer than %d characters", maxIDLength)
	}
	if len(id.UserID) > maxIDLength {
		return fmt.Errorf("uid longer than %d characters", maxIDLength)
	}
	if strings.ContainsAny(id.SessionID+id.UserID, " \t:") {
		return errors.New("sid and uid must not contain spaces or colons")
	}
	return nil
}
