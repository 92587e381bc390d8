package jmap

import (
	"fmt"
	"strconv"
)

// Id is a server-assigned record identifier: 1 to 255 octets from the URL
// and filename safe base64 alphabet, excluding padding (RFC 8620
// section 1.2).
type Id string

// Valid reports whether the id satisfies the RFC 8620 constraints.
func (i Id) Valid() bool {
	if len(i) < 1 || len(i) > 255 {
		return false
	}
	for _, c := range []byte(i) {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// SessionState is the opaque token summarising session-level server state.
// It changes exactly when the data it describes changes.
type SessionState string

// SessionStateFromSeq mints the token for a sequence counter value.
func SessionStateFromSeq(seq uint64) SessionState {
	return SessionState(strconv.FormatUint(seq, 10))
}

// UnsignedInt is an integer constrained to 0 <= value <= 2^53-1, the safe
// range for JSON numbers.
type UnsignedInt uint64

const maxSafeInteger = 1<<53 - 1

func (u UnsignedInt) MarshalJSON() ([]byte, error) {
	if u > maxSafeInteger {
		return nil, fmt.Errorf("UnsignedInt %d exceeds 2^53-1", uint64(u))
	}
	return []byte(strconv.FormatUint(uint64(u), 10)), nil
}

func (u *UnsignedInt) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	if v > maxSafeInteger {
		return fmt.Errorf("UnsignedInt %d exceeds 2^53-1", v)
	}
	*u = UnsignedInt(v)
	return nil
}
