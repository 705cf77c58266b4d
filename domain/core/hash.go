package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// ParamsHash is the registry key of a name->value parameter mapping.
type ParamsHash uint64

func (h ParamsHash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// ComputeParamsHash hashes a parameter mapping independent of key order.
// Negative zero is folded onto zero so that 0 and -0 share a key.
func ComputeParamsHash(params map[string]float64) ParamsHash {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		v := params[key]
		if v == 0 {
			v = 0
		}
		data.WriteString(key)
		data.WriteByte('=')
		data.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
		data.WriteByte(';')
	}

	sum := sha256.Sum256([]byte(data.String()))
	return ParamsHash(binary.BigEndian.Uint64(sum[:8]))
}
