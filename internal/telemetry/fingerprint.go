package telemetry

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"crashgate/internal/models"

	"github.com/zeebo/blake3"
)

// FingerprintProperty is the LogEvent property that carries an explicit fingerprint.
const FingerprintProperty = "fingerprint"

// maxMessageInFingerprint bounds the exception message appended to a detailed fingerprint.
const maxMessageInFingerprint = 200

// Fingerprint identifies "the same underlying problem".
type Fingerprint []string

// FingerprintKey is the fixed-size digest used as a debounce table key.
type FingerprintKey [32]byte

// fingerprintDomainKey is the BLAKE3 key for fingerprint digests, ASCII zero-padded to 32 bytes.
var fingerprintDomainKey = [32]byte{
	'c', 'r', 'a', 's', 'h', 'g', 'a', 't', 'e', '.', 'f', 'i', 'n', 'g', 'e', 'r',
	'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Equal reports full-sequence equality.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

// Key digests the length-prefixed parts, so ["ab","c"] and ["a","bc"] never collide.
func (f Fingerprint) Key() FingerprintKey {
	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		panic("telemetry: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	var buf []byte
	for _, part := range f {
		buf = binary.AppendUvarint(buf[:0], uint64(len(part)))
		buf = append(buf, part...)
		_, _ = hasher.Write(buf)
	}
	var key FingerprintKey
	copy(key[:], hasher.Sum(nil))
	return key
}

func (k FingerprintKey) String() string {
	return hex.EncodeToString(k[:])
}

// Override returns the explicit fingerprint carried by the event.
// present is true whenever the property exists, even if it holds no parts;
// an empty override, or one whose parts are all blank, is how callers ask for
// an event not to be sent.
func Override(ev models.LogEvent) (fp Fingerprint, present bool) {
	raw, ok := ev.Properties[FingerprintProperty]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case nil:
		return nil, true
	case string:
		return nonEmpty([]string{v}), true
	case []string:
		return nonEmpty(v), true
	case Fingerprint:
		return nonEmpty(v), true
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, stringify(p))
		}
		return nonEmpty(parts), true
	default:
		return nonEmpty([]string{stringify(v)}), true
	}
}

// nonEmpty copies parts, or returns nil when every part is blank.
func nonEmpty(parts []string) Fingerprint {
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			return append(Fingerprint(nil), parts...)
		}
	}
	return nil
}

// Coarse is the local suppression fingerprint: ordinal, logger and exception type chain.
func Coarse(ev models.LogEvent) Fingerprint {
	fp := Fingerprint{strconv.Itoa(int(ev.Level)), ev.Logger}
	if ex := ev.Exception; ex != nil {
		name := ex.Type
		if ex.Cause != nil {
			name += ex.Cause.Type
		}
		fp = append(fp, name)
	}
	return fp
}

// Detailed is the grouping key sent with the event.
func Detailed(ev models.LogEvent) Fingerprint {
	fp := Fingerprint{ev.Level.String(), ev.Logger, ev.Message}
	ex := ev.Exception
	if ex == nil {
		return fp
	}

	fp = append(fp, ex.QualifiedType())
	if ex.TargetSite != "" {
		fp = append(fp, ex.TargetSite)
	}

	if ex.Cause != nil {
		fp = append(fp, ex.Cause.QualifiedType())
		return fp
	}

	// Trailing periods differ between platforms for the same failure.
	if msg, ok := InvariantMessage(ex); ok && msg != "" && utf8.RuneCountInString(msg) < maxMessageInFingerprint {
		fp = append(fp, strings.TrimRight(msg, "."))
	}
	return fp
}
