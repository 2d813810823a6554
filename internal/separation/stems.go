package separation

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// StemCount selects a separation model by the number of stems it produces.
type StemCount int

const (
	TwoStems  StemCount = 2
	FiveStems StemCount = 5
)

var ErrInvalidStemCount = errors.New("invalid stem count")

// candidate output stems, in reporting order
var stemNames = map[StemCount][]string{
	TwoStems:  {"vocals", "accompaniment"},
	FiveStems: {"vocals", "accompaniment", "bass", "drums", "piano", "other"},
}

// ParseStemCount accepts exactly "2" or "5".
func ParseStemCount(s string) (StemCount, error) {
	switch s {
	case "2":
		return TwoStems, nil
	case "5":
		return FiveStems, nil
	default:
		return 0, errors.Wrapf(ErrInvalidStemCount, "%q", s)
	}
}

// Model is the spleeter model name, e.g. "spleeter:2stems".
func (c StemCount) Model() string {
	switch c {
	case TwoStems:
		return "spleeter:2stems"
	case FiveStems:
		return "spleeter:5stems"
	}
	return ""
}

// StemNames lists the stems a caller may find on disk after separation.
func (c StemCount) StemNames() []string {
	return append([]string{}, stemNames[c]...)
}

// StemFileMap maps a stem name to its path on the server.
type StemFileMap map[string]string

// ExistingStems returns the candidate stem files of count under dir that
// exist as regular files.
func ExistingStems(dir string, count StemCount) StemFileMap {
	out := StemFileMap{}
	for _, name := range stemNames[count] {
		p := filepath.Join(dir, name+".wav")
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			out[name] = p
		}
	}
	return out
}
