package vmlog

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// frame is the wire form of an Entry on the log mirror.
type frame struct {
	Time    int64  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

// MarshalEntry encodes e as one CBOR mirror frame.
func MarshalEntry(e Entry) ([]byte, error) {
	return cbor.Marshal(frame{Time: e.Time.UnixMilli(), Message: e.Message})
}

func UnmarshalEntry(b []byte) (Entry, error) {
	var f frame
	if err := cbor.Unmarshal(b, &f); err != nil {
		return Entry{}, fmt.Errorf("log frame: %w", err)
	}
	return Entry{Time: time.UnixMilli(f.Time), Message: f.Message}, nil
}
