package nmea

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Framing errors. All of them are per-sentence and non-fatal: the pipeline
// counts them and moves on to the next line.
var (
	ErrNotSentence  = errors.New("not an NMEA sentence")
	ErrChecksum     = errors.New("checksum mismatch")
	ErrMalformed    = errors.New("malformed sentence")
	ErrEmptyPayload = errors.New("empty payload")
)

// Sentence is a parsed AIVDM/AIVDO line. It is ephemeral: single-fragment
// sentences go straight to the decoder, multi-fragment ones are buffered by
// the Assembler until the group completes.
type Sentence struct {
	Talker        string // leading field, e.g. "AIVDM", "ABVDO"
	FragmentCount int
	FragmentIndex int    // 1-based
	GroupID       string // sequential message id, empty for single-fragment
	Channel       string // radio channel, "A"/"B", may be empty
	Payload       string // 6-bit armored payload
	FillBits      int
	OwnShip       bool // talker/formatter carries VDO
	Raw           string
}

// ownShipScan is how far into the sentence we look for the VDO marker.
// Talker ids vary in the wild (!AIVDO, !ABVDO, !BSVDO, ...), so a substring
// scan over the head of the line covers all of them.
const ownShipScan = 10

// ParseSentence parses one line of NMEA text. The line must start with '!'
// or '$' and carry a valid XOR checksum after '*'; anything else is rejected
// with a framing error.
func ParseSentence(line string) (*Sentence, error) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || (line[0] != '!' && line[0] != '$') {
		return nil, ErrNotSentence
	}

	body, sumStr, found := strings.Cut(line[1:], "*")
	if !found || len(sumStr) < 2 {
		return nil, fmt.Errorf("%w: missing checksum", ErrMalformed)
	}

	want, err := strconv.ParseUint(sumStr[:2], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: bad checksum field %q", ErrMalformed, sumStr)
	}

	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	if sum != byte(want) {
		return nil, fmt.Errorf("%w: computed %02X, sentence carries %02X", ErrChecksum, sum, byte(want))
	}

	fields := strings.Split(body, ",")
	if len(fields) < 7 {
		return nil, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}

	fragCount, err := strconv.Atoi(fields[1])
	if err != nil || fragCount < 1 {
		return nil, fmt.Errorf("%w: fragment count %q", ErrMalformed, fields[1])
	}
	fragIndex, err := strconv.Atoi(fields[2])
	if err != nil || fragIndex < 1 || fragIndex > fragCount {
		return nil, fmt.Errorf("%w: fragment index %q", ErrMalformed, fields[2])
	}
	fillBits, err := strconv.Atoi(fields[6])
	if err != nil || fillBits < 0 || fillBits > 5 {
		return nil, fmt.Errorf("%w: fill bits %q", ErrMalformed, fields[6])
	}

	if fields[5] == "" {
		return nil, ErrEmptyPayload
	}

	head := line
	if len(head) > ownShipScan {
		head = head[:ownShipScan]
	}

	return &Sentence{
		Talker:        fields[0],
		FragmentCount: fragCount,
		FragmentIndex: fragIndex,
		GroupID:       fields[3],
		Channel:       fields[4],
		Payload:       fields[5],
		FillBits:      fillBits,
		OwnShip:       strings.Contains(head, "VDO"),
		Raw:           line,
	}, nil
}
