package ais

import (
	"errors"
	"fmt"
)

// Decode errors. Both are per-message: the pipeline counts them and keeps
// going; they never abort a stream.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnsupportedType  = errors.New("unsupported message type")
	ErrPayloadTooShort  = errors.New("payload too short")
)

// Minimum bit lengths per supported type, from the ITU-R M.1371 layouts.
var minBits = map[int]int{
	1: 168, 2: 168, 3: 168,
	4:  168,
	5:  424,
	18: 168,
	19: 312,
	21: 272,
	24: 160,
}

// Decode converts a complete 6-bit armored payload into exactly one typed
// Message, or fails with a per-message error. Message types outside the
// supported subset yield ErrUnsupportedType; a payload shorter than its
// type's field layout yields ErrPayloadTooShort.
func Decode(payload string, fillBits int) (Message, error) {
	f, err := unarmor(payload, fillBits)
	if err != nil {
		return nil, err
	}
	if f.n < 38 {
		return nil, fmt.Errorf("%w: %d bits", ErrPayloadTooShort, f.n)
	}

	hdr := Header{
		MsgType: int(f.uint(0, 6)),
		Repeat:  int(f.uint(6, 2)),
		MMSI:    f.uint(8, 30),
	}

	need, ok := minBits[hdr.MsgType]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, hdr.MsgType)
	}
	if hdr.MsgType == 24 && f.uint(38, 2) == 0 {
		need = 160 // part A is 160 bits, part B 168
	}
	if f.n < need {
		return nil, fmt.Errorf("%w: type %d needs %d bits, got %d", ErrPayloadTooShort, hdr.MsgType, need, f.n)
	}

	switch hdr.MsgType {
	case 1, 2, 3:
		return decodePositionA(hdr, f), nil
	case 4:
		return decodeBaseStation(hdr, f), nil
	case 5:
		return decodeStaticVoyage(hdr, f), nil
	case 18, 19:
		return decodePositionB(hdr, f), nil
	case 21:
		return decodeAidToNavigation(hdr, f), nil
	case 24:
		return decodeStaticData(hdr, f), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, hdr.MsgType)
}

func decodePositionA(hdr Header, f *bitField) *PositionReportA {
	return &PositionReportA{
		Header:     hdr,
		NavStatus:  int(f.uint(38, 4)),
		RateOfTurn: f.turnRate(42),
		Speed:      f.speed(50),
		Accuracy:   f.uint(60, 1) == 1,
		Lon:        f.lon(61),
		Lat:        f.lat(89),
		Course:     f.course(116),
		Heading:    f.heading(128),
		Second:     int(f.uint(137, 6)),
		RAIM:       f.uint(148, 1) == 1,
	}
}

func decodeBaseStation(hdr Header, f *bitField) *BaseStationReport {
	return &BaseStationReport{
		Header:   hdr,
		Year:     int(f.uint(38, 14)),
		Month:    int(f.uint(52, 4)),
		Day:      int(f.uint(56, 5)),
		Hour:     int(f.uint(61, 5)),
		Minute:   int(f.uint(66, 6)),
		Second:   int(f.uint(72, 6)),
		Accuracy: f.uint(78, 1) == 1,
		Lon:      f.lon(79),
		Lat:      f.lat(107),
		EPFD:     int(f.uint(134, 4)),
		RAIM:     f.uint(148, 1) == 1,
	}
}

func decodeStaticVoyage(hdr Header, f *bitField) *StaticVoyageData {
	return &StaticVoyageData{
		Header:       hdr,
		AISVersion:   int(f.uint(38, 2)),
		IMO:          f.uint(40, 30),
		Callsign:     f.str(70, 42),
		ShipName:     f.str(112, 120),
		ShipType:     int(f.uint(232, 8)),
		DimBow:       int(f.uint(240, 9)),
		DimStern:     int(f.uint(249, 9)),
		DimPort:      int(f.uint(258, 6)),
		DimStarboard: int(f.uint(264, 6)),
		EPFD:         int(f.uint(270, 4)),
		ETA: ETA{
			Month:  int(f.uint(274, 4)),
			Day:    int(f.uint(278, 5)),
			Hour:   int(f.uint(283, 5)),
			Minute: int(f.uint(288, 6)),
		},
		Draught:     float64(f.uint(294, 8)) / 10.0,
		Destination: f.str(302, 120),
	}
}

func decodePositionB(hdr Header, f *bitField) *PositionReportB {
	msg := &PositionReportB{
		Header:   hdr,
		Speed:    f.speed(46),
		Accuracy: f.uint(56, 1) == 1,
		Lon:      f.lon(57),
		Lat:      f.lat(85),
		Course:   f.course(112),
		Heading:  f.heading(124),
		Second:   int(f.uint(133, 6)),
	}
	if hdr.MsgType == 18 {
		msg.RAIM = f.uint(147, 1) == 1
		return msg
	}
	msg.RAIM = f.uint(305, 1) == 1
	msg.Extended = &ClassBStatic{
		ShipName:     f.str(143, 120),
		ShipType:     int(f.uint(263, 8)),
		DimBow:       int(f.uint(271, 9)),
		DimStern:     int(f.uint(280, 9)),
		DimPort:      int(f.uint(289, 6)),
		DimStarboard: int(f.uint(295, 6)),
		EPFD:         int(f.uint(301, 4)),
	}
	return msg
}

func decodeAidToNavigation(hdr Header, f *bitField) *AidToNavigation {
	return &AidToNavigation{
		Header:       hdr,
		AidType:      int(f.uint(38, 5)),
		Name:         f.str(43, 120),
		Accuracy:     f.uint(163, 1) == 1,
		Lon:          f.lon(164),
		Lat:          f.lat(192),
		DimBow:       int(f.uint(219, 9)),
		DimStern:     int(f.uint(228, 9)),
		DimPort:      int(f.uint(237, 6)),
		DimStarboard: int(f.uint(243, 6)),
		EPFD:         int(f.uint(249, 4)),
		Second:       int(f.uint(253, 6)),
		OffPosition:  f.uint(259, 1) == 1,
		RAIM:         f.uint(268, 1) == 1,
		VirtualAid:   f.uint(269, 1) == 1,
	}
}

func decodeStaticData(hdr Header, f *bitField) *StaticDataReport {
	msg := &StaticDataReport{
		Header:     hdr,
		PartNumber: int(f.uint(38, 2)),
	}
	if msg.PartNumber == 0 {
		msg.ShipName = f.str(40, 120)
		return msg
	}
	msg.ShipType = int(f.uint(40, 8))
	msg.VendorID = f.str(48, 42)
	msg.Callsign = f.str(90, 42)
	msg.DimBow = int(f.uint(132, 9))
	msg.DimStern = int(f.uint(141, 9))
	msg.DimPort = int(f.uint(150, 6))
	msg.DimStarboard = int(f.uint(156, 6))
	return msg
}
