package channel

// Link timing constants (EPC Gen2 style), microseconds unless noted.
const (
	TPreambleUs   = 300.0
	T1Us          = 240.0
	T2Us          = 120.0
	BLF           = 40000.0 // tag backscatter link frequency, Hz
	ReaderRate    = 80000.0 // reader data rate, bit/s
	QueryBits     = 22      // frame-opening command
	ShortAckBits  = 18
	shortReplyMax = 20
)

// CommandTimeUs is the downlink time of a reader command of payloadBits.
func CommandTimeUs(payloadBits int) float64 {
	return TPreambleUs + float64(payloadBits)/ReaderRate*1e6
}

// ReplyTimeUs is the time a slot with a reply of bits occupies, including the
// turnaround gaps. Long replies pay an extra acknowledgement exchange.
func ReplyTimeUs(bits int) float64 {
	data := float64(bits) / BLF * 1e6
	if bits <= shortReplyMax {
		return data + T1Us + T2Us
	}
	return data + 3*T1Us + 2*T2Us + float64(ShortAckBits)/ReaderRate*1e6
}

// IdleTimeUs is the time the reader waits on a silent slot.
func IdleTimeUs() float64 {
	return T1Us
}
