package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action layer.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrRejected    = "E_REJECTED"
	ErrNoCandidate = "E_NO_CANDIDATE"
	ErrRateLimited = "E_RATE_LIMITED"
	ErrStopped     = "E_STOPPED"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrRejected:        {},
	ErrNoCandidate:     {},
	ErrRateLimited:     {},
	ErrStopped:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
