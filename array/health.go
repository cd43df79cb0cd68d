package array

// Health is the array condition seen by one operation. It is derived from
// the number of unavailable disks and never persisted.
type Health int

const (
	Healthy Health = iota
	Degraded1
	Degraded2
	Failed
)

// HealthFor maps a count of unavailable disks to a Health.
func HealthFor(failures int) Health {
	switch {
	case failures <= 0:
		return Healthy
	case failures == 1:
		return Degraded1
	case failures == 2:
		return Degraded2
	default:
		return Failed
	}
}

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded1:
		return "degraded-1"
	case Degraded2:
		return "degraded-2"
	default:
		return "failed"
	}
}

// Recoverable reports whether data can still be served.
func (h Health) Recoverable() bool { return h != Failed }

func (h Health) MarshalText() ([]byte, error) { return []byte(h.String()), nil }
