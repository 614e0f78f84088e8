package artifacts

import "time"

// StampFormat names snapshot directories.
//
// Lexicographic order of stamps equals chronological order, so snapshots
// sort by name.
const StampFormat = "20060102_150405"

// Stamp is the timestamp key of an artifact snapshot.
type Stamp time.Time

func NewStamp(t time.Time) Stamp {
	return Stamp(t)
}

func (s Stamp) Time() time.Time {
	return time.Time(s)
}

func (s Stamp) String() string {
	return time.Time(s).Format(StampFormat)
}

// ParseStamp reads a snapshot directory name back into a Stamp.
func ParseStamp(name string) (Stamp, error) {
	t, err := time.Parse(StampFormat, name)
	if err != nil {
		return *new(Stamp), err
	}
	return Stamp(t), nil
}
