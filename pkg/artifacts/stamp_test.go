package artifacts_test

import (
	"testing"
	"time"

	"github.com/alzearly/trainctl/pkg/artifacts"
	"github.com/alzearly/trainctl/pkg/utils/try"
)

func TestStamp(t *testing.T) {
	t.Run("it formats as YYYYMMDD_HHMMSS", func(t *testing.T) {
		stamp := artifacts.NewStamp(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC))
		if stamp.String() != "20240131_235959" {
			t.Errorf("unmatch: %s", stamp)
		}
	})

	t.Run("it parses back from a snapshot directory name", func(t *testing.T) {
		at := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
		parsed := try.To(artifacts.ParseStamp(artifacts.NewStamp(at).String())).OrFatal(t)
		if !parsed.Time().Equal(at) {
			t.Errorf("unmatch: %s", parsed.Time())
		}
	})

	t.Run("a directory name that is no stamp is rejected", func(t *testing.T) {
		if _, err := artifacts.ParseStamp("latest"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("lexicographic order of stamps is chronological order", func(t *testing.T) {
		earlier := artifacts.NewStamp(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC))
		later := artifacts.NewStamp(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

		if !(earlier.String() < later.String()) {
			t.Errorf("snapshots should sort by name: %s vs %s", earlier, later)
		}
	})
}
