package a

import "time"

type clock func() time.Time

func stamp() time.Time {
	return time.Now() // want `time.Now\(\) should be followed by .UTC\(\)`
}

func stampUTC() time.Time {
	return time.Now().UTC()
}

func todayKey() string {
	return time.Now().UTC().Format("01-02")
}

func todayKeyLocal() string {
	return time.Now().Format("01-02") // want `time.Now\(\) should be followed by .UTC\(\)`
}

func elapsed() time.Duration {
	start := time.Now() // want `time.Now\(\) should be followed by .UTC\(\)`
	return time.Since(start)
}

func injectable() clock {
	return time.Now
}

func inLocal(t time.Time) time.Time {
	return t.In(time.Local) // want `time.Local should not be used`
}

func inUTC(t time.Time) time.Time {
	return t.In(time.UTC)
}

func suppressedAbove() time.Time {
	//nolint:utcclock
	return time.Now()
}

func suppressedSameLine() time.Time {
	return time.Now() //nolint
}

func suppressedList() time.Time {
	return time.Now() //nolint:errcheck,utcclock
}

func otherLinter() time.Time {
	return time.Now() //nolint:errcheck // want `time.Now\(\) should be followed by .UTC\(\)`
}
