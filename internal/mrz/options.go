package mrz

import "time"

// CenturyPivot expands a two-digit year into a full year. month and day let a
// pivot compare the whole date. ambiguous reports whether the other century
// would also have been plausible.
type CenturyPivot func(yy int, month time.Month, day int) (year int, ambiguous bool)

// DefaultMaxAge is the oldest plausible registrant age in years.
const DefaultMaxAge = 120

// PivotRelativeTo places the date in the current century unless that lies
// after now, in which case the previous century is used. The result is
// ambiguous when the previous century still gives an age of at most maxAge
// years.
func PivotRelativeTo(now time.Time, maxAge int) CenturyPivot {
	current := now.Year()
	century := current - current%100
	today := time.Date(current, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return func(yy int, month time.Month, day int) (int, bool) {
		year := century + yy
		if time.Date(year, month, day, 0, 0, 0, 0, time.UTC).After(today) {
			year -= 100
		}
		older := year - 100
		return year, current-older <= maxAge
	}
}

// FixedPivot maps yy below pivot to 20yy and everything else to 19yy.
func FixedPivot(pivot int) CenturyPivot {
	return func(yy int, _ time.Month, _ int) (int, bool) {
		if yy < pivot {
			return 2000 + yy, false
		}
		return 1900 + yy, false
	}
}

// ExpiryPivot always places expiry dates in the 21st century.
func ExpiryPivot(yy int, _ time.Month, _ int) (int, bool) {
	return 2000 + yy, false
}

// Options configures Parse and Project.
type Options struct {
	// CenturyPivot resolves two-digit birth years. Nil means
	// PivotRelativeTo(time.Now(), DefaultMaxAge).
	CenturyPivot CenturyPivot

	// StrictChecksums makes Parse report check digit mismatches as errors.
	// Verification is advisory otherwise.
	StrictChecksums bool
}

// DefaultOptions returns advisory-checksum options with the default pivot.
func DefaultOptions() Options {
	return Options{}
}

// WithCenturyPivot returns options using pivot for birth years.
func (opts Options) WithCenturyPivot(pivot CenturyPivot) Options {
	opts.CenturyPivot = pivot
	return opts
}

// WithStrictChecksums returns options that reject check digit mismatches.
func (opts Options) WithStrictChecksums() Options {
	opts.StrictChecksums = true
	return opts
}

func (opts Options) withDefaults() Options {
	if opts.CenturyPivot == nil {
		opts.CenturyPivot = PivotRelativeTo(time.Now(), DefaultMaxAge)
	}
	return opts
}
