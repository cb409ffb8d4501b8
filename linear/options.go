package linear

// Option configures a LinearRegression.
type Option func(*LinearRegression)

// WithFitIntercept sets whether to calculate the intercept. When false the
// data is expected to be centered already.
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// WithParallelThreshold sets the row count above which the design matrix
// is assembled in parallel.
func WithParallelThreshold(n int) Option {
	return func(lr *LinearRegression) {
		lr.threshold = n
	}
}

// WithRcond sets the relative singular value cutoff used by the SVD
// fallback when the design matrix is rank deficient.
func WithRcond(rcond float64) Option {
	return func(lr *LinearRegression) {
		lr.rcond = rcond
	}
}
