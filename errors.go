package rsec

import "github.com/cockroachdb/errors"

// Sentinel errors for the failure taxonomy. Callers classify returned errors
// with errors.Is; every sentinel below survives wrapping.
var (
	// ErrConfiguration indicates an invalid parameter before any computation
	// started (bad k, subsample fraction outside (0,1], empty grid, ...).
	ErrConfiguration = errors.New("rsec: invalid configuration")

	// ErrInsufficientData indicates that the (residual) sample count is too
	// small for the requested operation, e.g. k larger than the subsample.
	ErrInsufficientData = errors.New("rsec: insufficient data")

	// ErrUnknownClusterFunction indicates a registry lookup failure.
	ErrUnknownClusterFunction = errors.New("rsec: unknown cluster function")

	// ErrUnknownReduceMethod indicates an unregistered dimensionality
	// reduction method name.
	ErrUnknownReduceMethod = errors.New("rsec: unknown reduce method")

	// ErrDegenerateCoClustering indicates that the co-clustering matrix has no
	// usable entries: zero subsample iterations, or denominator-zero pairs
	// under ZeroDenomError policy.
	ErrDegenerateCoClustering = errors.New("rsec: degenerate co-clustering")

	// ErrMergeTest indicates the statistical test behind a merge decision
	// failed on a node. Callers of MergeClusters never see it as a returned
	// error; it is recorded per node in the decision list.
	ErrMergeTest = errors.New("rsec: merge test failure")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("rsec: "+format, args...), ErrConfiguration)
}

func insufficientDataErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("rsec: "+format, args...), ErrInsufficientData)
}

func degenerateErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("rsec: "+format, args...), ErrDegenerateCoClustering)
}

func unknownFunctionErrorf(name string) error {
	return errors.Mark(errors.Newf("rsec: unknown cluster function %q", name), ErrUnknownClusterFunction)
}

func unknownReducerErrorf(name string) error {
	return errors.Mark(errors.Newf("rsec: unknown reduce method %q", name), ErrUnknownReduceMethod)
}
