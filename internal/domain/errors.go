package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
// on a later tick or with another provider.
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// GenerationError wraps a failure inside a single tick's work for one symbol.
// It is fatal to that unit of work only; the scheduler reports it and moves on.
type GenerationError struct {
	Symbol string // Symbol being generated when the failure occurred
	Phase  string // "quote", "trade", "depth", "news", "indicators"
	Err    error
}

func (e *GenerationError) Error() string {
	return "generation failed [" + e.Symbol + "/" + e.Phase + "]: " + e.Err.Error()
}

func (e *GenerationError) IsRetriable() bool {
	return true // retry is simply "try again next tick"
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ProviderError represents a failed external provider call. Retriable in the
// sense that the next provider in the chain is tried.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return "provider [" + e.Provider + "]: " + e.Err.Error()
}

func (e *ProviderError) IsRetriable() bool {
	return true
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrAlreadyRunning is returned by Start when the driver is not idle.
	// Fatal to the call, not to the process.
	ErrAlreadyRunning = errors.New("already running")

	// ErrStreamClosed is returned when pulling from an exhausted or closed iterator.
	ErrStreamClosed = errors.New("stream closed")

	// ErrCrossedQuote is returned when a quote's ask does not exceed its bid.
	ErrCrossedQuote = errors.New("crossed quote")

	// ErrSpreadOutOfBand is returned when a spread leaves its allowed band.
	ErrSpreadOutOfBand = errors.New("spread out of band")

	// ErrDepthUnordered is returned when book levels are not strictly ordered.
	ErrDepthUnordered = errors.New("depth levels unordered")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
