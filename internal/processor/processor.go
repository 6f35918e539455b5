package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliskhannn/jpg-converter/internal/model"
)

// ErrUnknownMode is returned when no strategy is registered for a mode.
var ErrUnknownMode = errors.New("unknown conversion mode")

// Strategy converts one source format into JPEG and decides which
// incoming files belong to that format.
type Strategy interface {
	Mode() model.Mode
	Accepts(src model.SourceFile) bool
	Decode(ctx context.Context, src model.SourceFile) ([]byte, error)
}

// Processor dispatches conversions to the strategy registered for a mode.
type Processor struct {
	strategies map[model.Mode]Strategy
}

// New creates a Processor with the given strategies. A later strategy
// replaces an earlier one registered for the same mode.
func New(strategies ...Strategy) *Processor {
	p := &Processor{strategies: make(map[model.Mode]Strategy, len(strategies))}
	for _, s := range strategies {
		p.strategies[s.Mode()] = s
	}
	return p
}

// Strategy returns the strategy registered for mode.
func (p *Processor) Strategy(mode model.Mode) (Strategy, error) {
	s, ok := p.strategies[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return s, nil
}

// DecodeError reports that a single file could not be converted.
// It never aborts a batch.
type DecodeError struct {
	Mode model.Mode
	Name string
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s decode %q: %s", e.Mode, e.Name, e.Msg)
	}
	return fmt.Sprintf("%s decode %q: %s: %v", e.Mode, e.Name, e.Msg, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeError(mode model.Mode, name, msg string, err error) error {
	return &DecodeError{Mode: mode, Name: name, Msg: msg, Err: err}
}
